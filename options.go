package transito

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/transito/pkg/domain"
	"github.com/aretw0/transito/pkg/schema"
)

// UnhandledEventPolicy decides what Send does with an event the current state does not handle.
type UnhandledEventPolicy int

const (
	// UnhandledIgnore returns a new Actor over the same snapshot without writing.
	UnhandledIgnore UnhandledEventPolicy = iota
	// UnhandledTouch persists the unchanged snapshot with a refreshed UpdatedAt.
	UnhandledTouch
	// UnhandledReject fails with *domain.UnhandledEventError.
	UnhandledReject
)

func (p UnhandledEventPolicy) String() string {
	switch p {
	case UnhandledIgnore:
		return "ignore"
	case UnhandledTouch:
		return "touch"
	case UnhandledReject:
		return "reject"
	default:
		return "unknown"
	}
}

// ParseUnhandledEventPolicy parses "ignore", "touch" or "reject".
func ParseUnhandledEventPolicy(s string) (UnhandledEventPolicy, error) {
	switch s {
	case "", "ignore":
		return UnhandledIgnore, nil
	case "touch":
		return UnhandledTouch, nil
	case "reject":
		return UnhandledReject, nil
	default:
		return 0, fmt.Errorf("%w: unknown unhandled event policy %q", domain.ErrConfiguration, s)
	}
}

// Option defines a functional option for configuring the Machine.
type Option func(*Machine)

// WithLogger sets a custom structured logger for the machine.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Machine) {
		m.hooks = hooks
	}
}

// WithClock overrides time.Now for UpdatedAt stamping.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

// WithSchema validates every context written through the machine.
// Bind fails with domain.ErrConfiguration if a field collides with schema.SystemFields.
func WithSchema(s schema.Schema) Option {
	return func(m *Machine) {
		m.schema = s
	}
}

// WithUnhandledEventPolicy sets how Send treats unhandled events (default UnhandledIgnore).
func WithUnhandledEventPolicy(p UnhandledEventPolicy) Option {
	return func(m *Machine) {
		m.unhandled = p
	}
}

// WithMaxHops bounds the states a single event may enter, its own target included.
func WithMaxHops(n int) Option {
	return func(m *Machine) {
		m.maxHops = n
	}
}
