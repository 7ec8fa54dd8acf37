package transito

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/transito/internal/logging"
	"github.com/aretw0/transito/internal/runtime"
	"github.com/aretw0/transito/pkg/domain"
	"github.com/aretw0/transito/pkg/ports"
	"github.com/aretw0/transito/pkg/schema"
)

// Machine is a Definition bound to an Adapter. It creates and loads actors.
// A Machine is safe for concurrent use.
type Machine struct {
	def     *domain.Definition
	adapter ports.Adapter
	exec    *runtime.Executor

	logger    *slog.Logger
	hooks     domain.LifecycleHooks
	now       func() time.Time
	schema    schema.Schema
	unhandled UnhandledEventPolicy
	maxHops   int
}

// Bind pairs def with adapter.
func Bind(def *domain.Definition, adapter ports.Adapter, opts ...Option) (*Machine, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: definition is nil", domain.ErrConfiguration)
	}
	if adapter == nil {
		return nil, fmt.Errorf("%w: adapter is nil", domain.ErrConfiguration)
	}

	m := &Machine{
		def:     def,
		adapter: adapter,
		now:     time.Now,
		maxHops: runtime.DefaultMaxHops,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.NewNop()
	}
	if m.schema != nil {
		if err := schema.CheckDisjoint(m.schema); err != nil {
			return nil, err
		}
	}

	m.exec = runtime.New(
		runtime.WithLogger(m.logger),
		runtime.WithLifecycleHooks(m.hooks),
		runtime.WithMaxHops(m.maxHops),
	)
	return m, nil
}

// Definition returns the bound definition.
func (m *Machine) Definition() *domain.Definition {
	return m.def
}

// Adapter returns the bound adapter.
func (m *Machine) Adapter() ports.Adapter {
	return m.adapter
}

// CreateActor persists a new actor in the initial state with the given context.
// It fails with *domain.ActorAlreadyExistsError when id is taken.
func (m *Machine) CreateActor(ctx context.Context, id string, data map[string]any) (*Actor, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: must not be empty", domain.ErrInvalidActorID)
	}
	if err := m.validate(data); err != nil {
		return nil, err
	}

	snap, err := m.adapter.Create(ctx, id, m.def.Initial(), domain.CloneContext(data))
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateIdentity) {
			return nil, &domain.ActorAlreadyExistsError{ID: id, Cause: err}
		}
		return nil, fmt.Errorf("create actor %q: %w", id, err)
	}

	m.logger.Info("actor created", "actor_id", id, "state", snap.State)
	return &Actor{machine: m, snap: snap}, nil
}

// GetActor loads an actor. It returns (nil, nil) when none is stored under id.
func (m *Machine) GetActor(ctx context.Context, id string) (*Actor, error) {
	snap, err := m.adapter.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load actor %q: %w", id, err)
	}
	if snap == nil {
		return nil, nil
	}
	return &Actor{machine: m, snap: snap}, nil
}

// Send loads the actor stored under id and delivers event to it.
// It fails with domain.ErrActorNotFound when there is no such actor.
func (m *Machine) Send(ctx context.Context, id, event string, payload any) (*Actor, error) {
	a, err := m.GetActor(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("send %q to %q: %w", event, id, domain.ErrActorNotFound)
	}
	return a.Send(ctx, event, payload)
}

func (m *Machine) validate(data map[string]any) error {
	if m.schema == nil {
		return nil
	}
	return schema.Validate(m.schema, data)
}

// nextTimestamp never returns a time at or before prev.
func (m *Machine) nextTimestamp(prev time.Time) time.Time {
	now := domain.Timestamp(m.now())
	if !now.After(prev) {
		return prev.Add(time.Millisecond)
	}
	return now
}

func (m *Machine) emitPersist(ctx context.Context, snap *domain.Snapshot, err error) {
	if m.hooks.OnPersist == nil {
		return
	}
	m.hooks.OnPersist(ctx, &domain.PersistEvent{
		EventBase: domain.EventBase{Timestamp: m.now(), Type: domain.EventPersisted, ActorID: snap.ID},
		State:     snap.State,
		Err:       err,
	})
}
