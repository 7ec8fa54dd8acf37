package transito

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/transito/internal/runtime"
	"github.com/aretw0/transito/pkg/domain"
)

// Actor is an immutable handle over one persisted snapshot.
// Send never mutates the receiver; it returns a new Actor.
type Actor struct {
	machine *Machine
	snap    *domain.Snapshot
}

// ID returns the actor identity.
func (a *Actor) ID() string { return a.snap.ID }

// State returns the current state name.
func (a *Actor) State() string { return a.snap.State }

// Context returns a copy of the actor's context.
func (a *Actor) Context() map[string]any { return domain.CloneContext(a.snap.Context) }

// CreatedAt returns when the actor was created.
func (a *Actor) CreatedAt() time.Time { return a.snap.CreatedAt }

// UpdatedAt returns when the actor was last persisted.
func (a *Actor) UpdatedAt() time.Time { return a.snap.UpdatedAt }

// Snapshot returns a copy of the underlying snapshot.
func (a *Actor) Snapshot() *domain.Snapshot { return a.snap.Clone() }

// Send delivers event with payload, runs any automatic transitions, and persists the result.
//
// On any failure (entry action without an error branch, cycle, schema violation, storage
// error or domain.ErrConcurrencyConflict) nothing is committed and the receiver stays valid.
func (a *Actor) Send(ctx context.Context, event string, payload any) (*Actor, error) {
	m := a.machine
	prev := a.snap
	log := m.logger.With("actor_id", prev.ID, "event", event)

	res, err := m.exec.Execute(ctx, m.def, runtime.Request{
		ActorID: prev.ID,
		State:   prev.State,
		Context: prev.Context,
		Event:   event,
		Payload: payload,
	})
	if err != nil {
		log.Warn("transition failed", "state", prev.State, "error", err)
		return nil, err
	}

	if !res.Handled {
		switch m.unhandled {
		case UnhandledReject:
			return nil, &domain.UnhandledEventError{State: prev.State, Event: event}
		case UnhandledIgnore:
			log.Debug("event ignored", "state", prev.State)
			return &Actor{machine: m, snap: prev.Clone()}, nil
		}
	}

	if err := m.validate(res.Context); err != nil {
		return nil, fmt.Errorf("context after %q in state %q: %w", event, res.State, err)
	}

	next := &domain.Snapshot{
		ID:        prev.ID,
		State:     res.State,
		Context:   res.Context,
		CreatedAt: prev.CreatedAt,
		UpdatedAt: m.nextTimestamp(prev.UpdatedAt),
	}
	stored, err := m.adapter.Save(ctx, next, prev.UpdatedAt)
	m.emitPersist(ctx, next, err)
	if err != nil {
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			log.Warn("concurrent modification", "state", prev.State)
		}
		return nil, fmt.Errorf("persist actor %q: %w", prev.ID, err)
	}

	log.Info("transition persisted", "from", prev.State, "to", stored.State, "path", res.Path)
	return &Actor{machine: m, snap: stored}, nil
}
