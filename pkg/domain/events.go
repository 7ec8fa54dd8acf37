package domain

import (
	"context"
	"time"
)

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventTransition  EventType = "transition"
	EventEntryStart  EventType = "entry_start"
	EventEntryResult EventType = "entry_result"
	EventUnhandled   EventType = "unhandled"
	EventPersisted   EventType = "persisted"
)

// EventBase contains common fields for all lifecycle events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	ActorID   string    `json:"actor_id,omitempty"`
}

// TransitionEvent is emitted for every edge taken, external or automatic.
type TransitionEvent struct {
	EventBase
	From  string `json:"from"`
	To    string `json:"to"`
	Event string `json:"event"`
	// Cause is "event", "success" or "error".
	Cause string `json:"cause"`
}

// EntryEvent is emitted around the execution of an entry action.
type EntryEvent struct {
	EventBase
	State    string        `json:"state"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// UnhandledEvent is emitted when an event is delivered to a state that does not handle it.
type UnhandledEvent struct {
	EventBase
	State string `json:"state"`
	Event string `json:"event"`
}

// PersistEvent is emitted after the adapter accepted (or refused) a new snapshot.
type PersistEvent struct {
	EventBase
	State string `json:"state"`
	Err   error  `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability. Nil callbacks are skipped.
type LifecycleHooks struct {
	OnTransition  func(context.Context, *TransitionEvent)
	OnEntry       func(context.Context, *EntryEvent)
	OnEntryResult func(context.Context, *EntryEvent)
	OnUnhandled   func(context.Context, *UnhandledEvent)
	OnPersist     func(context.Context, *PersistEvent)
}
