package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidDefinition is matched by every *DefinitionError.
	ErrInvalidDefinition = errors.New("invalid machine definition")

	// ErrActorAlreadyExists is matched by *ActorAlreadyExistsError.
	ErrActorAlreadyExists = errors.New("actor already exists")

	// ErrActorNotFound is returned by write paths that target an identity with no persisted snapshot.
	// Read paths return an absent value instead.
	ErrActorNotFound = errors.New("actor not found")

	// ErrMachineCycle is matched by every *MachineCycleError.
	ErrMachineCycle = errors.New("machine cycle detected")

	// ErrConcurrencyConflict is returned by Adapter.Save when the stored snapshot changed
	// since the caller loaded it.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrDuplicateIdentity is returned by Adapter.Create when the identity is already taken.
	// The bound machine translates it into *ActorAlreadyExistsError.
	ErrDuplicateIdentity = errors.New("duplicate identity")

	// ErrUnhandledEvent is matched by *UnhandledEventError.
	ErrUnhandledEvent = errors.New("unhandled event")

	// ErrInvalidActorID is returned for an empty actor identity.
	ErrInvalidActorID = errors.New("invalid actor id")

	// ErrConfiguration signals a binding that can never work (e.g. context fields colliding with system fields).
	ErrConfiguration = errors.New("invalid configuration")
)

// DefinitionError aggregates every problem found while validating a machine definition.
type DefinitionError struct {
	Problems []string
}

func (e *DefinitionError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid machine definition: " + e.Problems[0]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "invalid machine definition: %d problems:", len(e.Problems))
	for i, p := range e.Problems {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, p)
	}
	return b.String()
}

func (e *DefinitionError) Unwrap() error { return ErrInvalidDefinition }

// ActorAlreadyExistsError is returned when creating an actor whose identity is taken.
type ActorAlreadyExistsError struct {
	ID    string
	Cause error
}

func (e *ActorAlreadyExistsError) Error() string {
	return fmt.Sprintf("actor with id %q already exists", e.ID)
}

func (e *ActorAlreadyExistsError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrActorAlreadyExists}
	}
	return []error{ErrActorAlreadyExists, e.Cause}
}

// MachineCycleError reports automatic transitions that never settle.
type MachineCycleError struct {
	Path []string
	// Hops is set when the runtime hop bound was exceeded rather than a repeat detected.
	Hops int
}

func (e *MachineCycleError) Error() string {
	if e.Hops > 0 {
		return fmt.Sprintf("machine cycle detected: settle loop exceeded %d hops (%s)", e.Hops, strings.Join(e.Path, " -> "))
	}
	return fmt.Sprintf("machine cycle detected: %s", strings.Join(e.Path, " -> "))
}

func (e *MachineCycleError) Unwrap() error { return ErrMachineCycle }

// ActionError wraps the failure of an entry action on a state that declares no OnError.
type ActionError struct {
	State string
	Err   error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("entry action of state %q failed: %v", e.State, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// UnhandledEventError is returned when the machine rejects events the current state does not handle.
type UnhandledEventError struct {
	State string
	Event string
}

func (e *UnhandledEventError) Error() string {
	return fmt.Sprintf("event %q is not handled in state %q", e.Event, e.State)
}

func (e *UnhandledEventError) Unwrap() error { return ErrUnhandledEvent }
