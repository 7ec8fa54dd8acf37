package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/transito/pkg/domain"
)

// Logging returns lifecycle hooks that write every event to logger.
// Transitions and persistence are logged at Info, entry actions at Debug, failures at Warn.
func Logging(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.InfoContext(ctx, "transition",
				"actor_id", e.ActorID, "from", e.From, "to", e.To, "event", e.Event, "cause", e.Cause)
		},
		OnEntry: func(ctx context.Context, e *domain.EntryEvent) {
			logger.DebugContext(ctx, "entry_start", "actor_id", e.ActorID, "state", e.State)
		},
		OnEntryResult: func(ctx context.Context, e *domain.EntryEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "entry_failed",
					"actor_id", e.ActorID, "state", e.State, "duration", e.Duration, "error", e.Err)
				return
			}
			logger.DebugContext(ctx, "entry_done", "actor_id", e.ActorID, "state", e.State, "duration", e.Duration)
		},
		OnUnhandled: func(ctx context.Context, e *domain.UnhandledEvent) {
			logger.InfoContext(ctx, "unhandled_event", "actor_id", e.ActorID, "state", e.State, "event", e.Event)
		},
		OnPersist: func(ctx context.Context, e *domain.PersistEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "persist_failed", "actor_id", e.ActorID, "state", e.State, "error", e.Err)
				return
			}
			logger.InfoContext(ctx, "persisted", "actor_id", e.ActorID, "state", e.State)
		},
	}
}
