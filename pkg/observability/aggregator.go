package observability

import (
	"context"

	"github.com/aretw0/transito/pkg/domain"
)

// Aggregate combines several hook sets into one. Callbacks run in argument order.
func Aggregate(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hooks {
		out.OnTransition = chain(out.OnTransition, h.OnTransition)
		out.OnEntry = chain(out.OnEntry, h.OnEntry)
		out.OnEntryResult = chain(out.OnEntryResult, h.OnEntryResult)
		out.OnUnhandled = chain(out.OnUnhandled, h.OnUnhandled)
		out.OnPersist = chain(out.OnPersist, h.OnPersist)
	}
	return out
}

func chain[E any](first, second func(context.Context, E)) func(context.Context, E) {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	}
	return func(ctx context.Context, e E) {
		first(ctx, e)
		second(ctx, e)
	}
}
