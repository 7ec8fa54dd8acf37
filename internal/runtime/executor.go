package runtime

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"github.com/aretw0/transito/internal/logging"
	"github.com/aretw0/transito/pkg/domain"
)

// DefaultMaxHops bounds the states a single event may enter, its own target included.
const DefaultMaxHops = 64

// Executor computes the (state, context) an event leads to. It never touches storage.
type Executor struct {
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	maxHops int
	now     func() time.Time
}

// Option configures the Executor.
type Option func(*Executor)

// WithLogger sets the logger used for hop tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Executor) {
		e.hooks = hooks
	}
}

// WithMaxHops overrides DefaultMaxHops. Values below 1 are ignored.
func WithMaxHops(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxHops = n
		}
	}
}

// New creates an Executor.
func New(opts ...Option) *Executor {
	e := &Executor{
		logger:  logging.NewNop(),
		maxHops: DefaultMaxHops,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Request is the input of one Execute call.
type Request struct {
	ActorID string
	State   string
	Context map[string]any
	Event   string
	Payload any
}

// Result is where an event settled.
type Result struct {
	State   string
	Context map[string]any
	// Handled is false when the current state declares no transition for the event.
	Handled bool
	// Path lists every state entered, in order.
	Path []string
}

type visit struct {
	state string
	ctx   map[string]any
}

// Execute delivers req.Event to req.State and runs the settle loop.
//
// The returned context is always a fresh map. On error nothing of the partial run is returned.
func (e *Executor) Execute(ctx context.Context, def *domain.Definition, req Request) (Result, error) {
	t, ok := def.Transition(req.State, req.Event)
	if !ok {
		e.emitUnhandled(ctx, req)
		return Result{State: req.State, Context: domain.CloneContext(req.Context)}, nil
	}

	log := e.logger.With("event", req.Event)
	if req.ActorID != "" {
		log = log.With("actor_id", req.ActorID)
	}

	current := domain.CloneContext(req.Context)
	from, cause := req.State, "event"
	next := t.Target
	var path []string
	var seen []visit

	for hops := 0; ; hops++ {
		if hops >= e.maxHops {
			return Result{}, &domain.MachineCycleError{Path: path, Hops: e.maxHops}
		}
		for _, v := range seen {
			if v.state == next && reflect.DeepEqual(v.ctx, current) {
				return Result{}, &domain.MachineCycleError{Path: append(path, next)}
			}
		}
		seen = append(seen, visit{state: next, ctx: current})
		path = append(path, next)

		e.emitTransition(ctx, req, from, next, cause)
		log.Debug("entered state", "from", from, "to", next, "cause", cause, "hop", hops)

		node, _ := def.Node(next)
		if node.Entry == nil {
			return Result{State: next, Context: current, Handled: true, Path: path}, nil
		}

		out, err := e.runEntry(ctx, req, next, node.Entry, current)
		if err == nil {
			current = out
			if node.OnSuccess == nil {
				return Result{State: next, Context: current, Handled: true, Path: path}, nil
			}
			from, cause, next = next, "success", node.OnSuccess.Target
			continue
		}

		if node.OnError == nil {
			log.Debug("entry action failed", "state", next, "error", err)
			return Result{}, &domain.ActionError{State: next, Err: err}
		}
		log.Debug("entry action failed, taking error branch", "state", next, "to", node.OnError.Target, "error", err)
		from, cause, next = next, "error", node.OnError.Target
	}
}

// runEntry invokes action on a private copy of current. A done ctx is a failure.
func (e *Executor) runEntry(ctx context.Context, req Request, state string, action domain.Action, current map[string]any) (map[string]any, error) {
	e.emitEntry(ctx, req, state)
	start := e.now()

	var (
		out map[string]any
		err error
	)
	if err = ctx.Err(); err == nil {
		out, err = action(ctx, domain.CloneContext(current), req.Payload)
		if err == nil {
			err = ctx.Err()
		}
	}

	e.emitEntryResult(ctx, req, state, e.now().Sub(start), err)
	if err != nil {
		return nil, err
	}
	return domain.CloneContext(out), nil
}

func (e *Executor) base(typ domain.EventType, req Request) domain.EventBase {
	return domain.EventBase{Timestamp: e.now(), Type: typ, ActorID: req.ActorID}
}

func (e *Executor) emitTransition(ctx context.Context, req Request, from, to, cause string) {
	if e.hooks.OnTransition == nil {
		return
	}
	e.hooks.OnTransition(ctx, &domain.TransitionEvent{
		EventBase: e.base(domain.EventTransition, req),
		From:      from,
		To:        to,
		Event:     req.Event,
		Cause:     cause,
	})
}

func (e *Executor) emitEntry(ctx context.Context, req Request, state string) {
	if e.hooks.OnEntry == nil {
		return
	}
	e.hooks.OnEntry(ctx, &domain.EntryEvent{
		EventBase: e.base(domain.EventEntryStart, req),
		State:     state,
	})
}

func (e *Executor) emitEntryResult(ctx context.Context, req Request, state string, d time.Duration, err error) {
	if e.hooks.OnEntryResult == nil {
		return
	}
	e.hooks.OnEntryResult(ctx, &domain.EntryEvent{
		EventBase: e.base(domain.EventEntryResult, req),
		State:     state,
		Duration:  d,
		Err:       err,
	})
}

func (e *Executor) emitUnhandled(ctx context.Context, req Request) {
	if e.hooks.OnUnhandled == nil {
		return
	}
	e.hooks.OnUnhandled(ctx, &domain.UnhandledEvent{
		EventBase: e.base(domain.EventUnhandled, req),
		State:     req.State,
		Event:     req.Event,
	})
}
