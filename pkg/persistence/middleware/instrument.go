package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/transito/internal/logging"
	"github.com/aretw0/transito/pkg/domain"
	"github.com/aretw0/transito/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// AdapterMetrics holds the collectors fed by NewInstrumentation.
type AdapterMetrics struct {
	Duration *prometheus.HistogramVec
}

// NewAdapterMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewAdapterMetrics(reg prometheus.Registerer) *AdapterMetrics {
	m := &AdapterMetrics{
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "transito",
			Subsystem: "adapter",
			Name:      "operation_duration_seconds",
			Help:      "Duration of storage adapter operations, by operation and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.Duration)
	}
	return m
}

type instrumentation struct {
	passthrough
	metrics *AdapterMetrics
	logger  *slog.Logger
}

// NewInstrumentation creates a middleware that times every adapter call and logs failures.
// Either argument may be nil.
func NewInstrumentation(metrics *AdapterMetrics, logger *slog.Logger) Middleware {
	if logger == nil {
		logger = logging.NewNop()
	}
	return func(next ports.Adapter) ports.Adapter {
		return &instrumentation{passthrough: passthrough{next: next}, metrics: metrics, logger: logger}
	}
}

func (m *instrumentation) Load(ctx context.Context, id string) (*domain.Snapshot, error) {
	start := time.Now()
	snap, err := m.next.Load(ctx, id)
	outcome := Outcome(err)
	if err == nil && snap == nil {
		outcome = "absent"
	}
	m.observe(ctx, "load", id, outcome, start, err)
	return snap, err
}

func (m *instrumentation) Create(ctx context.Context, id, state string, data map[string]any) (*domain.Snapshot, error) {
	start := time.Now()
	snap, err := m.next.Create(ctx, id, state, data)
	m.observe(ctx, "create", id, Outcome(err), start, err)
	return snap, err
}

func (m *instrumentation) Save(ctx context.Context, snapshot *domain.Snapshot, prevUpdatedAt time.Time) (*domain.Snapshot, error) {
	start := time.Now()
	stored, err := m.next.Save(ctx, snapshot, prevUpdatedAt)
	m.observe(ctx, "save", snapshot.ID, Outcome(err), start, err)
	return stored, err
}

func (m *instrumentation) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := m.passthrough.List(ctx)
	m.observe(ctx, "list", "", Outcome(err), start, err)
	return ids, err
}

func (m *instrumentation) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := m.passthrough.Delete(ctx, id)
	m.observe(ctx, "delete", id, Outcome(err), start, err)
	return err
}

func (m *instrumentation) observe(ctx context.Context, op, id, outcome string, start time.Time, err error) {
	elapsed := time.Since(start)
	if m.metrics != nil {
		m.metrics.Duration.WithLabelValues(op, outcome).Observe(elapsed.Seconds())
	}
	switch outcome {
	case "ok", "absent":
		m.logger.DebugContext(ctx, "adapter call", "op", op, "actor_id", id, "outcome", outcome, "duration", elapsed)
	case "error":
		m.logger.ErrorContext(ctx, "adapter call failed", "op", op, "actor_id", id, "duration", elapsed, "error", err)
	default:
		m.logger.WarnContext(ctx, "adapter call rejected", "op", op, "actor_id", id, "outcome", outcome, "error", err)
	}
}

// Outcome classifies an adapter error into a metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return "conflict"
	case errors.Is(err, domain.ErrDuplicateIdentity):
		return "duplicate"
	case errors.Is(err, domain.ErrActorNotFound):
		return "not_found"
	case errors.Is(err, errors.ErrUnsupported):
		return "unsupported"
	default:
		return "error"
	}
}
