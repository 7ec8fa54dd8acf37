package observability

import (
	"context"

	"github.com/aretw0/transito/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "transito"

// Metrics holds the Prometheus collectors fed by the lifecycle hooks.
type Metrics struct {
	Transitions   *prometheus.CounterVec
	EntryDuration *prometheus.HistogramVec
	Unhandled     *prometheus.CounterVec
	Persisted     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Total number of transitions taken, by cause.",
		}, []string{"from", "to", "cause"}),
		EntryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "entry_duration_seconds",
			Help:      "Duration of entry actions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"state", "outcome"}),
		Unhandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unhandled_events_total",
			Help:      "Events delivered to a state that does not handle them.",
		}, []string{"state", "event"}),
		Persisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persisted_snapshots_total",
			Help:      "Snapshot writes, by outcome.",
		}, []string{"state", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.Transitions, m.EntryDuration, m.Unhandled, m.Persisted)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(e.From, e.To, e.Cause).Inc()
		},
		OnEntryResult: func(_ context.Context, e *domain.EntryEvent) {
			m.EntryDuration.WithLabelValues(e.State, outcome(e.Err)).Observe(e.Duration.Seconds())
		},
		OnUnhandled: func(_ context.Context, e *domain.UnhandledEvent) {
			m.Unhandled.WithLabelValues(e.State, e.Event).Inc()
		},
		OnPersist: func(_ context.Context, e *domain.PersistEvent) {
			m.Persisted.WithLabelValues(e.State, outcome(e.Err)).Inc()
		},
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
