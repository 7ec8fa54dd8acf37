/*
Package observability provides lifecycle hooks for monitoring transito machines.

Metrics records Prometheus counters and histograms for transitions, entry actions,
unhandled events and persistence. Logging writes the same events to a *slog.Logger.
Aggregate merges several domain.LifecycleHooks so both can be installed at once:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	machine, err := transito.Bind(def, adapter, transito.WithLifecycleHooks(
		observability.Aggregate(metrics.Hooks(), observability.Logging(logger)),
	))
*/
package observability
