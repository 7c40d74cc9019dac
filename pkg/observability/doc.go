/*
Package observability turns journey lifecycle events into Prometheus metrics
and structured log records.

Both are exposed as domain.LifecycleHooks so they can be merged and handed to
journey.WithHooks:

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	hooks := metrics.Hooks().Merge(observability.LoggingHooks(logger))
*/
package observability
