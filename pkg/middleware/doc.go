// Package middleware provides navigation middleware for observability.
//
// # Prometheus Metrics
//
// Prometheus returns a collector that is also a navigation.Middleware:
//
//	metrics := middleware.Prometheus(middleware.WithRegistry(reg))
//	ctrl := navigation.NewController(table, hist,
//	    navigation.WithMiddleware(metrics),
//	)
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// Metrics collected (default namespace "navroute"):
//   - navroute_navigations_total: transitions by route, mode and status
//   - navroute_navigation_duration_seconds: transition duration by mode
//   - navroute_navigation_errors_total: failed transitions by mode and error type
//   - navroute_history_position: history index of the last committed state
//   - navroute_active_sessions: connected remote history sessions
//
// Route labels use the route name, "unmatched" or "none", never the raw
// path, so cardinality is bounded by the route table.
//
// # OpenTelemetry
//
// OpenTelemetry starts one span per transition on the global tracer
// provider, named "navroute <mode>", with the requested location, the
// matched route and the resulting status as attributes.
//
//	navigation.WithMiddleware(middleware.OpenTelemetry(
//	    middleware.WithTracerName("my-app"),
//	))
package middleware
