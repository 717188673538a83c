// Package health implements health aggregation: independently registered
// health indicators are composed into a single aggregate status.
//
// An Indicator performs one check and returns an immutable Health (a Status
// plus ordered details). A Registry holds indicators by unique name with a
// thread-safe register/unregister/snapshot API. A Composite evaluates every
// registered indicator, isolating failures and timeouts per indicator, and
// folds the results through a StatusAggregator that picks the most severe
// status present.
//
// # Basic Usage
//
//	registry := health.NewRegistry()
//	err := registry.Register("database", health.NewPingIndicator(db, "postgres"))
//	if err != nil {
//	    // a *health.DuplicateNameError means the name is taken
//	}
//
//	composite := health.NewComposite(registry, health.NewStatusAggregator())
//	result := composite.Health(ctx)
//	fmt.Println(result.Status()) // UP, DOWN, OUT_OF_SERVICE or UNKNOWN
//
// # Aggregation
//
// The default severity order is DOWN > OUT_OF_SERVICE > UP > UNKNOWN: the
// worst status present wins, and an empty registry aggregates to UNKNOWN.
// Custom statuses are ranked by the configured UnlistedPolicy; by default
// they are least severe, so an unvetted status never downgrades the
// aggregate below any configured one.
//
// # Failure Isolation
//
// A failing, panicking or slow indicator only affects its own entry: the
// composite records it as DOWN (with an "error" or "timed out" detail) and
// the remaining indicators evaluate normally. The health evaluation itself
// never returns an error.
//
// Exposure over HTTP, gRPC and the management interface lives in the
// endpoint package.
package health
