// Package endpoint exposes composite health over multiple transports.
//
// Every adapter wraps the same invocation core, the Evaluator (satisfied
// by health.Composite), and consults the auth.Interceptor before touching
// any indicator. Access levels shape the response uniformly across
// transports: NONE is rejected outright, RESTRICTED sees the aggregate
// status only, FULL sees per-component details.
//
// Adapters:
//
//   - HTTPHandler serves JSON over gorilla/mux routes: a links discovery
//     root, the aggregate health resource, and per-component resources.
//     The status-to-HTTP-code translation is a configurable table
//     (StatusCodeMapper).
//   - GRPCServer implements the standard grpc.health.v1 protocol (Check
//     and Watch) over the same evaluator.
//   - ManagementServer registers Beans, typed-attribute views keyed by
//     ObjectName, for in-process management access.
//   - CachedEvaluator decorates an Evaluator with a background-refreshed
//     snapshot so request paths never block on indicator execution.
//
// The exposed operations are described by an explicit Operation table
// rather than discovered reflectively; the links document is derived from
// the same table, filtered by the caller's access level.
package endpoint
