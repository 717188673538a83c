// Package observe provides observability primitives for health checking.
//
// It is a pure instrumentation library: no evaluation, no transport, no I/O
// beyond exporter setup. Consumers wrap indicators with the Middleware or
// hook the composite's check listener.
package observe
