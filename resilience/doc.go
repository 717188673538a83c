// Package resilience provides resilience patterns for health checking.
//
// Health indicators probe external dependencies, so they inherit every
// failure mode of those dependencies: hangs, floods of slow calls, and
// dependencies that keep failing. The patterns here keep one misbehaving
// dependency from taking the whole health subsystem with it.
//
// # Patterns
//
//   - Circuit Breaker: stops probing a dependency that keeps failing,
//     letting it recover before the next real check.
//
//   - Rate Limiter: caps what anonymous callers of a health endpoint can
//     trigger.
//
//   - Bulkhead: bounds how many indicator checks run concurrently.
//
//   - Timeout: bounds how long a single check may take; the check keeps
//     running but the caller moves on.
//
// # Usage
//
// Each pattern is used independently:
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    MaxFailures:  5,
//	    ResetTimeout: time.Minute,
//	})
//
//	err := cb.Execute(ctx, func(ctx context.Context) error {
//	    return pingDatabase(ctx)
//	})
//
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
//	    Rate:  100, // requests per second
//	    Burst: 10,
//	})
//	if !rl.Allow() {
//	    // reject the request
//	}
package resilience
