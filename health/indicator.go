package health

import "context"

// Indicator performs one health check and reports the result.
//
// Contract:
//   - Expected failures of the monitored resource must not escape: catch
//     them and return a DOWN health with an "error" detail.
//   - Unexpected panics may escape; the composite evaluator isolates them
//     and records the indicator as DOWN without affecting siblings.
//   - Check must honor ctx cancellation and deadlines where practical.
type Indicator interface {
	// Check performs the health check and returns the result.
	Check(ctx context.Context) Health
}

// IndicatorFunc adapts an ordinary function to the Indicator interface.
type IndicatorFunc func(ctx context.Context) Health

// Check performs the health check by calling the function.
func (f IndicatorFunc) Check(ctx context.Context) Health {
	return f(ctx)
}

// StaticIndicator always reports the same health. Useful for marking a
// component out of service or as a placeholder during startup.
type StaticIndicator struct {
	health Health
}

// NewStaticIndicator creates an indicator that always returns h.
func NewStaticIndicator(h Health) *StaticIndicator {
	return &StaticIndicator{health: h}
}

// Check returns the fixed health.
func (s *StaticIndicator) Check(_ context.Context) Health {
	return s.health
}
