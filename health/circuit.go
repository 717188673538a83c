package health

import (
	"context"
	"errors"

	"github.com/jonwraymond/healthops/resilience"
)

// CircuitIndicator wraps an Indicator with a circuit breaker: after
// repeated DOWN results the breaker opens and the indicator reports
// OUT_OF_SERVICE without touching the dependency, until the reset timeout
// elapses.
type CircuitIndicator struct {
	delegate Indicator
	breaker  *resilience.CircuitBreaker
}

// NewCircuitIndicator wraps delegate with the given breaker. A nil breaker
// gets the default circuit breaker configuration.
func NewCircuitIndicator(delegate Indicator, breaker *resilience.CircuitBreaker) *CircuitIndicator {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})
	}
	return &CircuitIndicator{delegate: delegate, breaker: breaker}
}

// State returns the current breaker state.
func (c *CircuitIndicator) State() resilience.State {
	return c.breaker.State()
}

// Check runs the delegate through the breaker. A DOWN result counts as a
// failure toward opening the circuit.
func (c *CircuitIndicator) Check(ctx context.Context) Health {
	var result Health
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		result = c.delegate.Check(ctx)
		if result.Status() == StatusDown {
			return ErrCheckFailed
		}
		return nil
	})

	if errors.Is(err, resilience.ErrCircuitOpen) {
		return NewHealth().OutOfService().
			WithDetail("circuit", c.breaker.State().String()).
			Build()
	}
	return result
}
