package observe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/healthops/health"
)

// Middleware decorates indicator execution with observability.
//
// Contract:
//   - Concurrency: WrapIndicator returns an indicator safe for concurrent use
//     when the wrapped indicator is.
//   - Context: propagates context through tracing spans.
//   - Errors: the health result of the wrapped indicator passes through
//     unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware from the given telemetry components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// WrapIndicator decorates an indicator so each check runs inside a span, is
// counted and timed, and logs its outcome.
func (m *Middleware) WrapIndicator(meta CheckMeta, indicator health.Indicator) health.Indicator {
	return health.IndicatorFunc(func(ctx context.Context) health.Health {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		result := indicator.Check(ctx)

		duration := time.Since(start)
		m.tracer.EndSpan(span, checkError(result))
		m.metrics.RecordCheck(ctx, meta, result.Status(), duration)

		logger := m.logger.WithComponent(meta.Name)
		fields := []Field{
			{Key: "status", Value: string(result.Status())},
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if result.Status() == health.StatusDown {
			logger.Warn(ctx, "health check failed", fields...)
		} else {
			logger.Debug(ctx, "health check completed", fields...)
		}

		return result
	})
}

// Listener returns a composite check listener recording metrics and logs
// for checks that were not individually wrapped.
func (m *Middleware) Listener() health.CheckListener {
	return func(name string, result health.Health, elapsed time.Duration) {
		ctx := context.Background()
		meta := CheckMeta{Name: name}
		m.metrics.RecordCheck(ctx, meta, result.Status(), elapsed)
		if result.Status() == health.StatusDown {
			m.logger.WithComponent(name).Warn(ctx, "health check failed",
				Field{Key: "status", Value: string(result.Status())},
				Field{Key: "duration_ms", Value: float64(elapsed.Milliseconds())},
			)
		}
	}
}

// AggregateListener returns a composite hook exporting the folded status
// after each evaluation.
func (m *Middleware) AggregateListener() health.AggregateListener {
	return func(result health.CompositeHealth) {
		m.ObserveAggregate(context.Background(), result.Status())
	}
}

// ObserveAggregate records the folded status and logs transitions at info.
func (m *Middleware) ObserveAggregate(ctx context.Context, status health.Status) {
	m.metrics.RecordAggregate(ctx, status)
	m.logger.Info(ctx, "aggregate health evaluated",
		Field{Key: "status", Value: string(status)})
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, fmt.Errorf("observe: create metrics: %w", err)
	}

	return NewMiddleware(newTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// checkError derives an error for span status from a health result. A DOWN
// result carries its "error" detail when present.
func checkError(h health.Health) error {
	if h.Status() != health.StatusDown {
		return nil
	}
	if v, ok := h.Detail("error"); ok {
		if s, ok := v.(string); ok && s != "" {
			return errors.New(s)
		}
	}
	return errors.New("health check reported DOWN")
}
