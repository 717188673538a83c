package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/healthops/health"
)

// Metrics records indicator check outcomes and the aggregate status.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly; recording is best-effort.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCheck records one indicator check with its resulting status
	// and duration.
	RecordCheck(ctx context.Context, meta CheckMeta, status health.Status, duration time.Duration)

	// RecordAggregate records the folded status of the whole system.
	RecordAggregate(ctx context.Context, status health.Status)
}

type metricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	failureCount metric.Int64Counter
	durationHist metric.Float64Histogram
	statusGauge  metric.Int64Gauge
}

// newMetrics creates a Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"health.check.total",
		metric.WithDescription("Total number of indicator checks"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	failureCount, err := meter.Int64Counter(
		"health.check.failures",
		metric.WithDescription("Total number of indicator checks that reported DOWN"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"health.check.duration_ms",
		metric.WithDescription("Indicator check duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	statusGauge, err := meter.Int64Gauge(
		"health.aggregate.status",
		metric.WithDescription("Aggregate status as a number (UP=3, UNKNOWN=2, OUT_OF_SERVICE=1, DOWN=0)"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		totalCount:   totalCount,
		failureCount: failureCount,
		durationHist: durationHist,
		statusGauge:  statusGauge,
	}, nil
}

// RecordCheck records metrics for one indicator check.
func (m *metricsImpl) RecordCheck(ctx context.Context, meta CheckMeta, status health.Status, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("check.name", meta.Name),
		attribute.String("check.status", string(status)),
	}
	if meta.Group != "" {
		attrs = append(attrs, attribute.String("check.group", meta.Group))
	}
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if status == health.StatusDown {
		m.failureCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// RecordAggregate records the folded status as a numeric gauge.
func (m *metricsImpl) RecordAggregate(ctx context.Context, status health.Status) {
	m.statusGauge.Record(ctx, statusValue(status),
		metric.WithAttributes(attribute.String("status", string(status))))
}

// statusValue maps a status onto a monotone scale so dashboards can alert
// on thresholds. Custom statuses land on the UNKNOWN value.
func statusValue(status health.Status) int64 {
	switch status {
	case health.StatusUp:
		return 3
	case health.StatusOutOfService:
		return 1
	case health.StatusDown:
		return 0
	default:
		return 2
	}
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordCheck(ctx context.Context, meta CheckMeta, status health.Status, duration time.Duration) {
}

func (m *noopMetrics) RecordAggregate(ctx context.Context, status health.Status) {}
