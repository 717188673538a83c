package observe

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jonwraymond/healthops/health"
)

func newTestMetrics(t *testing.T) (*metricsImpl, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := newMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("newMetrics() error = %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestMetrics_RecordCheck(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	meta := CheckMeta{Name: "db", Group: "datastore"}
	m.RecordCheck(ctx, meta, health.StatusUp, 40*time.Millisecond)
	m.RecordCheck(ctx, meta, health.StatusUp, 60*time.Millisecond)

	rm := collect(t, reader)

	total := findMetric(rm, "health.check.total")
	if total == nil {
		t.Fatal("health.check.total not found")
	}
	sum, ok := total.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("total data type = %T", total.Data)
	}
	if len(sum.DataPoints) == 0 || sum.DataPoints[0].Value != 2 {
		t.Errorf("total = %+v, want 2", sum.DataPoints)
	}

	var foundName, foundGroup, foundStatus bool
	for iter := sum.DataPoints[0].Attributes.Iter(); iter.Next(); {
		kv := iter.Attribute()
		switch string(kv.Key) {
		case "check.name":
			foundName = kv.Value.AsString() == "db"
		case "check.group":
			foundGroup = kv.Value.AsString() == "datastore"
		case "check.status":
			foundStatus = kv.Value.AsString() == "UP"
		}
	}
	if !foundName || !foundGroup || !foundStatus {
		t.Errorf("attributes incomplete: name=%v group=%v status=%v", foundName, foundGroup, foundStatus)
	}

	hist := findMetric(rm, "health.check.duration_ms")
	if hist == nil {
		t.Fatal("health.check.duration_ms not found")
	}
	histData, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("histogram data type = %T", hist.Data)
	}
	if len(histData.DataPoints) == 0 {
		t.Fatal("no histogram data points")
	}
	if got := histData.DataPoints[0].Sum; got < 90 || got > 110 {
		t.Errorf("duration sum = %f, want ~100", got)
	}
}

func TestMetrics_FailuresCountOnlyDown(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCheck(ctx, CheckMeta{Name: "db"}, health.StatusUp, time.Millisecond)
	m.RecordCheck(ctx, CheckMeta{Name: "db"}, health.StatusOutOfService, time.Millisecond)
	m.RecordCheck(ctx, CheckMeta{Name: "db"}, health.StatusDown, time.Millisecond)

	rm := collect(t, reader)
	failures := findMetric(rm, "health.check.failures")
	if failures == nil {
		t.Fatal("health.check.failures not found")
	}
	sum, ok := failures.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("failures data type = %T", failures.Data)
	}
	var count int64
	for _, dp := range sum.DataPoints {
		count += dp.Value
	}
	if count != 1 {
		t.Errorf("failures = %d, want 1 (only the DOWN check)", count)
	}
}

func TestMetrics_AggregateGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAggregate(ctx, health.StatusDown)

	rm := collect(t, reader)
	gauge := findMetric(rm, "health.aggregate.status")
	if gauge == nil {
		t.Fatal("health.aggregate.status not found")
	}
	data, ok := gauge.Data.(metricdata.Gauge[int64])
	if !ok {
		t.Fatalf("gauge data type = %T", gauge.Data)
	}
	if len(data.DataPoints) == 0 || data.DataPoints[0].Value != 0 {
		t.Errorf("gauge = %+v, want 0 for DOWN", data.DataPoints)
	}
}

func TestStatusValue(t *testing.T) {
	tests := []struct {
		status health.Status
		want   int64
	}{
		{health.StatusUp, 3},
		{health.StatusUnknown, 2},
		{health.StatusOutOfService, 1},
		{health.StatusDown, 0},
		{health.Status("FATAL"), 2},
	}
	for _, tt := range tests {
		if got := statusValue(tt.status); got != tt.want {
			t.Errorf("statusValue(%s) = %d, want %d", tt.status, got, tt.want)
		}
	}
}
