package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
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

func TestRecordPlan(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordPlan(ctx, "single", "found", 12, 3*time.Millisecond)
	m.RecordPlan(ctx, "single", "no_plan", 1000, time.Millisecond)
	m.RecordPlan(ctx, "team", "found", 40, time.Millisecond)

	rm := collect(t, reader)

	req := findMetric(rm, "goap.plan.requests")
	if req == nil {
		t.Fatalf("goap.plan.requests not recorded")
	}
	sum, ok := req.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("requests data type %T", req.Data)
	}
	var found int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key("status")); ok && v.AsString() == "found" {
			found += dp.Value
		}
	}
	if found != 2 {
		t.Fatalf("found requests=%d want 2", found)
	}

	exp := findMetric(rm, "goap.plan.expanded")
	if exp == nil {
		t.Fatalf("goap.plan.expanded not recorded")
	}
	hist, ok := exp.Data.(metricdata.Histogram[int64])
	if !ok {
		t.Fatalf("expanded data type %T", exp.Data)
	}
	var total int64
	for _, dp := range hist.DataPoints {
		total += dp.Sum
	}
	if total != 1052 {
		t.Fatalf("expanded sum=%d want 1052", total)
	}

	if findMetric(rm, "goap.plan.duration") == nil {
		t.Fatalf("goap.plan.duration not recorded")
	}
}

func TestSessionsAndCompletions(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.SessionOpened(ctx)
	m.SessionOpened(ctx)
	m.SessionClosed(ctx)
	m.RecordCompletion(ctx, "timed")
	m.RecordEvent(ctx, "stale")

	rm := collect(t, reader)
	s := findMetric(rm, "goap.ws.sessions")
	if s == nil {
		t.Fatalf("sessions not recorded")
	}
	sum := s.Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
		t.Fatalf("sessions=%+v", sum.DataPoints)
	}
	if findMetric(rm, "goap.executor.completions") == nil || findMetric(rm, "goap.runner.events") == nil {
		t.Fatalf("executor/runner counters missing")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordPlan(ctx, "single", "found", 1, time.Millisecond)
	m.RecordCompletion(ctx, "instant")
	m.RecordEvent(ctx, "start")
	m.SessionOpened(ctx)
	m.SessionClosed(ctx)
}
