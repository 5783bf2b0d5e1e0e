// Package observe holds the OpenTelemetry instruments recorded by the
// planning service and the tick runner.
//
// Tests should build Metrics with NewMetrics over their own MeterProvider; the
// commands install a Prometheus-backed provider through InitProvider.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "hexplan.ai/goap"

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	// PlanRequests counts searches by attribute.String("status", found|no_plan|error)
	// and attribute.String("kind", single|team).
	PlanRequests metric.Int64Counter

	// PlanExpanded records nodes popped per search.
	PlanExpanded metric.Int64Histogram

	PlanDuration metric.Float64Histogram

	// ExecutorCompletions counts completed runtime actions by attribute.String("kind", instant|timed).
	ExecutorCompletions metric.Int64Counter

	// RunnerEvents counts runner events by attribute.String("event", ...).
	RunnerEvents metric.Int64Counter

	WSSessions metric.Int64UpDownCounter
}

var expandedBuckets = []float64{1, 10, 50, 100, 500, 1000, 5000, 20000, 100000}

var durationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.PlanRequests, err = m.Int64Counter("goap.plan.requests",
		metric.WithDescription("Planner searches by kind and outcome."),
	); err != nil {
		return nil, err
	}
	if met.PlanExpanded, err = m.Int64Histogram("goap.plan.expanded",
		metric.WithDescription("Search nodes popped per planner call."),
		metric.WithExplicitBucketBoundaries(expandedBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PlanDuration, err = m.Float64Histogram("goap.plan.duration",
		metric.WithDescription("Wall time of planner calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ExecutorCompletions, err = m.Int64Counter("goap.executor.completions",
		metric.WithDescription("Runtime actions that completed and applied their effects."),
	); err != nil {
		return nil, err
	}
	if met.RunnerEvents, err = m.Int64Counter("goap.runner.events",
		metric.WithDescription("Tick runner lifecycle events by type."),
	); err != nil {
		return nil, err
	}
	if met.WSSessions, err = m.Int64UpDownCounter("goap.ws.sessions",
		metric.WithDescription("Open websocket planning sessions."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordPlan records one search outcome.
func (m *Metrics) RecordPlan(ctx context.Context, kind, status string, expanded int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PlanRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
	m.PlanExpanded.Record(ctx, int64(expanded), metric.WithAttributes(attribute.String("kind", kind)))
	m.PlanDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) RecordCompletion(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.ExecutorCompletions.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) RecordEvent(ctx context.Context, event string) {
	if m == nil {
		return
	}
	m.RunnerEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}

func (m *Metrics) SessionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.WSSessions.Add(ctx, 1)
}

func (m *Metrics) SessionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.WSSessions.Add(ctx, -1)
}
