package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Retry outcomes reported to RecordRetry.
const (
	RetryOutcomeRetry    = "retry"
	RetryOutcomeFallback = "fallback"
)

// MetricsRecorder records stategraph metrics.
// Use NewMetricsRecorder() for OTel metrics, NewPrometheusMetrics() for a
// Prometheus registry, or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNodeExecution records one node invocation and whether it failed.
	RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error)

	// RecordGraphRun records a finished run.
	RecordGraphRun(ctx context.Context, success bool, duration time.Duration)

	// RecordTransition records a resolved edge between two nodes.
	RecordTransition(ctx context.Context, from, to string)

	// RecordRetry records a retry policy decision for a failed node; outcome
	// is RetryOutcomeRetry or RetryOutcomeFallback.
	RecordRetry(ctx context.Context, nodeID, outcome string)
}

type otelMetrics struct {
	nodeExecutions metric.Int64Counter
	nodeErrors     metric.Int64Counter
	graphRuns      metric.Int64Counter
	transitions    metric.Int64Counter
	retries        metric.Int64Counter
	nodeLatency    metric.Float64Histogram
	graphLatency   metric.Float64Histogram
}

// defaultMetrics builds the OTel instruments once per process.
var defaultMetrics = sync.OnceValues(newOtelMetrics)

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("stategraph")
	m := &otelMetrics{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.nodeExecutions, "stategraph.node.executions", "Number of node executions"},
		{&m.nodeErrors, "stategraph.node.errors", "Number of node execution errors"},
		{&m.graphRuns, "stategraph.graph.runs", "Number of graph runs"},
		{&m.transitions, "stategraph.route.transitions", "Number of resolved transitions between nodes"},
		{&m.retries, "stategraph.node.retries", "Retry policy decisions after a node failure"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", c.name, err)
		}
		*c.dst = counter
	}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&m.nodeLatency, "stategraph.node.latency_ms", "Node execution latency in milliseconds"},
		{&m.graphLatency, "stategraph.graph.latency_ms", "Graph run latency in milliseconds"},
	}
	for _, h := range histograms {
		hist, err := meter.Float64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit("ms"))
		if err != nil {
			return nil, fmt.Errorf("histogram %s: %w", h.name, err)
		}
		*h.dst = hist
	}

	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder on the global OTel meter
// provider (otel.SetMeterProvider). If the instruments cannot be created it
// logs a warning and returns NoopMetrics{}.
func NewMetricsRecorder() MetricsRecorder {
	m, err := defaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder", slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error) {
	node := metric.WithAttributes(attribute.String("node_id", nodeID))
	m.nodeExecutions.Add(ctx, 1, node)
	m.nodeLatency.Record(ctx, float64(duration.Milliseconds()), node)
	if err != nil {
		m.nodeErrors.Add(ctx, 1, node)
	}
}

func (m *otelMetrics) RecordGraphRun(ctx context.Context, success bool, duration time.Duration) {
	outcome := metric.WithAttributes(attribute.Bool("success", success))
	m.graphRuns.Add(ctx, 1, outcome)
	m.graphLatency.Record(ctx, float64(duration.Milliseconds()), outcome)
}

func (m *otelMetrics) RecordTransition(ctx context.Context, from, to string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

func (m *otelMetrics) RecordRetry(ctx context.Context, nodeID, outcome string) {
	m.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node_id", nodeID),
		attribute.String("outcome", outcome),
	))
}
