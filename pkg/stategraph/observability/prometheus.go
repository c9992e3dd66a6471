package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics implements MetricsRecorder with Prometheus collectors.
// Collectors are registered on the registerer passed to NewPrometheusMetrics.
type PrometheusMetrics struct {
	nodeExecutions *prometheus.CounterVec
	nodeErrors     *prometheus.CounterVec
	nodeDuration   *prometheus.HistogramVec
	graphRuns      *prometheus.CounterVec
	graphDuration  *prometheus.HistogramVec
	transitions    *prometheus.CounterVec
	retries        *prometheus.CounterVec
}

// Compile-time interface check.
var _ MetricsRecorder = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates the collectors and registers them on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &PrometheusMetrics{
		nodeExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stategraph_node_executions_total",
				Help: "Total number of node executions",
			},
			[]string{"node_id"},
		),
		nodeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stategraph_node_errors_total",
				Help: "Total number of failed node executions",
			},
			[]string{"node_id"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stategraph_node_duration_seconds",
				Help:    "Duration of node executions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"node_id"},
		),
		graphRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stategraph_graph_runs_total",
				Help: "Total number of graph runs",
			},
			[]string{"success"},
		),
		graphDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stategraph_graph_duration_seconds",
				Help:    "Duration of graph runs",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"success"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stategraph_transitions_total",
				Help: "Total number of resolved transitions",
			},
			[]string{"from", "to"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stategraph_retries_total",
				Help: "Retry policy decisions after node failures",
			},
			[]string{"node_id", "outcome"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.nodeExecutions, m.nodeErrors, m.nodeDuration,
		m.graphRuns, m.graphDuration, m.transitions, m.retries,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordNodeExecution records a node execution.
func (m *PrometheusMetrics) RecordNodeExecution(_ context.Context, nodeID string, duration time.Duration, err error) {
	m.nodeExecutions.WithLabelValues(nodeID).Inc()
	m.nodeDuration.WithLabelValues(nodeID).Observe(duration.Seconds())
	if err != nil {
		m.nodeErrors.WithLabelValues(nodeID).Inc()
	}
}

// RecordGraphRun records a graph run.
func (m *PrometheusMetrics) RecordGraphRun(_ context.Context, success bool, duration time.Duration) {
	label := "false"
	if success {
		label = "true"
	}
	m.graphRuns.WithLabelValues(label).Inc()
	m.graphDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordTransition records a resolved edge.
func (m *PrometheusMetrics) RecordTransition(_ context.Context, from, to string) {
	m.transitions.WithLabelValues(from, to).Inc()
}

// RecordRetry records a retry or fallback decision.
func (m *PrometheusMetrics) RecordRetry(_ context.Context, nodeID, outcome string) {
	m.retries.WithLabelValues(nodeID, outcome).Inc()
}
