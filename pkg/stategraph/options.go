package stategraph

import (
	"log/slog"

	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
)

// DefaultMaxSteps is the step ceiling used when WithMaxSteps is not given.
const DefaultMaxSteps = 100

// DefaultErrorsField is the record field node failures are appended to.
const DefaultErrorsField = "errors"

// runConfig holds configuration for graph execution.
type runConfig struct {
	maxSteps    int
	hooks       []Hook
	runID       string
	errorsField string

	// Observability
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool
}

// defaultRunConfig returns the default execution configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		maxSteps:    DefaultMaxSteps,
		errorsField: DefaultErrorsField,
		metrics:     observability.NoopMetrics{},
		spans:       observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxSteps sets the maximum number of node invocations.
// Default: 100
//
// This prevents cycles from hanging forever. If a run would invoke a node
// after reaching this limit, it fails with *CycleExceededError.
//
// Example:
//
//	result, err := compiled.Run(ctx, state, stategraph.WithMaxSteps(20))
func WithMaxSteps(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxSteps = n
		}
	}
}

// WithHooks appends observation hooks. Hooks run in order, before and after
// every node invocation.
func WithHooks(hooks ...Hook) RunOption {
	return func(c *runConfig) {
		for _, h := range hooks {
			if h != nil {
				c.hooks = append(c.hooks, h)
			}
		}
	}
}

// WithRunID sets the run identifier, overriding the Context's.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		c.runID = id
	}
}

// WithErrorsField changes the record field node failures are appended to.
func WithErrorsField(name string) RunOption {
	return func(c *runConfig) {
		if name != "" {
			c.errorsField = name
		}
	}
}

// WithObservabilityLogger sets the logger for run and node lifecycle events.
// Nil disables lifecycle logging.
func WithObservabilityLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics using the global meter provider.
func WithMetrics(enabled bool) RunOption {
	return func(c *runConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithMetricsRecorder sets a specific metrics recorder, such as
// observability.NewPrometheusMetrics.
func WithMetricsRecorder(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry spans for the run and each node.
func WithTracing(enabled bool) RunOption {
	return func(c *runConfig) {
		c.tracingEnabled = enabled
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}
