// Package observability provides production-grade observability features
// for stategraph: structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry or Prometheus
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds stategraph context to a logger.
// Returns a new logger with run_id, node_id, and step fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "run-123", "search", 2)
//	enriched.Info("doing work") // includes run_id, node_id, step
func EnrichLogger(logger *slog.Logger, runID, nodeID string, step int) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("node_id", nodeID),
		slog.Int("step", step),
	)
}

// LogRunStart logs the start of a graph run.
func LogRunStart(logger *slog.Logger, runID string) {
	if logger == nil {
		return
	}
	logger.Info("graph run starting",
		slog.String("run_id", runID),
	)
}

// LogRunComplete logs successful graph run completion.
func LogRunComplete(logger *slog.Logger, runID string, durationMs float64, steps int) {
	if logger == nil {
		return
	}
	logger.Info("graph run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("steps", steps),
	)
}

// LogRunError logs graph run failure.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, lastNode string) {
	if logger == nil {
		return
	}
	logger.Error("graph run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_node", lastNode),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, nodeID string, step int) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node_id", nodeID),
		slog.Int("step", step),
	)
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeError logs a node failure. Node failures are recoverable, so the
// level is Warn; the router decides what happens next.
func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogRoute logs a resolved transition.
func LogRoute(logger *slog.Logger, from, to, key string) {
	if logger == nil {
		return
	}
	attrs := []any{
		slog.String("from", from),
		slog.String("to", to),
	}
	if key != "" {
		attrs = append(attrs, slog.String("route_key", key))
	}
	logger.Debug("route resolved", attrs...)
}

// The helpers below take a node's own logger (Context.Logger), which already
// carries run_id, node_id and step.

// LogRetry logs a retry decision after a failed attempt.
func LogRetry(nodeLogger *slog.Logger, attempt, maxRetries int, target string) {
	if nodeLogger == nil {
		return
	}
	nodeLogger.Info("retrying node",
		slog.Int("attempt", attempt),
		slog.Int("max_retries", maxRetries),
		slog.String("target", target),
	)
}

// LogFallback logs that retries are exhausted and the fallback path is taken.
func LogFallback(nodeLogger *slog.Logger, attempts int, target string) {
	if nodeLogger == nil {
		return
	}
	nodeLogger.Warn("retries exhausted, taking fallback",
		slog.Int("attempts", attempts),
		slog.String("target", target),
	)
}

// LogHookError logs a recovered hook panic. It does not fail the run.
func LogHookError(nodeLogger *slog.Logger, event string, err error) {
	if nodeLogger == nil {
		return
	}
	nodeLogger.Error("hook failed",
		slog.String("event", event),
		slog.String("error", err.Error()),
	)
}

// LogUndeclaredFields logs writes to fields an open schema does not declare.
func LogUndeclaredFields(nodeLogger *slog.Logger, fields []string) {
	if nodeLogger == nil || len(fields) == 0 {
		return
	}
	nodeLogger.Debug("node wrote undeclared fields", slog.Any("fields", fields))
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
