package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on run spans, node spans and their events.
const (
	AttrGraphName = attribute.Key("graph.name")
	AttrRunID     = attribute.Key("run.id")
	AttrNodeID    = attribute.Key("node.id")
	AttrNodeStep  = attribute.Key("node.step")
	AttrRouteFrom = attribute.Key("route.from")
	AttrRouteTo   = attribute.Key("route.to")
	AttrRouteKey  = attribute.Key("route.key")
	AttrAttempts  = attribute.Key("retry.attempts")
)

// Event names added to the run span as the run moves between nodes.
const (
	EventRoute    = "stategraph.route"
	EventRetry    = "stategraph.retry"
	EventFallback = "stategraph.fallback"
)

// SpanManager opens and closes the spans of a run.
// NewSpanManager traces through OpenTelemetry; NoopSpanManager{} discards.
type SpanManager interface {
	// StartRunSpan opens the span covering a whole run.
	StartRunSpan(ctx context.Context, graphName, runID string) (context.Context, trace.Span)

	// StartNodeSpan opens a child span for one node invocation.
	StartNodeSpan(ctx context.Context, nodeID string, step int) (context.Context, trace.Span)

	// EndSpanWithError sets the span status from err and ends it.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent records a named event on the span carried by ctx.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// RouteAttributes describes a resolved transition. key is omitted for
// static edges.
func RouteAttributes(from, to, key string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{AttrRouteFrom.String(from), AttrRouteTo.String(to)}
	if key != "" {
		attrs = append(attrs, AttrRouteKey.String(key))
	}
	return attrs
}

type otelSpanManager struct {
	tracer trace.Tracer
}

// NewSpanManager returns a SpanManager on the global tracer provider, as set
// by otel.SetTracerProvider. The provider is read once, here.
func NewSpanManager() SpanManager {
	return &otelSpanManager{tracer: otel.Tracer("stategraph")}
}

func (m *otelSpanManager) StartRunSpan(ctx context.Context, graphName, runID string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "stategraph.run",
		trace.WithAttributes(AttrGraphName.String(graphName), AttrRunID.String(runID)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) StartNodeSpan(ctx context.Context, nodeID string, step int) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "stategraph.node."+nodeID,
		trace.WithAttributes(AttrNodeID.String(nodeID), AttrNodeStep.Int(step)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	defer span.End()

	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddSpanEvent is a no-op when ctx carries no recording span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}
