package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTracingTest creates a test tracer provider with an in-memory span recorder.
func setupTracingTest(t *testing.T) (*tracetest.InMemoryExporter, func()) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)

	// Save the original provider
	originalProvider := otel.GetTracerProvider()

	// Set test provider
	otel.SetTracerProvider(tp)

	cleanup := func() {
		otel.SetTracerProvider(originalProvider)
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	}

	return exporter, cleanup
}

func attrString(attrs []attribute.KeyValue, key string) string {
	for _, attr := range attrs {
		if string(attr.Key) == key {
			return attr.Value.Emit()
		}
	}
	return ""
}

func TestSpanManager_StartRunSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()
	ctx := context.Background()
	newCtx, span := sm.StartRunSpan(ctx, "research", "run-123")
	require.NotNil(t, span)
	assert.NotEqual(t, ctx, newCtx)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "stategraph.run", spans[0].Name)
	assert.Equal(t, "research", attrString(spans[0].Attributes, "graph.name"))
	assert.Equal(t, "run-123", attrString(spans[0].Attributes, "run.id"))
}

func TestSpanManager_StartNodeSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	t.Run("names span after node and records step", func(t *testing.T) {
		_, span := sm.StartNodeSpan(context.Background(), "search", 3)
		span.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, "stategraph.node.search", spans[0].Name)
		assert.Equal(t, "search", attrString(spans[0].Attributes, "node.id"))
		assert.Equal(t, "3", attrString(spans[0].Attributes, "node.step"))
	})

	t.Run("child spans have correct parent", func(t *testing.T) {
		exporter.Reset()

		ctx, runSpan := sm.StartRunSpan(context.Background(), "graph", "run-1")
		_, nodeSpan := sm.StartNodeSpan(ctx, "analyze", 1)
		nodeSpan.End()
		runSpan.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 2)

		var nodeSpanData *tracetest.SpanStub
		for i := range spans {
			if spans[i].Name == "stategraph.node.analyze" {
				nodeSpanData = &spans[i]
			}
		}
		require.NotNil(t, nodeSpanData)
		assert.True(t, nodeSpanData.Parent.IsValid())
	})
}

func TestSpanManager_EndSpanWithError(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	t.Run("sets OK status for nil error", func(t *testing.T) {
		_, span := sm.StartRunSpan(context.Background(), "test", "run-1")
		sm.EndSpanWithError(span, nil)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Ok, spans[0].Status.Code)
	})

	t.Run("sets Error status and records exception", func(t *testing.T) {
		exporter.Reset()

		_, span := sm.StartRunSpan(context.Background(), "test", "run-2")
		sm.EndSpanWithError(span, errors.New("something went wrong"))

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status.Code)
		assert.Equal(t, "something went wrong", spans[0].Status.Description)

		found := false
		for _, event := range spans[0].Events {
			if event.Name == "exception" {
				found = true
			}
		}
		assert.True(t, found, "Expected exception event")
	})

	t.Run("nil span does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			sm.EndSpanWithError(nil, errors.New("test"))
		})
	})
}

func TestSpanManager_AddSpanEvent(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	t.Run("adds event to current span", func(t *testing.T) {
		ctx, span := sm.StartRunSpan(context.Background(), "test", "run-1")
		sm.AddSpanEvent(ctx, EventRoute, RouteAttributes("search", "report", "ok")...)
		span.End()

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		require.Len(t, spans[0].Events, 1)
		assert.Equal(t, EventRoute, spans[0].Events[0].Name)
		assert.Equal(t, "report", attrString(spans[0].Events[0].Attributes, "route.to"))
		assert.Equal(t, "ok", attrString(spans[0].Events[0].Attributes, "route.key"))
	})

	t.Run("no panic with no current span", func(t *testing.T) {
		assert.NotPanics(t, func() {
			sm.AddSpanEvent(context.Background(), "test_event")
		})
	})
}

func TestRouteAttributes(t *testing.T) {
	assert.Len(t, RouteAttributes("a", "b", ""), 2, "static edges carry no key")
	assert.Equal(t, "k", attrString(RouteAttributes("a", "b", "k"), "route.key"))
}
