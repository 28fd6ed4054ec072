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

	originalProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	// Update the package-level tracer
	tracer = otel.Tracer("workreg")

	cleanup := func() {
		otel.SetTracerProvider(originalProvider)
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	}

	return exporter, cleanup
}

func TestStartLookupSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	ctx := context.Background()
	newCtx, span := sm.StartLookupSpan(ctx, "sessions", "user-42")
	require.NotNil(t, span)
	assert.NotEqual(t, ctx, newCtx)

	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	s := spans[0]
	assert.Equal(t, "workreg.lookup", s.Name)

	var registry, key string
	for _, attr := range s.Attributes {
		switch attr.Key {
		case "registry":
			registry = attr.Value.AsString()
		case "key":
			key = attr.Value.AsString()
		}
	}
	assert.Equal(t, "sessions", registry)
	assert.Equal(t, "user-42", key)
}

func TestStartFactorySpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	ctx := context.Background()
	_, span := sm.StartFactorySpan(ctx, "user-42")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "workreg.factory", spans[0].Name)
}

func TestEndSpanWithError(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	t.Run("records error status", func(t *testing.T) {
		exporter.Reset()

		_, span := sm.StartLookupSpan(context.Background(), "sessions", "k")
		sm.EndSpanWithError(span, errors.New("factory failed"))

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status.Code)
		require.NotEmpty(t, spans[0].Events)
	})

	t.Run("records ok status", func(t *testing.T) {
		exporter.Reset()

		_, span := sm.StartLookupSpan(context.Background(), "sessions", "k")
		sm.EndSpanWithError(span, nil)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Ok, spans[0].Status.Code)
	})

	t.Run("nil span is a no-op", func(t *testing.T) {
		sm.EndSpanWithError(nil, errors.New("x"))
	})
}

func TestAddSpanEvent(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	ctx, span := sm.StartLookupSpan(context.Background(), "sessions", "k")
	sm.AddSpanEvent(ctx, "cache.miss", attribute.String("key", "k"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "cache.miss", spans[0].Events[0].Name)
}

func TestNoopSpanManager(t *testing.T) {
	sm := NoopSpanManager{}

	ctx := context.Background()
	newCtx, span := sm.StartLookupSpan(ctx, "r", "k")
	assert.Equal(t, ctx, newCtx)
	require.NotNil(t, span)

	_, span = sm.StartFactorySpan(ctx, "k")
	require.NotNil(t, span)

	sm.EndSpanWithError(span, errors.New("x"))
	sm.AddSpanEvent(ctx, "event")
}
