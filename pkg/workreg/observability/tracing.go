package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the workreg tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("workreg")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartLookupSpan starts a span for a lookup-or-start operation.
	StartLookupSpan(ctx context.Context, registry, key string) (context.Context, trace.Span)

	// StartFactorySpan starts a span for a factory invocation.
	// The factory span should be a child of the lookup span.
	StartFactorySpan(ctx context.Context, key string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartLookupSpan starts a span for a lookup-or-start operation.
func (m *otelSpanManager) StartLookupSpan(ctx context.Context, registry, key string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "workreg.lookup",
		trace.WithAttributes(
			attribute.String("registry", registry),
			attribute.String("key", key),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartFactorySpan starts a span for a factory invocation.
func (m *otelSpanManager) StartFactorySpan(ctx context.Context, key string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "workreg.factory",
		trace.WithAttributes(
			attribute.String("key", key),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
