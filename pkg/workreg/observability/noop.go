package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
// Use when metrics are disabled to avoid overhead.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordLookup does nothing.
func (NoopMetrics) RecordLookup(_ context.Context, _ string, _, _ bool, _ time.Duration) {}

// RecordCreation does nothing.
func (NoopMetrics) RecordCreation(_ context.Context, _ string, _ time.Duration, _ error) {}

// RecordDown does nothing.
func (NoopMetrics) RecordDown(_ context.Context, _ string) {}

// RecordEviction does nothing.
func (NoopMetrics) RecordEviction(_ context.Context, _ string) {}

// NoopSpanManager is a SpanManager that does nothing.
// Use when tracing is disabled to avoid overhead.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

// noopSpan is a span that does nothing.
// We use the OTel noop package for a proper no-op span implementation.
var noopSpan = noop.Span{}

// StartLookupSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartLookupSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartFactorySpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartFactorySpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
