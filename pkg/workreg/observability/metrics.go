package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records registry metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordLookup records a lookup with its outcome and duration.
	// fastPath is true when the lookup was served from the fast-read cache.
	RecordLookup(ctx context.Context, registry string, hit, fastPath bool, duration time.Duration)

	// RecordCreation records a factory invocation.
	RecordCreation(ctx context.Context, registry string, duration time.Duration, err error)

	// RecordDown records a processed termination notification.
	RecordDown(ctx context.Context, registry string)

	// RecordEviction records an explicit eviction.
	RecordEviction(ctx context.Context, registry string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	lookups         metric.Int64Counter
	lookupLatency   metric.Float64Histogram
	creations       metric.Int64Counter
	creationErrors  metric.Int64Counter
	creationLatency metric.Float64Histogram
	downs           metric.Int64Counter
	evictions       metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("workreg")

	lookups, err := meter.Int64Counter("workreg.lookups",
		metric.WithDescription("Number of registry lookups"),
	)
	if err != nil {
		return nil, err
	}

	lookupLatency, err := meter.Float64Histogram("workreg.lookup.latency_ms",
		metric.WithDescription("Lookup latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	creations, err := meter.Int64Counter("workreg.creations",
		metric.WithDescription("Number of factory invocations"),
	)
	if err != nil {
		return nil, err
	}

	creationErrors, err := meter.Int64Counter("workreg.creation.errors",
		metric.WithDescription("Number of failed factory invocations"),
	)
	if err != nil {
		return nil, err
	}

	creationLatency, err := meter.Float64Histogram("workreg.creation.latency_ms",
		metric.WithDescription("Factory invocation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	downs, err := meter.Int64Counter("workreg.downs",
		metric.WithDescription("Number of processed termination notifications"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter("workreg.evictions",
		metric.WithDescription("Number of explicit evictions"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		lookups:         lookups,
		lookupLatency:   lookupLatency,
		creations:       creations,
		creationErrors:  creationErrors,
		creationLatency: creationLatency,
		downs:           downs,
		evictions:       evictions,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordLookup records a lookup.
func (m *otelMetrics) RecordLookup(ctx context.Context, registry string, hit, fastPath bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("registry", registry),
		attribute.Bool("hit", hit),
		attribute.Bool("fast_path", fastPath),
	}
	m.lookups.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.lookupLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordCreation records a factory invocation.
func (m *otelMetrics) RecordCreation(ctx context.Context, registry string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("registry", registry),
	}
	m.creations.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.creationLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.creationErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordDown records a processed termination notification.
func (m *otelMetrics) RecordDown(ctx context.Context, registry string) {
	m.downs.Add(ctx, 1, metric.WithAttributes(attribute.String("registry", registry)))
}

// RecordEviction records an explicit eviction.
func (m *otelMetrics) RecordEviction(ctx context.Context, registry string) {
	m.evictions.Add(ctx, 1, metric.WithAttributes(attribute.String("registry", registry)))
}
