// Package observability provides production-grade observability features
// for workreg: structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds registry context to a logger.
// Returns a new logger with a registry field.
func EnrichLogger(logger *slog.Logger, registry string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("registry", registry))
}

// LogRegistryStart logs registry startup.
func LogRegistryStart(logger *slog.Logger, registry string, fastReadCache bool) {
	if logger == nil {
		return
	}
	logger.Info("registry starting",
		slog.String("registry", registry),
		slog.Bool("fast_read_cache", fastReadCache),
	)
}

// LogRegistryStop logs registry shutdown.
func LogRegistryStop(logger *slog.Logger, registry string, entries int) {
	if logger == nil {
		return
	}
	logger.Info("registry stopped",
		slog.String("registry", registry),
		slog.Int("entries_dropped", entries),
	)
}

// LogWorkerCreated logs a successful worker creation.
func LogWorkerCreated(logger *slog.Logger, key, identity string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("worker created",
		slog.String("key", key),
		slog.String("identity", identity),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogFactoryError logs a failed factory invocation.
func LogFactoryError(logger *slog.Logger, key string, err error) {
	if logger == nil {
		return
	}
	logger.Error("factory failed",
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}

// LogWorkerDown logs removal of an entry after a termination notification.
func LogWorkerDown(logger *slog.Logger, key, identity string) {
	if logger == nil {
		return
	}
	logger.Debug("worker down, entry removed",
		slog.String("key", key),
		slog.String("identity", identity),
	)
}

// LogEviction logs an explicit eviction.
func LogEviction(logger *slog.Logger, key string) {
	if logger == nil {
		return
	}
	logger.Debug("entry evicted",
		slog.String("key", key),
	)
}

// LogJournalError logs a journal append failure (non-fatal).
func LogJournalError(logger *slog.Logger, key string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("journal append failed",
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}

// LogEventDropped logs an event dropped because a subscriber was slow.
func LogEventDropped(logger *slog.Logger, key string) {
	if logger == nil {
		return
	}
	logger.Warn("registry event dropped, subscriber too slow",
		slog.String("key", key),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
