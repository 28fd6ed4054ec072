package workreg

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/workreg/pkg/workreg/journal"
	"github.com/randalmurphal/workreg/pkg/workreg/observability"
)

// settings holds runtime wiring for a registry.
type settings struct {
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	journal        journal.Journal
	defaultTimeout time.Duration
	requestBuffer  int
}

// defaultSettings returns the default runtime wiring.
func defaultSettings() settings {
	return settings{
		metrics:       observability.NoopMetrics{},
		spans:         observability.NoopSpanManager{},
		requestBuffer: 64,
	}
}

// Option configures registry behavior beyond Config.
type Option func(*settings)

// WithLogger sets the structured logger. Default: no logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
// Default: observability.NoopMetrics.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(s *settings) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithSpans sets the trace span manager.
// Default: observability.NoopSpanManager.
func WithSpans(sm observability.SpanManager) Option {
	return func(s *settings) {
		if sm != nil {
			s.spans = sm
		}
	}
}

// WithJournal sets the transition journal, overriding Config.JournalPath.
// The caller keeps ownership and must close it after Stop.
func WithJournal(j journal.Journal) Option {
	return func(s *settings) {
		s.journal = j
	}
}

// WithDefaultTimeout overrides Config.DefaultTimeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.defaultTimeout = d
		}
	}
}

// WithRequestBuffer sets the coordinator queue capacity. Default: 64.
func WithRequestBuffer(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.requestBuffer = n
		}
	}
}
