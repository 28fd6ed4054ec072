package supervise

import (
	"math/rand/v2"
	"time"

	"github.com/randalmurphal/workreg/pkg/workreg"
)

// Policy controls whether a worker is restarted after it exits.
type Policy string

// Restart policies.
const (
	// Permanent workers are always restarted, whatever the exit reason.
	Permanent Policy = "permanent"

	// Transient workers are restarted only after an abnormal exit
	// (non-nil error or panic).
	Transient Policy = "transient"

	// Temporary workers are never restarted.
	Temporary Policy = "temporary"
)

// FromRestartPolicy maps a registry-level restart policy onto a Policy.
// Unknown values map to Temporary.
func FromRestartPolicy(p workreg.RestartPolicy) Policy {
	switch p {
	case workreg.RestartPermanent:
		return Permanent
	case workreg.RestartTransient:
		return Transient
	case workreg.RestartTemporary:
		return Temporary
	default:
		return Temporary
	}
}

// RestartConfig bounds restart frequency and spaces restarts with backoff.
type RestartConfig struct {
	// MaxRestarts is the maximum number of restarts within Window.
	// 0 means unlimited.
	MaxRestarts int

	// Window is the sliding interval MaxRestarts applies to.
	Window time.Duration

	// InitialBackoff is the delay before the first restart.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier applied to backoff after each restart.
	BackoffFactor float64

	// Jitter is the random jitter factor (0.0-1.0).
	Jitter float64
}

// DefaultRestart is the standard restart configuration.
var DefaultRestart = RestartConfig{
	MaxRestarts:    5,
	Window:         time.Minute,
	InitialBackoff: 100 * time.Millisecond,
	MaxBackoff:     10 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// delay returns backoff with jitter applied.
func (c RestartConfig) delay(backoff time.Duration) time.Duration {
	if c.Jitter <= 0 {
		return backoff
	}
	// Jitter in [-Jitter, +Jitter] around the nominal backoff.
	factor := 1 + (rand.Float64()*2-1)*c.Jitter
	return time.Duration(float64(backoff) * factor)
}

// next returns the backoff to use after the current one.
func (c RestartConfig) next(backoff time.Duration) time.Duration {
	if c.BackoffFactor <= 1 {
		return backoff
	}
	next := time.Duration(float64(backoff) * c.BackoffFactor)
	if c.MaxBackoff > 0 && next > c.MaxBackoff {
		return c.MaxBackoff
	}
	return next
}
