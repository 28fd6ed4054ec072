package workreg

import (
	"fmt"
	"time"

	"github.com/randalmurphal/workreg/pkg/workreg/config"
)

// RestartPolicy names the restart policy applied to dynamically created
// workers (by the supervise subpackage) or to the registry unit itself
// (via Supervised).
type RestartPolicy string

// Recognized restart policies.
const (
	// RestartPermanent always restarts.
	RestartPermanent RestartPolicy = "permanent"

	// RestartTransient restarts only after an abnormal exit.
	RestartTransient RestartPolicy = "transient"

	// RestartTemporary never restarts.
	RestartTemporary RestartPolicy = "temporary"
)

// Default configuration values.
const (
	// DefaultName identifies a registry when Config.Name is empty.
	DefaultName = "workreg"

	// DefaultEventBuffer is the per-subscriber event channel capacity.
	DefaultEventBuffer = 16
)

// Config describes a registry unit.
type Config struct {
	// Name identifies the registry in logs, metrics, and the journal.
	// Defaults to DefaultName.
	Name string

	// FastReadCache mirrors resolved entries into a concurrently
	// readable table so repeat lookups skip the coordinator.
	FastReadCache bool

	// RestartPolicy is the policy for dynamically created workers.
	// Defaults to RestartTransient. The registry itself does not apply
	// it; it is carried for supervise and Supervised consumers.
	RestartPolicy RestartPolicy

	// DefaultTimeout bounds LookupOrStart waits when the caller's
	// context has no deadline. 0 means wait indefinitely.
	DefaultTimeout time.Duration

	// JournalPath, when set, enables a SQLite transition journal at the
	// given path.
	JournalPath string

	// EventBuffer is the per-subscriber event channel capacity.
	// Defaults to DefaultEventBuffer.
	EventBuffer int
}

// Validate checks the configuration for values Start cannot work with.
func (c Config) Validate() error {
	switch c.RestartPolicy {
	case "", RestartPermanent, RestartTransient, RestartTemporary:
	default:
		return fmt.Errorf("unknown worker_restart_policy %q", c.RestartPolicy)
	}
	if c.EventBuffer < 0 {
		return fmt.Errorf("event_buffer cannot be negative: %d", c.EventBuffer)
	}
	if c.DefaultTimeout < 0 {
		return fmt.Errorf("default_timeout cannot be negative: %s", c.DefaultTimeout)
	}
	return nil
}

// withDefaults fills in zero values.
func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.RestartPolicy == "" {
		c.RestartPolicy = RestartTransient
	}
	if c.EventBuffer == 0 {
		c.EventBuffer = DefaultEventBuffer
	}
	return c
}

// FromConfig maps a loaded configuration file onto a Config.
//
// Recognized keys: name, fast_read_cache, worker_restart_policy,
// default_timeout, journal_path, event_buffer. Missing keys take their
// defaults; unknown keys are ignored.
func FromConfig(cfg config.Config) Config {
	return Config{
		Name:           cfg.String("name", DefaultName),
		FastReadCache:  cfg.Bool("fast_read_cache", false),
		RestartPolicy:  RestartPolicy(cfg.String("worker_restart_policy", string(RestartTransient))),
		DefaultTimeout: cfg.Duration("default_timeout", 0),
		JournalPath:    cfg.String("journal_path", ""),
		EventBuffer:    cfg.Int("event_buffer", DefaultEventBuffer),
	}
}
