package workreg

import "context"

// SupervisionSpec describes a registry unit to an external supervision
// tree. The tree owns the restart policy; each Start call produces a
// fresh incarnation with an empty entry store — handles held before a
// restart are orphaned from the registry's perspective, and the first
// lookup for any key afterwards creates a fresh worker.
type SupervisionSpec[K comparable, H any] struct {
	// Name identifies the unit.
	Name string

	// Restart is the policy the supervisor should apply to the unit.
	Restart RestartPolicy

	// Start brings up one incarnation.
	Start func() (*Registry[K, H], error)

	// Stop shuts an incarnation down.
	Stop func(context.Context, *Registry[K, H]) error
}

// Supervised returns a descriptor for running the registry under an
// external supervisor instead of calling Start directly.
func Supervised[K comparable, H any](cfg Config, opts ...Option) SupervisionSpec[K, H] {
	named := cfg.withDefaults()
	return SupervisionSpec[K, H]{
		Name:    named.Name,
		Restart: named.RestartPolicy,
		Start: func() (*Registry[K, H], error) {
			return Start[K, H](cfg, opts...)
		},
		Stop: func(ctx context.Context, r *Registry[K, H]) error {
			return r.Stop(ctx)
		},
	}
}
