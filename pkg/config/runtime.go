package config

// RuntimeConfig controls the predictive scheduling engine's worker pool
// and look-ahead job variant.
type RuntimeConfig struct {
	// WorkerCount sizes the worker pool. Defaults to 4.
	WorkerCount int `yaml:"worker_count"`

	// Variant selects discard or reuse look-ahead jobs. Reuse trades
	// memory (a BarrierSequence per in-flight job) for avoiding redundant
	// geometric recomputation across incremental human updates.
	Variant JobVariant `yaml:"variant"`

	// BarrierKind and BarrierPolicy configure the reuse variant's
	// BarrierSequence factory; ignored when Variant is discard.
	BarrierKind   BarrierKind         `yaml:"barrier_kind"`
	BarrierPolicy BarrierUpdatePolicy `yaml:"barrier_policy"`

	// WeakEquivalence selects Weak over Strong awakening equivalence
	// when a sleeping reuse job is re-evaluated.
	WeakEquivalence bool `yaml:"weak_equivalence"`

	// WeakReuseInvalidatesOnNewSamples controls, under Weak equivalence,
	// whether a mode that has received new samples since a job's
	// snapshot time invalidates its cached barrier sequence for that
	// mode. The default is not to invalidate — that is the entire point
	// of choosing Weak.
	WeakReuseInvalidatesOnNewSamples bool `yaml:"weak_reuse_invalidates_on_new_samples"`
}

// DefaultRuntimeConfig returns Opera's built-in runtime defaults: reuse
// jobs, a capsule metric (tighter than sphere once segments are non-thin),
// AddWhenNecessary update policy, and strong equivalence.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		WorkerCount:                      4,
		Variant:                          JobVariantReuse,
		BarrierKind:                      BarrierCapsule,
		BarrierPolicy:                    BarrierAddWhenNecessary,
		WeakEquivalence:                  false,
		WeakReuseInvalidatesOnNewSamples: false,
	}
}
