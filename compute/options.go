package compute

import "github.com/rs/zerolog"

// SpinConfig tunes the spin/park state machine: a worker that finds
// nothing to steal spins briefly (cheap, avoids a syscall round-trip for
// transient emptiness) before parking on the shared park.Condition.
type SpinConfig struct {
	// MaxSpinningThreads caps how many workers may be actively spinning
	// (as opposed to parked) at once; the rest park immediately on finding
	// no work, so spinning never burns more than this many cores.
	MaxSpinningThreads int
	// SpinIterations is the total spin budget across every spinning
	// worker; a spinning worker probes for work SpinIterations/workerCount
	// times before giving up and parking.
	SpinIterations int
	// MinActive caps how many non-parked workers the pool will tolerate
	// before it stops letting new workers spin at all - once more than
	// MinActive workers are already awake, a newly-idle worker parks
	// immediately instead of spinning, since there's no shortage of
	// threads available to pick up new work.
	MinActive int
}

func defaultSpinConfig() SpinConfig {
	return SpinConfig{MaxSpinningThreads: 1, SpinIterations: 5000, MinActive: 4}
}

// options collects every NewPool tunable; Option mutates it.
type options struct {
	externalFastPathThreads int
	allowNonFastPathThreads bool
	logger                  zerolog.Logger
	grainSize               int
	spin                    SpinConfig
	dequeCapacity           int
}

const defaultDequeCapacityOption = 1024

func defaultOptions() options {
	return options{
		externalFastPathThreads: 1,
		allowNonFastPathThreads: false,
		logger:                  zerolog.Nop(),
		grainSize:               0,
		spin:                    defaultSpinConfig(),
		dequeCapacity:           defaultDequeCapacityOption,
	}
}

// WithDequeCapacity overrides the default size of each worker's deque.
// Useful for deliberately provoking the overflow path (PushFront/PushBack
// failing falls back to running the task inline rather than blocking) in
// tests without needing thousands of dispatches.
func WithDequeCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.dequeCapacity = n
		}
	}
}

// Option configures a Pool at construction time.
type Option func(*options)

// WithExternalFastPathThreads sets how many non-worker goroutines may
// pre-register (via RegisterCurrentThread) as fast-path Join/ParallelFor
// callers. Defaults to 1 - the typical single external caller driving the
// pool from its own goroutine.
func WithExternalFastPathThreads(n int) Option {
	return func(o *options) { o.externalFastPathThreads = n }
}

// WithAllowNonFastPathThreads, when true, makes Join/ParallelFor fall back
// to running the supplied closures synchronously on an unregistered
// caller's own goroutine instead of panicking with a ContractViolation.
// Off by default: calling from an unregistered thread is treated as a
// programmer error that should be caught immediately, not silently
// degraded to single-threaded execution.
func WithAllowNonFastPathThreads(allow bool) Option {
	return func(o *options) { o.allowNonFastPathThreads = allow }
}

// WithLogger attaches a zerolog.Logger for the pool's worker lifecycle and
// steal/park diagnostics. The default is zerolog.Nop() - silent.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithGrainSize overrides ParallelFor's default grain size (n/Parallelism,
// floored at 1) with a fixed value. Useful when the caller knows each
// iteration is unusually cheap or expensive relative to dispatch overhead.
func WithGrainSize(grain int) Option {
	return func(o *options) {
		if grain > 0 {
			o.grainSize = grain
		}
	}
}

// WithSpinConfig overrides the default spin/park tunables.
func WithSpinConfig(cfg SpinConfig) Option {
	return func(o *options) { o.spin = cfg }
}
