// Package compute implements the non-blocking work-stealing thread pool:
// Dispatch, Join and ParallelFor over a fixed set of worker goroutines,
// each owning a chase-lev deque, stealing from one another when idle.
package compute

import (
	"sync"
	"sync/atomic"

	"github.com/dijkstracula/pgo/internal/deque"
	"github.com/dijkstracula/pgo/internal/park"
	"github.com/dijkstracula/pgo/internal/platform"
	"github.com/rs/zerolog"
)

// Pool is a fixed-size set of worker goroutines sharing work through
// per-worker deques.
type Pool struct {
	name    string
	opts    options
	logger  zerolog.Logger
	workers []*workerState

	idle *park.Condition

	// joinParkMutexes holds one ConditionMutex per logical fast-path
	// thread (workers first, then the external fast-path slots), used by
	// the Join/ParallelFor wake-up handshake in descriptor.go. Indexed by
	// the value CurrentThreadIndex returns for that goroutine.
	joinParkMutexes []*platform.ConditionMutex

	// spinState packs {spinningCount:32, notifyDebt:32}: how many workers
	// are currently spinning, and how many of them have not yet been
	// informed of a notify that landed while they were spinning. Producers
	// consult it in wakeupWorkerIfRequired to decide whether a spinner
	// will find the new work on its own or whether C3 needs an explicit
	// Notify. blockedCount tracks how many workers are parked (as opposed
	// to spinning or working), used to decide whether a newly-idle worker
	// is even allowed to spin (see trySpin).
	spinState    platform.AtomicU64
	blockedCount atomic.Int64

	shuttingDown atomic.Bool
	wg           sync.WaitGroup

	threadKey *platform.LocalKey[uint32]

	// externalRNGs holds one persistent steal RNG per external fast-path
	// slot, mirroring workerState.rng - external callers have no
	// workerState of their own to keep one in, but still need a
	// stateful, evolving RNG rather than a fresh one reseeded every call.
	externalRNGs []*rngPCG

	externalSlotMu   sync.Mutex
	externalSlotNext int
}

// spinStatePack/spinStateUnpack encode/decode the {spinningCount,
// notifyDebt} pair packed into Pool.spinState.
func spinStatePack(spinning, debt int32) uint64 {
	return uint64(uint32(spinning))<<32 | uint64(uint32(debt))
}

func spinStateUnpack(word uint64) (spinning, debt int32) {
	return int32(word >> 32), int32(uint32(word))
}

// NewPool starts workerCount worker goroutines and returns a ready Pool.
// name is used only for logging. workerCount must be positive.
func NewPool(name string, workerCount int, opts ...Option) *Pool {
	if workerCount <= 0 {
		panicContractViolation("NewPool(%q, %d, ...): workerCount must be positive", name, workerCount)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	totalSlots := workerCount + o.externalFastPathThreads
	p := &Pool{
		name:            name,
		opts:            o,
		logger:          o.logger.With().Str("pool", name).Logger(),
		idle:            park.New(),
		joinParkMutexes: make([]*platform.ConditionMutex, totalSlots),
		threadKey:       platform.MakeKey[uint32](),
		externalRNGs:    make([]*rngPCG, o.externalFastPathThreads),
	}
	for i := range p.joinParkMutexes {
		p.joinParkMutexes[i] = platform.NewConditionMutex()
	}
	for i := range p.externalRNGs {
		p.externalRNGs[i] = newRNGPCG(uint64(workerCount+i) + 1)
	}

	p.workers = make([]*workerState, workerCount)
	p.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		w := &workerState{
			index: i,
			pool:  p,
			dq:    deque.New[*task](o.dequeCapacity),
			rng:   newRNGPCG(uint64(i) + 1),
		}
		p.workers[i] = w
		platform.Spawn(name, func() {
			p.threadKey.Set(uint32(w.index))
			// Every Set on a goroutine-scoped key must be paired with a
			// Delete before the goroutine exits - otherwise a future
			// goroutine that happens to reuse this one's runtime id would
			// silently inherit this worker's slot. Workers are the one
			// place this codebase spawns a goroutine whose entire
			// lifetime it owns, so it's also the one place it can
			// guarantee the pairing.
			defer p.threadKey.Delete()
			p.logger.Debug().Int("worker", w.index).Msg("worker started")
			defer p.wg.Done()
			w.loop()
			p.logger.Debug().Int("worker", w.index).Msg("worker stopped")
		})
	}
	return p
}

// Parallelism returns the total number of logical fast-path thread slots
// the pool has reserved: its workers plus its external fast-path capacity.
// This is the same count TotalFastPathThreads reports; grain sizing and
// per-thread slot allocation both want "how many threads could concurrently
// be running my work", not just the worker count.
func (p *Pool) Parallelism() int {
	return len(p.joinParkMutexes)
}

// TotalFastPathThreads returns the number of logical fast-path thread
// slots the pool has reserved: its workers plus its external fast-path
// capacity. CurrentThreadIndex always returns a value less than this.
// Useful for sizing one-slot-per-thread structures, e.g. vertex.Step's
// per-thread global accumulator.
func (p *Pool) TotalFastPathThreads() int {
	return len(p.joinParkMutexes)
}

// CurrentThreadIndex returns the logical fast-path thread ID for the
// calling goroutine and true, or (0, false) if it was never registered
// (neither a worker of this pool, nor a goroutine that called
// RegisterCurrentThread on it).
func (p *Pool) CurrentThreadIndex() (uint32, bool) {
	return p.threadKey.Get()
}

// RegisterCurrentThread opts the calling goroutine into the fast path,
// letting it call Join/ParallelFor directly. The number of goroutines
// that may do this is capped by WithExternalFastPathThreads (default 1);
// exceeding it is a ContractViolation, since the pool has a fixed-size
// parking-mutex slot for each.
//
// A goroutine that registers and then exits before the pool itself shuts
// down should defer UnregisterCurrentThread: otherwise its slot stays
// claimed forever (fine for long-lived callers, but a future goroutine
// that happens to reuse this one's runtime id would silently inherit the
// registration rather than failing RegisterCurrentThread/CurrentThreadIndex
// as a fresh goroutine should).
func (p *Pool) RegisterCurrentThread() {
	if _, ok := p.threadKey.Get(); ok {
		return
	}
	p.externalSlotMu.Lock()
	defer p.externalSlotMu.Unlock()
	if p.externalSlotNext >= p.opts.externalFastPathThreads {
		panicContractViolation("RegisterCurrentThread: all %d external fast-path slots on pool %q are taken", p.opts.externalFastPathThreads, p.name)
	}
	slot := len(p.workers) + p.externalSlotNext
	p.externalSlotNext++
	p.threadKey.Set(uint32(slot))
}

// UnregisterCurrentThread releases the calling goroutine's fast-path
// registration, if any. It does not return the slot to the pool for
// reuse by a different goroutine (RegisterCurrentThread's slot counter
// only ever grows) - it exists purely to delete the TLS entry so a later
// goroutine reusing this one's runtime id starts unregistered, per the
// RegisterCurrentThread doc comment.
func (p *Pool) UnregisterCurrentThread() {
	p.threadKey.Delete()
}

// requireFastPathThread returns the caller's logical thread ID, either
// because it's already registered, or - if WithAllowNonFastPathThreads was
// set - by treating the call as ineligible to help/park (the Try* variants
// use this to fall back to synchronous execution instead).
func (p *Pool) requireFastPathThread() (uint32, bool) {
	id, ok := p.threadKey.Get()
	if ok {
		return id, true
	}
	if p.opts.allowNonFastPathThreads {
		return 0, false
	}
	panicContractViolation("pool %q: calling goroutine is not a registered fast-path thread; call RegisterCurrentThread first or construct the pool WithAllowNonFastPathThreads(true)", p.name)
	return 0, false
}

// Dispatch enqueues fn for asynchronous execution and returns immediately.
// It never blocks: if the calling thread owns a deque (i.e. it's itself a
// worker) and that deque is full, fn runs inline.
func (p *Pool) Dispatch(fn func()) {
	t := &task{kind: kindDispatch, fn: fn}
	if id, ok := p.threadKey.Get(); ok && int(id) < len(p.workers) {
		w := p.workers[id]
		if w.dq.PushFront(t) {
			p.wakeupWorkerIfRequired()
			return
		}
		// The worker's own deque is full: run fn inline.
		fn()
		return
	}
	// Not a worker: push onto a worker's deque from the outside. The
	// victim is chosen round-robin from a counter shared by every Pool,
	// not at random.
	if len(p.workers) > 0 {
		victim := p.workers[p.externalPushVictim()]
		if victim.dq.PushBack(t) {
			p.wakeupWorkerIfRequired()
			return
		}
	}
	// The chosen victim's deque is full (no other deque is tried); run it
	// inline rather than block - Dispatch never blocks on a full deque.
	fn()
}

var externalPushCounter atomic.Uint64

func (p *Pool) externalPushVictim() int {
	n := externalPushCounter.Add(1)
	return int(n % uint64(len(p.workers)))
}

// runTask executes t, recovering nothing: a panicking user closure
// propagates up through the worker goroutine exactly as it would on any
// other goroutine, since the pool has no way to hand a panic back to a
// caller that may have long since stopped waiting.
func (p *Pool) runTask(t *task) {
	t.fn()
}

// wakeupWorkerIfRequired is the producer-side half of the spin/park state
// machine. If every currently-spinning worker has already been informed of
// pending work (notifyDebt == spinningCount, which includes the case of no
// spinners at all), no spinner can be counted on to pick up this new task,
// so C3 is Notified - skipped only when no worker is parked or about to
// park. Otherwise notifyDebt is bumped and no Notify is sent: a spinner
// that has not yet been informed will find the task, and the spinner whose
// endSpin consumes the debt makes one more steal attempt before parking.
func (p *Pool) wakeupWorkerIfRequired() {
	for {
		old := p.spinState.LoadRelaxed()
		spinning, debt := spinStateUnpack(old)
		if debt == spinning {
			if p.idle.Waiters() > 0 {
				p.idle.Notify()
			}
			return
		}
		next := spinStatePack(spinning, debt+1)
		if p.spinState.CompareAndSwapRelaxed(old, next) {
			return
		}
	}
}

// joinParkMutexFor returns the ConditionMutex dedicated to threadID's
// Join/ParallelFor wake-up handshake.
func (p *Pool) joinParkMutexFor(threadID uint32) *platform.ConditionMutex {
	return p.joinParkMutexes[threadID]
}

// rngFor returns the persistent, per-slot steal RNG for threadID - a
// worker's own workerState.rng, or the matching slot in externalRNGs for a
// registered external fast-path thread. Each slot is only ever touched by
// the one goroutine that owns it, so no synchronization is needed despite
// the RNG mutating its own state on every call.
func (p *Pool) rngFor(threadID uint32) *rngPCG {
	if int(threadID) < len(p.workers) {
		return p.workers[threadID].rng
	}
	return p.externalRNGs[int(threadID)-len(p.workers)]
}

// stealAny probes every worker deque except selfThreadID's own (already
// exhausted by the caller) for a task to steal, using a coprime-stepped
// sweep so it visits each candidate exactly once per call. rng is the
// caller's own persistent steal RNG (see rngFor), advanced by this call so
// repeated steals from the same caller sweep different starting points.
func (p *Pool) stealAny(selfThreadID uint32, rng *rngPCG) (*task, bool) {
	n := len(p.workers)
	if n == 0 {
		return nil, false
	}
	steps := coprimeSteps(n)
	start := rng.Intn(n)
	step := steps[rng.Intn(len(steps))]
	for i := 0; i < n; i++ {
		idx := (start + i*step) % n
		if uint32(idx) == selfThreadID {
			continue
		}
		if t, ok := p.workers[idx].dq.PopBack(); ok {
			return t, true
		}
	}
	return nil, false
}

// waitForDescriptor is shared by Join and ParallelFor: help the pool make
// progress (by stealing and running tasks) until d is done, falling back
// to parking on threadID's dedicated mutex once there's nothing left to
// steal.
func (p *Pool) waitForDescriptor(threadID uint32, d *descriptor) {
	rng := p.rngFor(threadID)
	for {
		if d.isDone() {
			return
		}
		if t, ok := p.stealAny(threadID, rng); ok {
			p.runTask(t)
			continue
		}
		mu := p.joinParkMutexFor(threadID)
		mu.Lock()
		if !d.registerWaiter(threadID) {
			mu.Unlock()
			return
		}
		mu.Await(d.isDone)
		mu.Unlock()
		return
	}
}

func (p *Pool) wakeThread(threadID uint32) {
	mu := p.joinParkMutexFor(threadID)
	mu.Lock()
	mu.Unlock()
}

// ShutDown stops accepting the pool's own workers' idle loop and blocks
// until every worker goroutine has returned. In-flight tasks already
// dequeued are allowed to finish; nothing new is stolen or dispatched
// after this returns.
func (p *Pool) ShutDown() {
	p.shuttingDown.Store(true)
	p.idle.NotifyAll()
	p.wg.Wait()
	p.logger.Debug().Msg("pool shut down")
}

func (p *Pool) isShuttingDown() bool {
	return p.shuttingDown.Load()
}
