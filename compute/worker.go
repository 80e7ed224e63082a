package compute

import "github.com/dijkstracula/pgo/internal/deque"

// workerState is the per-worker record: its own deque (pushed to the
// front by itself, stolen from the back by others) and its steal RNG.
type workerState struct {
	index int
	pool  *Pool
	dq    *deque.Deque[*task]
	rng   *rngPCG
}

// loop is the worker's main body: drain its own deque LIFO, then try to
// steal, then spin briefly, then park. Runs until the pool shuts down.
func (w *workerState) loop() {
	p := w.pool
	for {
		if p.isShuttingDown() {
			return
		}
		if t, ok := w.dq.PopFront(); ok {
			p.runTask(t)
			continue
		}
		if t, ok := p.stealAny(uint32(w.index), w.rng); ok {
			p.runTask(t)
			continue
		}
		w.spinThenPark()
	}
}

// spinThenPark runs the spin/park state machine: spin (bounded by
// SpinIterations/workerCount probes, gated by MinActive/MaxSpinningThreads),
// then park unless spinning (or the last steal attempt endSpin allows)
// found a task to run. Spinning and parking are sequential
// steps of one call, not two alternating ones a caller loops between -
// returning early from the spin branch once its budget is spent (instead
// of falling through to parkUntilWoken) would send the worker back around
// loop's PopFront/stealAny/spinThenPark cycle, where trySpin can win the
// single spin slot again immediately if nobody else is contending for it,
// spinning forever on an idle pool without ever reaching Parked.
func (w *workerState) spinThenPark() {
	p := w.pool
	if w.trySpin() {
		budget := p.opts.spin.SpinIterations / len(p.workers)
		for i := 0; i < budget; i++ {
			if p.isShuttingDown() {
				w.endSpin()
				return
			}
			if t, ok := p.stealAny(uint32(w.index), w.rng); ok {
				w.endSpin()
				p.runTask(t)
				return
			}
		}
		// Leaving spinning: if a notify landed while we were spinning and
		// this call is the one that consumes it (notifyDebt > 0), make one
		// last steal attempt before parking - the notify may be exactly
		// the task that would otherwise be missed by parking too early.
		if w.endSpin() {
			if t, ok := p.stealAny(uint32(w.index), w.rng); ok {
				p.runTask(t)
				return
			}
		}
	}
	w.parkUntilWoken()
}

// parkUntilWoken commits to sleeping on the pool's shared idle condition,
// tracking blockedCount so trySpin can tell how many workers are actually
// parked (as opposed to working or spinning) when deciding whether a
// newly-idle worker should be allowed to spin at all.
func (w *workerState) parkUntilWoken() {
	p := w.pool
	p.blockedCount.Add(1)
	defer p.blockedCount.Add(-1)

	ticket := p.idle.PreWait()
	if t, ok := p.stealAny(uint32(w.index), w.rng); ok {
		p.idle.CancelWait()
		p.runTask(t)
		return
	}
	if p.isShuttingDown() {
		p.idle.CancelWait()
		return
	}
	p.idle.CommitWait(uint32(w.index), ticket)
}

// trySpin claims one of the pool's limited spinning slots via CAS, but
// only when at most MinActive workers are currently awake (working,
// spinning, or about to spin) - once more workers than that are already
// active, there's no shortage of threads to pick up new work, so a
// newly-idle worker should park immediately instead of burning a core.
func (w *workerState) trySpin() bool {
	p := w.pool
	active := int32(len(p.workers)) - int32(p.blockedCount.Load())
	if active > int32(p.opts.spin.MinActive) {
		return false
	}
	for {
		old := p.spinState.LoadRelaxed()
		spinning, debt := spinStateUnpack(old)
		if spinning-debt >= int32(p.opts.spin.MaxSpinningThreads) {
			return false
		}
		next := spinStatePack(spinning+1, debt)
		if p.spinState.CompareAndSwapRelaxed(old, next) {
			return true
		}
	}
}

// endSpin releases the spinning slot claimed by trySpin. It reports
// whether the caller should make one more steal attempt before parking:
// true iff a notify had landed (notifyDebt > 0) while this worker was
// spinning and this call is the one that consumes it.
func (w *workerState) endSpin() bool {
	p := w.pool
	for {
		old := p.spinState.LoadRelaxed()
		spinning, debt := spinStateUnpack(old)
		spinning--
		tryOnceMore := false
		if debt > 0 {
			debt--
			tryOnceMore = true
		}
		next := spinStatePack(spinning, debt)
		if p.spinState.CompareAndSwapRelaxed(old, next) {
			return tryOnceMore
		}
	}
}
