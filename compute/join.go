package compute

import "errors"

// joinDescriptor is the wait word for one Join/TryJoin call, plus any
// error b returned (TryJoin only; Join's a/b never fail).
type joinDescriptor struct {
	descriptor
	err error
}

// Join runs a on the calling thread and b concurrently (stolen by another
// worker, or run inline if nobody gets to it first), returning once both
// have finished. The caller must be a registered fast-path thread (a
// worker, or a goroutine that called RegisterCurrentThread) unless the
// pool was built WithAllowNonFastPathThreads(true), in which case Join
// degrades to running a then b synchronously.
func (p *Pool) Join(a, b func()) {
	p.joinAs(kindJoin, a, b)
}

// joinAs is Join with an explicit task kind, letting ParallelFor tag its
// own descriptors kindParallelFor instead of every recursive split looking
// like an indistinguishable kindJoin.
func (p *Pool) joinAs(kind taskKind, a, b func()) {
	threadID, fastPath := p.requireFastPathThread()
	if !fastPath {
		a()
		b()
		return
	}

	d := &joinDescriptor{}
	bTask := &task{kind: kind, fn: func() {
		b()
		d.markDone(p.wakeThread)
	}}

	pushed, reclaimed := p.offerTask(threadID, bTask, a)
	if reclaimed {
		b()
		return
	}
	if !pushed {
		b()
		return
	}
	p.waitForDescriptor(threadID, &d.descriptor)
}

// TryJoin is Join for closures that can fail: both run, and their errors
// (if any) are combined with errors.Join.
func (p *Pool) TryJoin(a, b func() error) error {
	return p.tryJoinAs(kindJoin, a, b)
}

// tryJoinAs is TryJoin with an explicit task kind; see joinAs.
func (p *Pool) tryJoinAs(kind taskKind, a, b func() error) error {
	threadID, fastPath := p.requireFastPathThread()
	if !fastPath {
		return errors.Join(a(), b())
	}

	d := &joinDescriptor{}
	var errA error
	bTask := &task{kind: kind, fn: func() {
		d.err = b()
		d.markDone(p.wakeThread)
	}}

	pushed, reclaimed := p.offerTask(threadID, bTask, func() { errA = a() })
	if reclaimed {
		return errors.Join(errA, b())
	}
	if !pushed {
		return errors.Join(errA, b())
	}
	p.waitForDescriptor(threadID, &d.descriptor)
	return errors.Join(errA, d.err)
}

// offerTask pushes t for stealing (preferring the caller's own deque front
// when the caller is a worker, falling back to some worker's deque back
// when it's an external fast-path thread or its own deque is full), runs
// runA in the meantime, and - only when the caller owns a deque - tries to
// reclaim t itself before anyone else can steal it. It reports whether t
// was successfully handed off at all, and whether the caller reclaimed it
// (in which case the caller, not a worker, must still run it).
func (p *Pool) offerTask(threadID uint32, t *task, runA func()) (pushed, reclaimed bool) {
	if int(threadID) < len(p.workers) {
		w := p.workers[threadID]
		if w.dq.PushFront(t) {
			p.wakeupWorkerIfRequired()
			runA()
			if back, ok := w.dq.PopFront(); ok && back == t {
				return true, true
			}
			return true, false
		}
	}
	if len(p.workers) == 0 {
		runA()
		return false, false
	}
	victim := p.workers[p.externalPushVictim()]
	if victim.dq.PushBack(t) {
		p.wakeupWorkerIfRequired()
		runA()
		return true, false
	}
	runA()
	return false, false
}
