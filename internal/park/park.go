// Package park implements a non-blocking condition: a ticketed parking
// protocol that lets a worker commit to sleeping without ever losing a
// concurrent wake-up.
//
// The textbook hazard this avoids: a worker finds its queues empty and
// decides to park; in the instant between that check and actually going to
// sleep, a producer pushes a task and calls Notify. Naive condition-variable
// code loses that wake-up and the worker sleeps forever (or until some
// unrelated notify rescues it). This is solved the classic "event count"
// way: PreWait hands back a ticket (the current epoch, read under the same
// lock Notify bumps it under), and CommitWait only actually blocks if the
// epoch is still exactly the ticket by the time it checks - if a Notify
// landed anywhere between PreWait and CommitWait, the epoch has already
// moved on and CommitWait returns immediately.
package park

import (
	"sync"
	"sync/atomic"
)

// Condition is a single, shared instance of the protocol - one per pool,
// used by every worker's idle-park path. It is distinct from the per-thread
// parking mutexes compute.Pool keeps for the Join/ParallelFor wake-up
// handshake, which target one specific waiting thread instead of
// broadcasting to whichever worker happens to be parked.
type Condition struct {
	mu      sync.Mutex
	cond    *sync.Cond
	epoch   uint64
	waiters atomic.Int64
}

// New returns a ready-to-use Condition.
func New() *Condition {
	c := &Condition{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Ticket is the epoch value observed by PreWait, to be handed to CommitWait.
type Ticket uint64

// PreWait records that a worker intends to park and returns a ticket
// capturing the current epoch. Call this before the best-effort emptiness
// check across all deques.
func (c *Condition) PreWait() Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waiters.Add(1)
	return Ticket(c.epoch)
}

// CancelWait undoes PreWait when the caller found work instead of parking.
func (c *Condition) CancelWait() {
	c.waiters.Add(-1)
}

// CommitWait blocks until a Notify/NotifyAll advances the epoch past
// ticket, then returns. workerIndex is accepted (and otherwise unused by
// this shared instance) so call sites read the same way regardless of
// whether they're ultimately backed by a shared or a per-thread parking
// primitive.
func (c *Condition) CommitWait(workerIndex uint32, ticket Ticket) {
	c.mu.Lock()
	for Ticket(c.epoch) == ticket {
		c.cond.Wait()
	}
	c.mu.Unlock()
	c.waiters.Add(-1)
}

// Notify wakes at least one parked waiter, if any are parked. It is cheap
// to call unconditionally from a producer; the waiters counter lets
// compute's wakeupWorkerIfRequired skip the call entirely when nobody is
// parked to receive it.
func (c *Condition) Notify() {
	c.mu.Lock()
	c.epoch++
	c.mu.Unlock()
	c.cond.Signal()
}

// NotifyAll wakes every parked waiter; used at shutdown.
func (c *Condition) NotifyAll() {
	c.mu.Lock()
	c.epoch++
	c.mu.Unlock()
	c.cond.Broadcast()
}

// Waiters returns a best-effort count of currently-parked (or about to
// park) workers.
func (c *Condition) Waiters() int64 {
	return c.waiters.Load()
}
