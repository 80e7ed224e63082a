// Package deque implements a fixed-capacity, lock-reduced double-ended
// queue: single-producer/single-consumer from the front (the owning
// worker), multi-consumer from the back (thieves).
//
// The owner alone calls PushFront/PopFront, advancing front and running
// tasks LIFO. Any goroutine may call PushBack/PopBack to submit work or
// steal it, advancing back FIFO. Neither ever blocks: on overflow,
// PushFront and PushBack return false and the caller is expected to run
// the task inline - a full deque is not an error.
//
// This is a chase-lev-style deque: front plays the role of the classic
// algorithm's "bottom" (the owner's private working end) and back plays the
// role of "top" (the end thieves race for). The one genuinely hard case -
// the owner popping the very last item at the same instant a thief is
// stealing it - is resolved the canonical way: the owner provisionally
// claims the slot, then arbitrates with thieves over it via a single CAS on
// back. Multi-producer PushBack (several foreign threads submitting to the
// same victim deque) is the one path the textbook algorithm doesn't cover,
// since it assumes a single pusher at the owner's end; that path is
// serialized with a small mutex used only for slow-path contention - the
// hot steal and owner paths stay lock-free.
package deque

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Deque is a fixed-capacity ring buffer over T. Capacity is rounded up to
// the next power of two so index wraparound is a bitmask, not a modulo.
//
// front and back are deliberately separated by two cpu.CacheLinePad widths
// (at least 128 bytes; a single pad is only 64 bytes on amd64): the owner
// touches front on every local push/pop, thieves touch back on every steal
// attempt, and without padding those two hot, independently-owned counters
// would thrash one cache line between cores. deque_layout_test.go checks
// this via unsafe.Offsetof: the stride from front to back must exceed 127
// bytes.
type Deque[T any] struct {
	front atomic.Int64
	_     [2]cpu.CacheLinePad
	back  atomic.Int64
	_     cpu.CacheLinePad

	pushBackMu sync.Mutex // serializes multi-producer PushBack only
	buf        []T
	mask       int64
	cap        int64
}

// New returns an empty Deque whose capacity is the smallest power of two
// greater than or equal to capacity (minimum 1).
func New[T any](capacity int) *Deque[T] {
	c := 1
	for c < capacity {
		c <<= 1
	}
	return &Deque[T]{
		buf:  make([]T, c),
		mask: int64(c - 1),
		cap:  int64(c),
	}
}

// Cap returns the deque's fixed capacity.
func (d *Deque[T]) Cap() int { return int(d.cap) }

// PushFront inserts t as the most-recently-pushed item. Owner-only; calling
// it from any goroutine other than the deque's owner violates the
// single-producer invariant everything else here relies on.
//
// Returns false if the deque is full - the caller must then run t inline
// rather than block.
func (d *Deque[T]) PushFront(t T) bool {
	front := d.front.Load()
	back := d.back.Load()
	if front-back >= d.cap {
		return false
	}
	d.buf[front&d.mask] = t
	// Release: publishes buf[front] before front becomes visible to
	// PopBack, so a thief that observes the new front always sees the slot
	// it points just past, not a half-written one.
	d.front.Store(front + 1)
	return true
}

// PopFront removes and returns the most-recently-pushed item (LIFO).
// Owner-only. When exactly one item remains, a concurrent thief may be
// racing for the same slot via PopBack; that race is resolved with a
// single CAS on back, the canonical chase-lev arbitration.
func (d *Deque[T]) PopFront() (t T, ok bool) {
	front := d.front.Load() - 1
	d.front.Store(front)
	back := d.back.Load()

	if back > front {
		// Was already empty; restore front and report nothing.
		d.front.Store(front + 1)
		var zero T
		return zero, false
	}

	t = d.buf[front&d.mask]
	if back == front {
		// Exactly one item left: race a thief for it.
		if !d.back.CompareAndSwap(back, back+1) {
			var zero T
			t, ok = zero, false
		} else {
			ok = true
		}
		d.front.Store(front + 1)
		return t, ok
	}
	return t, true
}

// PushBack inserts t at the stealing end, extending the occupied range
// backwards. It is reached when Dispatch is called by an unregistered
// external thread: that thread picks a random victim deque and inserts
// work into it without being that deque's owner, so it cannot use
// PushFront.
//
// Concurrent PushBack callers targeting the same deque are serialized by a
// mutex - the one case the lock-free steal/owner paths don't need to
// handle, since the rest of this type assumes a single pusher at the
// owner's end. Returns false if full. Note that when several foreign
// threads race to PushBack onto the same victim concurrently, PopBack
// consumes the most recently inserted of those first - the FIFO guarantee
// is between a single producer and the thieves, not across interleaved
// external producers.
func (d *Deque[T]) PushBack(t T) bool {
	d.pushBackMu.Lock()
	defer d.pushBackMu.Unlock()
	back := d.back.Load()
	front := d.front.Load()
	if front-back >= d.cap {
		return false
	}
	back--
	d.buf[back&d.mask] = t
	d.back.Store(back)
	return true
}

// PopBack removes and returns the oldest item (FIFO) - this is how thieves
// steal. Callable from any goroutine; concurrent callers racing for the
// same slot are resolved by a single CAS on back, so exactly one caller
// observes success for a given slot.
func (d *Deque[T]) PopBack() (t T, ok bool) {
	back := d.back.Load()
	front := d.front.Load()
	if back >= front {
		var zero T
		return zero, false
	}
	t = d.buf[back&d.mask]
	if d.back.CompareAndSwap(back, back+1) {
		return t, true
	}
	// Lost the race to another thief, or to the owner popping the last
	// item concurrently. The slot may already be reused by the winner, so
	// the value we read is untrustworthy; report empty and let the caller
	// retry elsewhere.
	var zero T
	return zero, false
}

// IsEmpty is a best-effort observation of emptiness, used by the parking
// protocol's pre-park check; it may be stale the instant it returns.
func (d *Deque[T]) IsEmpty() bool {
	return d.front.Load() <= d.back.Load()
}

// Len is a best-effort observation of the current occupancy.
func (d *Deque[T]) Len() int {
	n := d.front.Load() - d.back.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}
