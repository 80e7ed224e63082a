package compute

import "github.com/dijkstracula/pgo/internal/platform"

// descriptor is the packed atomic state word backing every Join and
// ParallelFor wait: a {done:1, wake_thread_id:31, wake_required:1}
// bitfield, manipulated with the same extract/set-by-CAS-loop idiom as
// Pool.spinState's packed word in pool.go.
//
//	bit 0      done
//	bit 1      wakeRequired
//	bits 2-32  wakeThreadID (valid iff wakeRequired)
const (
	descDoneBit         = uint64(1) << 0
	descWakeRequiredBit = uint64(1) << 1
	descWakeThreadShift = 2
	descWakeThreadBits  = 31
	descWakeThreadMask  = (uint64(1)<<descWakeThreadBits - 1) << descWakeThreadShift
)

// externalSentinelThreadID is the largest thread ID the wakeThreadID field
// can hold, distinct from any of the pool's own worker indices. Nothing
// registers it as a wake target: a registered external fast-path caller
// waits under its own slot index (see Pool.waitForDescriptor).
const externalSentinelThreadID = uint32(1)<<descWakeThreadBits - 1

func descExtractDone(state uint64) bool {
	return state&descDoneBit != 0
}

func descExtractWakeRequired(state uint64) bool {
	return state&descWakeRequiredBit != 0
}

func descExtractWakeThreadID(state uint64) uint32 {
	return uint32((state & descWakeThreadMask) >> descWakeThreadShift)
}

func descSetDone(state uint64) uint64 {
	return state | descDoneBit
}

func descSetWakeRequired(state uint64, threadID uint32) uint64 {
	state &^= descWakeThreadMask
	state |= (uint64(threadID) << descWakeThreadShift) & descWakeThreadMask
	state |= descWakeRequiredBit
	return state
}

// descriptor is embedded in joinDescriptor, which both Join and
// ParallelFor's recursive splits use.
type descriptor struct {
	state platform.AtomicU64
}

func (d *descriptor) isDone() bool {
	return descExtractDone(d.state.LoadAcquire())
}

// registerWaiter records threadID as wanting a wake-up once the task
// completes. It returns false without modifying the state if the task was
// already done by the time this was attempted - the caller must not then
// wait, since no wake will ever arrive.
func (d *descriptor) registerWaiter(threadID uint32) bool {
	for {
		old := d.state.LoadRelaxed()
		if descExtractDone(old) {
			return false
		}
		next := descSetWakeRequired(old, threadID)
		if d.state.CompareAndSwapAcqRel(old, next) {
			return true
		}
	}
}

// markDone flips the done bit and, if some thread had registered itself as
// a waiter, invokes wake with that thread's ID. wake is expected to
// lock+unlock that thread's designated parking mutex - kept as a callback
// here so descriptor itself never has to know about Pool's parking-mutex
// array.
func (d *descriptor) markDone(wake func(threadID uint32)) {
	for {
		old := d.state.LoadRelaxed()
		next := descSetDone(old)
		if d.state.CompareAndSwapAcqRel(old, next) {
			if descExtractWakeRequired(old) {
				wake(descExtractWakeThreadID(old))
			}
			return
		}
	}
}
