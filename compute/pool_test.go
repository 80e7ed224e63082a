package compute

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchRunsOnAWorker(t *testing.T) {
	p := NewPool("test", 4)
	defer p.ShutDown()

	var wg sync.WaitGroup
	wg.Add(1)
	var ran atomic.Bool
	p.Dispatch(func() {
		ran.Store(true)
		wg.Done()
	})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatched task never ran")
	}
	assert.True(t, ran.Load())
}

func TestParallelism(t *testing.T) {
	p := NewPool("test", 6, WithExternalFastPathThreads(2))
	defer p.ShutDown()
	assert.Equal(t, 8, p.Parallelism())
	assert.Equal(t, p.TotalFastPathThreads(), p.Parallelism())
}

func TestJoinFromRegisteredExternalThread(t *testing.T) {
	p := NewPool("test", 4)
	defer p.ShutDown()
	p.RegisterCurrentThread()

	var a, b atomic.Bool
	p.Join(func() { a.Store(true) }, func() { b.Store(true) })
	assert.True(t, a.Load())
	assert.True(t, b.Load())
}

func TestJoinFromUnregisteredThreadPanicsByDefault(t *testing.T) {
	p := NewPool("test", 2)
	defer p.ShutDown()

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.Panics(t, func() {
			p.Join(func() {}, func() {})
		})
	}()
	<-done
}

func TestJoinFromUnregisteredThreadRunsInlineWhenAllowed(t *testing.T) {
	p := NewPool("test", 2, WithAllowNonFastPathThreads(true))
	defer p.ShutDown()

	done := make(chan struct{})
	go func() {
		defer close(done)
		var a, b bool
		p.Join(func() { a = true }, func() { b = true })
		assert.True(t, a)
		assert.True(t, b)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Join never returned")
	}
}

// TestDispatchOverflowRunsInline is the deque_overflow_inline_execution
// scenario: a tiny deque capacity and more dispatches than it can hold, to
// prove Dispatch never blocks even when every worker's deque is full.
func TestDispatchOverflowRunsInline(t *testing.T) {
	p := NewPool("test", 1, WithDequeCapacity(4))
	defer p.ShutDown()

	var count atomic.Int64
	var wg sync.WaitGroup
	wg.Add(8)
	for i := 0; i < 8; i++ {
		p.Dispatch(func() {
			count.Add(1)
			wg.Done()
		})
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not all dispatches completed")
	}
	assert.EqualValues(t, 8, count.Load())
}

func TestRegisterCurrentThreadBeyondCapacityPanics(t *testing.T) {
	p := NewPool("test", 2, WithExternalFastPathThreads(1))
	defer p.ShutDown()
	p.RegisterCurrentThread()

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.Panics(t, func() { p.RegisterCurrentThread() })
	}()
	<-done
}

func TestRegisterCurrentThreadIsIdempotentForSameGoroutine(t *testing.T) {
	p := NewPool("test", 2, WithExternalFastPathThreads(1))
	defer p.ShutDown()
	p.RegisterCurrentThread()
	assert.NotPanics(t, func() { p.RegisterCurrentThread() })
}

func TestUnregisterCurrentThreadClearsRegistration(t *testing.T) {
	p := NewPool("test", 2, WithExternalFastPathThreads(1))
	defer p.ShutDown()

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.RegisterCurrentThread()
		_, ok := p.CurrentThreadIndex()
		require.True(t, ok)
		p.UnregisterCurrentThread()
		_, ok = p.CurrentThreadIndex()
		assert.False(t, ok, "UnregisterCurrentThread must clear the TLS entry")
	}()
	<-done
}

// TestIdleWorkersActuallyPark is the fix for the spin/park livelock: every
// worker in a pool with nothing to do must eventually reach the parked
// state instead of endlessly re-winning the single spin slot and busy
// looping forever.
func TestIdleWorkersActuallyPark(t *testing.T) {
	p := NewPool("test", 4, WithSpinConfig(SpinConfig{MaxSpinningThreads: 1, SpinIterations: 40, MinActive: 4}))
	defer p.ShutDown()

	assert.Eventually(t, func() bool {
		return p.idle.Waiters() > 0
	}, time.Second, time.Millisecond, "no worker ever reached the parked state on an idle pool")
}

// TestStealAnyAdvancesCallersPersistentRNG checks that repeated steals from
// the same logical thread actually consume (and so evolve) its own
// persistent RNG, rather than rebuilding an identically-seeded one - two
// consecutive calls with an otherwise-identical RNG would always probe the
// same starting victim.
func TestStealAnyAdvancesCallersPersistentRNG(t *testing.T) {
	p := NewPool("test", 8)
	defer p.ShutDown()

	rng := p.rngFor(0)
	before := rng.state
	p.stealAny(0, rng)
	afterFirst := rng.state
	p.stealAny(0, rng)
	afterSecond := rng.state

	assert.NotEqual(t, before, afterFirst, "stealAny must consume the caller's own persistent RNG")
	assert.NotEqual(t, afterFirst, afterSecond, "a second stealAny call must advance the RNG further still")
}
