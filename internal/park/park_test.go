package park

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCommitWaitBlocksUntilNotify(t *testing.T) {
	c := New()
	ticket := c.PreWait()

	woke := make(chan struct{})
	go func() {
		c.CommitWait(0, ticket)
		close(woke)
	}()

	select {
	case <-woke:
		t.Fatal("CommitWait returned before Notify")
	case <-time.After(50 * time.Millisecond):
	}

	c.Notify()

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("CommitWait never woke after Notify")
	}
}

// TestNotifyBetweenPreWaitAndCommitWaitIsNotLost checks the Dekker-style
// guarantee this package exists for: a Notify landing anywhere after
// PreWait must still be observed by CommitWait, even if the worker hadn't
// started blocking yet.
func TestNotifyBetweenPreWaitAndCommitWaitIsNotLost(t *testing.T) {
	for trial := 0; trial < 200; trial++ {
		c := New()
		ticket := c.PreWait()

		// Simulate the gap between the emptiness check and CommitWait: the
		// notify fires here, strictly before CommitWait is ever called.
		c.Notify()

		done := make(chan struct{})
		go func() {
			c.CommitWait(0, ticket)
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("trial %d: CommitWait lost a notify that landed before it was called", trial)
		}
	}
}

func TestCancelWaitDoesNotBlockFutureCommitWait(t *testing.T) {
	c := New()
	c.PreWait()
	c.CancelWait()
	assert.Equal(t, int64(0), c.Waiters())

	ticket2 := c.PreWait()
	c.Notify()
	done := make(chan struct{})
	go func() {
		c.CommitWait(0, ticket2)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("CommitWait hung after an unrelated CancelWait")
	}
}

func TestNotifyAllWakesEveryWaiter(t *testing.T) {
	const n = 8
	c := New()
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		ticket := c.PreWait()
		go func(ticket Ticket, idx int) {
			defer wg.Done()
			c.CommitWait(uint32(idx), ticket)
		}(ticket, i)
	}

	// Give every goroutine a chance to actually enter CommitWait's Wait().
	time.Sleep(20 * time.Millisecond)
	c.NotifyAll()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NotifyAll failed to wake every parked waiter")
	}
}
