package compute

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelForVisitsEveryIndexExactlyOnce(t *testing.T) {
	p := NewPool("test", 4)
	defer p.ShutDown()
	p.RegisterCurrentThread()

	const n = 10000
	var mu sync.Mutex
	seen := make(map[int]int, n)
	p.ParallelFor(n, func(start, end, total int) {
		require.Equal(t, n, total)
		mu.Lock()
		for i := start; i < end; i++ {
			seen[i]++
		}
		mu.Unlock()
	})
	require.Len(t, seen, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, 1, seen[i], "index %d visited %d times", i, seen[i])
	}
}

func TestParallelForWithCustomGrainSize(t *testing.T) {
	p := NewPool("test", 4, WithGrainSize(3))
	defer p.ShutDown()
	p.RegisterCurrentThread()

	var count atomic.Int64
	p.ParallelFor(100, func(start, end, total int) {
		assert.LessOrEqual(t, end-start, 3)
		count.Add(int64(end - start))
	})
	assert.EqualValues(t, 100, count.Load())
}

func TestParallelForOfZeroDoesNothing(t *testing.T) {
	p := NewPool("test", 2)
	defer p.ShutDown()
	p.RegisterCurrentThread()

	called := false
	p.ParallelFor(0, func(start, end, total int) { called = true })
	assert.False(t, called)
}

func TestTryParallelForCombinesErrors(t *testing.T) {
	p := NewPool("test", 4)
	defer p.ShutDown()
	p.RegisterCurrentThread()

	err := p.TryParallelFor(10, func(start, end, total int) error {
		if start%3 == 0 {
			return fmt.Errorf("failed at %d", start)
		}
		return nil
	})
	require.Error(t, err)
}

func TestTryParallelForNoErrorsReturnsNil(t *testing.T) {
	p := NewPool("test", 4)
	defer p.ShutDown()
	p.RegisterCurrentThread()

	err := p.TryParallelFor(50, func(start, end, total int) error { return nil })
	assert.NoError(t, err)
}
