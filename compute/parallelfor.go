package compute

import (
	"errors"
	"sync"
)

// ParallelFor fans the range [0, n) out across the pool via recursive
// halving (built on Join) down to a grain size, below which a sub-range
// just runs sequentially on whichever thread reached it. fn receives the
// half-open sub-range [start, end) it owns and total, the full range size
// n - bodies may see end-start as small as 1 at the leaves, or wider
// ranges when the grain size is larger. The grain size defaults to
// n/Parallelism (floored at 1) and can be overridden with WithGrainSize.
func (p *Pool) ParallelFor(n int, fn func(start, end, total int)) {
	if n <= 0 {
		return
	}
	grain := p.grainSizeFor(n)
	p.parallelForRange(0, n, n, grain, fn)
}

func (p *Pool) parallelForRange(lo, hi, total, grain int, fn func(start, end, total int)) {
	if hi-lo <= grain {
		fn(lo, hi, total)
		return
	}
	mid := lo + (hi-lo)/2
	p.joinAs(kindParallelFor,
		func() { p.parallelForRange(lo, mid, total, grain, fn) },
		func() { p.parallelForRange(mid, hi, total, grain, fn) },
	)
}

func (p *Pool) grainSizeFor(n int) int {
	if p.opts.grainSize > 0 {
		return p.opts.grainSize
	}
	g := n / p.Parallelism()
	if g < 1 {
		g = 1
	}
	return g
}

// errorCollector gathers every non-nil error across a TryParallelFor's
// leaves, since more than one leaf can fail independently and Join only
// ever combines exactly two results at a time.
type errorCollector struct {
	mu   sync.Mutex
	errs []error
}

func (c *errorCollector) add(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
}

func (c *errorCollector) join() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.Join(c.errs...)
}

// TryParallelFor is ParallelFor for an fn that can fail; every leaf still
// runs (no early cancellation), and every error returned is combined with
// errors.Join.
func (p *Pool) TryParallelFor(n int, fn func(start, end, total int) error) error {
	if n <= 0 {
		return nil
	}
	grain := p.grainSizeFor(n)
	c := &errorCollector{}
	p.tryParallelForRange(0, n, n, grain, fn, c)
	return c.join()
}

func (p *Pool) tryParallelForRange(lo, hi, total, grain int, fn func(start, end, total int) error, c *errorCollector) {
	if hi-lo <= grain {
		c.add(fn(lo, hi, total))
		return
	}
	mid := lo + (hi-lo)/2
	p.tryJoinAs(kindParallelFor,
		func() error { p.tryParallelForRange(lo, mid, total, grain, fn, c); return nil },
		func() error { p.tryParallelForRange(mid, hi, total, grain, fn, c); return nil },
	)
}
