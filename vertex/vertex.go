// Package vertex implements the Pregel-style vertex-parallel super-step
// engine: one user callback invoked per active vertex per step, each
// callback able to read the message delivered to it, send messages to
// neighbors for the next step, and fold a value into a step-wide global
// accumulator.
package vertex

import (
	"golang.org/x/sys/cpu"

	"github.com/dijkstracula/pgo/compute"
	"github.com/dijkstracula/pgo/mailbox"
)

// Graph is the minimal read-only view the super-step engine needs of a
// graph projection: how many vertices there are, and an iterator over one
// vertex's outgoing edges. The graph package's algorithms (C7) build on
// top of this rather than the other way around, so this lives here, at
// the engine layer (C6), and the graph package imports it.
type Graph interface {
	NumVertices() int
	OutEdges(v int) EdgeIterator
}

// EdgeIterator walks one vertex's outgoing edges. Next returns ok=false
// once exhausted.
type EdgeIterator interface {
	Next() (dest int, weight float64, ok bool)
}

// Option is a minimal optional value: a per-vertex Step callback returns
// None when it has no contribution to fold into the step's global
// accumulator this round, Some(v) otherwise.
type Option[G any] struct {
	value G
	ok    bool
}

// Some wraps v as a present Option.
func Some[G any](v G) Option[G] { return Option[G]{value: v, ok: true} }

// None is the absent Option for G.
func None[G any]() Option[G] {
	var zero G
	return Option[G]{ok: false, value: zero}
}

// Get reports whether the Option holds a value, and what it is.
func (o Option[G]) Get() (G, bool) { return o.value, o.ok }

// Context is handed to a vertex's Step callback: which vertex this
// invocation is computing for, the graph it belongs to, the message
// delivered to it this step (if any), the global value as of the start of
// this step, and Send to enqueue a message for next step.
type Context[M mailbox.Message[M], G any] struct {
	Vertex     int
	Graph      Graph
	Message    M
	HasMessage bool
	Global     G

	mailboxes mailbox.Mailboxes[M]
}

// Send enqueues msg for delivery to vertex dest at the start of next step.
func (c Context[M, G]) Send(dest int, msg M) {
	c.mailboxes.Send(dest, msg)
}

// globalSlot is one worker thread's private accumulator slot: padded to a
// full cache line so concurrent workers folding into their own slots never
// false-share, the same layout discipline internal/deque's header uses.
type globalSlot[G any] struct {
	value  G
	active bool
	_      cpu.CacheLinePad
}

// Step runs one super-step across every vertex for which active[v] is
// true, via p's worker pool. Each active vertex's callback result (if
// Some) is folded, via merge, into a per-worker-thread accumulator slot to
// avoid every worker contending on one shared value; those slots are
// themselves folded together (in merge's care, so merge had better really
// be commutative and associative) once ParallelFor returns. Step returns
// the accumulated global for this step, starting from initial.
func Step[M mailbox.Message[M], G any](
	p *compute.Pool,
	g Graph,
	mb mailbox.Mailboxes[M],
	initial G,
	merge func(a, b G) G,
	active []bool,
	fn func(Context[M, G]) Option[G],
) G {
	slots := make([]globalSlot[G], p.TotalFastPathThreads())
	n := g.NumVertices()

	p.ParallelFor(n, func(start, end, total int) {
		id, registered := p.CurrentThreadIndex()
		if !registered || int(id) >= len(slots) {
			id = 0
		}
		slot := &slots[id]

		for v := start; v < end; v++ {
			if v >= len(active) || !active[v] {
				continue
			}
			msg, hasMsg := mb.Receive(v)
			ctx := Context[M, G]{
				Vertex:     v,
				Graph:      g,
				Message:    msg,
				HasMessage: hasMsg,
				Global:     initial,
				mailboxes:  mb,
			}
			val, ok := fn(ctx).Get()
			if !ok {
				continue
			}
			if !slot.active {
				slot.value = val
				slot.active = true
				continue
			}
			slot.value = merge(slot.value, val)
		}
	})

	result := initial
	for i := range slots {
		if slots[i].active {
			result = merge(result, slots[i].value)
		}
	}
	return result
}

// SequentialStep is Step without any pool involvement, for small graphs or
// tests: every active vertex runs in index order on the calling goroutine.
func SequentialStep[M mailbox.Message[M], G any](
	g Graph,
	mb mailbox.Mailboxes[M],
	initial G,
	merge func(a, b G) G,
	active []bool,
	fn func(Context[M, G]) Option[G],
) G {
	result := initial
	for v := 0; v < g.NumVertices(); v++ {
		if v >= len(active) || !active[v] {
			continue
		}
		msg, hasMsg := mb.Receive(v)
		ctx := Context[M, G]{
			Vertex:     v,
			Graph:      g,
			Message:    msg,
			HasMessage: hasMsg,
			Global:     initial,
			mailboxes:  mb,
		}
		if val, ok := fn(ctx).Get(); ok {
			result = merge(result, val)
		}
	}
	return result
}
