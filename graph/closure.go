package graph

import (
	"github.com/dijkstracula/pgo/compute"
	"github.com/dijkstracula/pgo/mailbox"
	"github.com/dijkstracula/pgo/vertex"
)

// reachMsg is an "empty" message for transitive closure: its only content
// is that it arrived at all, so Merge is trivially idempotent.
type reachMsg struct{}

func (m reachMsg) Merge(reachMsg) reachMsg { return m }

// ComputeTransitiveClosure computes, for every vertex, whether it is a seed
// or reachable from one via directed edges. p may be nil to
// run single-threaded (vertex.SequentialStep). It returns the reachability
// vector and the number of super-steps run before the computation
// quiesced.
func ComputeTransitiveClosure(p *compute.Pool, g Graph, seeds []int) (reachable []bool, steps int) {
	n := g.NumVertices()
	reachable = make([]bool, n)
	for _, s := range seeds {
		reachable[s] = true
	}

	mb := newMailboxes[reachMsg](p, n)
	active := allActive(n)

	steps = runSuperSteps(mb, 0,
		func() {
			for _, s := range seeds {
				forEachOutEdge(g, s, func(dest int, _ float64) {
					mb.Send(dest, reachMsg{})
				})
			}
		},
		func(stepIndex int) {
			runStep(p, g, mb, false, func(a, b bool) bool { return a || b }, active,
				func(ctx vertex.Context[reachMsg, bool]) vertex.Option[bool] {
					v := ctx.Vertex
					if !ctx.HasMessage || reachable[v] {
						return vertex.None[bool]()
					}
					reachable[v] = true
					forEachOutEdge(g, v, func(dest int, _ float64) {
						ctx.Send(dest, reachMsg{})
					})
					return vertex.Some(true)
				})
		},
	)
	return reachable, steps
}

// newMailboxes picks a sharded mailbox store when a pool is in play, and a
// plain sequential one otherwise - the same p==nil fallback runStep uses.
func newMailboxes[M mailbox.Message[M]](p *compute.Pool, numVertices int) mailbox.Mailboxes[M] {
	if p == nil {
		return mailbox.NewSequential[M](numVertices)
	}
	return mailbox.NewSharded[M](p)
}
