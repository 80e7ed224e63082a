package graph

import (
	"github.com/dijkstracula/pgo/compute"
	"github.com/dijkstracula/pgo/vertex"
)

// InfiniteDistance marks a vertex ComputeBFS never reached (in both its
// distance and predecessor outputs), and the predecessor of a vertex
// ComputeShortestPaths never reached; ComputeShortestPaths reports such a
// vertex's distance as +Inf instead.
const InfiniteDistance = -1

// bfsMsg carries who sent it; the hop distance it implies is the step
// index it's delivered on, not a field on the message itself (the first
// arrival at a vertex during step s is always s hops from some seed).
type bfsMsg struct {
	predecessor int
}

func (m bfsMsg) Merge(other bfsMsg) bfsMsg {
	if other.predecessor < m.predecessor {
		return other
	}
	return m
}

// ComputeBFS computes, for every vertex, its hop distance from the
// nearest seed (InfiniteDistance if unreachable) and a predecessor tree.
// p may be nil to run single-threaded.
func ComputeBFS(p *compute.Pool, g Graph, seeds []int) (distance []int, predecessor []int, steps int) {
	n := g.NumVertices()
	distance = make([]int, n)
	predecessor = make([]int, n)
	for i := range distance {
		distance[i] = InfiniteDistance
		predecessor[i] = InfiniteDistance
	}
	for _, s := range seeds {
		distance[s] = 0
	}

	mb := newMailboxes[bfsMsg](p, n)
	active := allActive(n)

	steps = runSuperSteps(mb, 0,
		func() {
			for _, s := range seeds {
				forEachOutEdge(g, s, func(dest int, _ float64) {
					mb.Send(dest, bfsMsg{predecessor: s})
				})
			}
		},
		func(stepIndex int) {
			runStep(p, g, mb, 0, func(a, b int) int { return a }, active,
				func(ctx vertex.Context[bfsMsg, int]) vertex.Option[int] {
					v := ctx.Vertex
					if !ctx.HasMessage || distance[v] != InfiniteDistance {
						return vertex.None[int]()
					}
					distance[v] = stepIndex
					predecessor[v] = ctx.Message.predecessor
					forEachOutEdge(g, v, func(dest int, _ float64) {
						ctx.Send(dest, bfsMsg{predecessor: v})
					})
					return vertex.None[int]()
				})
		},
	)
	return distance, predecessor, steps
}
