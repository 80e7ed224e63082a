package graph

import (
	"math"

	"github.com/dijkstracula/pgo/compute"
	"github.com/dijkstracula/pgo/vertex"
)

// ssspMsg carries a candidate distance and the vertex that offered it;
// Merge keeps whichever candidate is smaller.
type ssspMsg struct {
	predecessor int
	distance    float64
}

func (a ssspMsg) Merge(b ssspMsg) ssspMsg {
	if b.distance < a.distance {
		return b
	}
	return a
}

// ComputeShortestPaths computes single-source shortest paths from start.
// stop is an optional early-stop vertex (pass -1 for none): once its
// distance is known, vertices whose candidate distance already exceeds it
// stop propagating further, since they cannot improve the answer for
// anything still of interest. maxSteps caps the number of super-steps (0
// means unbounded). p may be nil to run single-threaded.
//
// Negative edge weights are only correct when stop is -1: with an early
// stop vertex, "the first time its distance is set" is not guaranteed to
// be its true shortest distance once negative weights are in play, so
// that combination is rejected with ErrCycleDetected rather than silently
// returning a wrong answer.
func ComputeShortestPaths(p *compute.Pool, g Graph, start, stop, maxSteps int) (distance []float64, predecessor []int, steps int, err error) {
	hasStop := stop >= 0
	if hasStop && hasNegativeEdge(g) {
		return nil, nil, 0, ErrCycleDetected
	}

	n := g.NumVertices()
	distance = make([]float64, n)
	predecessor = make([]int, n)
	for i := range distance {
		distance[i] = math.Inf(1)
		predecessor[i] = InfiniteDistance
	}
	distance[start] = 0

	mb := newMailboxes[ssspMsg](p, n)
	active := allActive(n)

	var endVertexDistance float64
	endKnown := false
	quietStepsSinceEndKnown := 0

	runOneStep := func() bool {
		return runStep(p, g, mb, false, func(a, b bool) bool { return a || b }, active,
			func(ctx vertex.Context[ssspMsg, bool]) vertex.Option[bool] {
				v := ctx.Vertex
				if !ctx.HasMessage {
					return vertex.None[bool]()
				}
				msg := ctx.Message
				if hasStop && endKnown && msg.distance > endVertexDistance {
					return vertex.None[bool]()
				}
				if msg.distance >= distance[v] {
					return vertex.None[bool]()
				}
				distance[v] = msg.distance
				predecessor[v] = msg.predecessor
				if hasStop && v == stop {
					endVertexDistance = msg.distance
					endKnown = true
				}
				forEachOutEdge(g, v, func(dest int, weight float64) {
					next := msg.distance + weight
					if hasStop && endKnown && next > endVertexDistance {
						return
					}
					ctx.Send(dest, ssspMsg{predecessor: v, distance: next})
				})
				return vertex.Some(true)
			})
	}

	forEachOutEdge(g, start, func(dest int, weight float64) {
		mb.Send(dest, ssspMsg{predecessor: start, distance: weight})
	})
	steps = 1
	for mb.Deliver() {
		if maxSteps > 0 && steps >= maxSteps {
			break
		}
		improved := runOneStep()
		steps++
		if hasStop && endKnown {
			if improved {
				quietStepsSinceEndKnown = 0
			} else {
				quietStepsSinceEndKnown++
				if quietStepsSinceEndKnown >= 1 {
					break
				}
			}
		}
	}
	return distance, predecessor, steps, nil
}

func hasNegativeEdge(g Graph) bool {
	for v := 0; v < g.NumVertices(); v++ {
		found := false
		forEachOutEdge(g, v, func(_ int, weight float64) {
			if weight < 0 {
				found = true
			}
		})
		if found {
			return true
		}
	}
	return false
}
