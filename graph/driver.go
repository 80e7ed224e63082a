package graph

import (
	"github.com/dijkstracula/pgo/compute"
	"github.com/dijkstracula/pgo/mailbox"
	"github.com/dijkstracula/pgo/vertex"
)

// runSuperSteps drives the two-phase super-step loop shared by every
// algorithm in this package: seed sends a round of messages with no prior
// delivery (this counts as the algorithm's step 0), then repeatedly
// delivers and runs stepFn for as long as delivery produces at least one
// message, up to maxSteps (0 means unbounded). It returns the number of
// steps actually run.
func runSuperSteps[M mailbox.Message[M]](mb mailbox.Mailboxes[M], maxSteps int, seed func(), stepFn func(stepIndex int)) int {
	seed()
	steps := 1
	for mb.Deliver() {
		if maxSteps > 0 && steps >= maxSteps {
			break
		}
		stepFn(steps)
		steps++
	}
	return steps
}

// runStep dispatches to vertex.Step when a pool is supplied, or
// vertex.SequentialStep when p is nil - the same fallback used for
// parallelism==1 or tests, generalized to "no pool at all".
func runStep[M mailbox.Message[M], G any](
	p *compute.Pool,
	g Graph,
	mb mailbox.Mailboxes[M],
	initial G,
	merge func(a, b G) G,
	active []bool,
	fn func(vertex.Context[M, G]) vertex.Option[G],
) G {
	if p == nil {
		return vertex.SequentialStep(g, mb, initial, merge, active, fn)
	}
	return vertex.Step(p, g, mb, initial, merge, active, fn)
}

func allActive(n int) []bool {
	a := make([]bool, n)
	for i := range a {
		a[i] = true
	}
	return a
}

func forEachOutEdge(g Graph, v int, fn func(dest int, weight float64)) {
	it := g.OutEdges(v)
	for {
		dest, weight, ok := it.Next()
		if !ok {
			return
		}
		fn(dest, weight)
	}
}
