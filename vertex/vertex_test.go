package vertex

import (
	"testing"

	"github.com/dijkstracula/pgo/compute"
	"github.com/dijkstracula/pgo/mailbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// edgeless is a Graph with the given number of vertices and no edges. The
// graph package's AdjacencyList is not used here because graph imports
// vertex, which would make this in-package test an import cycle.
type edgeless int

func (g edgeless) NumVertices() int          { return int(g) }
func (g edgeless) OutEdges(int) EdgeIterator { return noEdges{} }

type noEdges struct{}

func (noEdges) Next() (int, float64, bool) { return 0, 0, false }

type sumMsg int

func (a sumMsg) Merge(b sumMsg) sumMsg { return a + b }

func allActive(n int) []bool {
	a := make([]bool, n)
	for i := range a {
		a[i] = true
	}
	return a
}

func TestSequentialStepFoldsEveryActiveVertex(t *testing.T) {
	g := edgeless(5)
	mb := mailbox.NewSequential[sumMsg](5)

	total := SequentialStep(g, mb, 0, func(a, b int) int { return a + b }, allActive(5), func(ctx Context[sumMsg, int]) Option[int] {
		return Some(ctx.Vertex)
	})
	assert.Equal(t, 0+1+2+3+4, total)
}

func TestSequentialStepSkipsInactiveVertices(t *testing.T) {
	g := edgeless(4)
	mb := mailbox.NewSequential[sumMsg](4)
	active := []bool{true, false, true, false}

	visited := 0
	SequentialStep(g, mb, 0, func(a, b int) int { return a + b }, active, func(ctx Context[sumMsg, int]) Option[int] {
		visited++
		return None[int]()
	})
	assert.Equal(t, 2, visited)
}

func TestStepMatchesSequentialStepOnTheSameInput(t *testing.T) {
	p := compute.NewPool("vertex-test", 4)
	defer p.ShutDown()
	p.RegisterCurrentThread()

	const n = 200
	g := edgeless(n)
	mb := mailbox.NewSequential[sumMsg](n)

	total := Step(p, g, mb, 0, func(a, b int) int { return a + b }, allActive(n), func(ctx Context[sumMsg, int]) Option[int] {
		return Some(ctx.Vertex)
	})

	want := 0
	for i := 0; i < n; i++ {
		want += i
	}
	assert.Equal(t, want, total)
}

func TestContextSendEnqueuesForNextStep(t *testing.T) {
	g := edgeless(3)
	mb := mailbox.NewSequential[sumMsg](3)

	SequentialStep(g, mb, 0, func(a, b int) int { return a + b }, allActive(3), func(ctx Context[sumMsg, int]) Option[int] {
		if ctx.Vertex == 0 {
			ctx.Send(1, sumMsg(7))
		}
		return None[int]()
	})
	require.True(t, mb.Deliver())
	v, ok := mb.Receive(1)
	require.True(t, ok)
	assert.Equal(t, sumMsg(7), v)
}
