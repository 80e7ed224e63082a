// Package graph implements the vertex-parallel algorithms layered on
// compute's thread pool and mailbox's per-vertex message store: transitive
// closure, breadth-first search, and single-source shortest paths.
package graph

import "github.com/dijkstracula/pgo/vertex"

// Graph and EdgeIterator are the same read-only graph-projection contract
// the vertex-parallel engine (C6) operates over; this package's
// algorithms are just particular user functions run through vertex.Step,
// so they share its notion of a graph rather than defining a competing
// one.
type Graph = vertex.Graph

// EdgeIterator walks one vertex's outgoing edges. Next returns ok=false
// once exhausted; weight is meaningful only for algorithms that use it
// (ComputeShortestPaths), and is ignored elsewhere.
type EdgeIterator = vertex.EdgeIterator

// Error is the sentinel error type returned by this package's functions
// that can fail (AdjacencyList.Weight, ComputeShortestPaths), so callers
// can use errors.Is against the package-level values below instead of
// matching on string content.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrEdgeNotFound is returned by AdjacencyList.Weight when asked about
	// a pair of vertices with no edge between them.
	ErrEdgeNotFound Error = "graph: edge not found"
	// ErrStopSearch is not returned or used by any function in this
	// package; ComputeShortestPaths' stop-vertex early exit ends without
	// an error.
	ErrStopSearch Error = "graph: search stopped early"
	// ErrCycleDetected is returned by ComputeShortestPaths when asked to
	// stop at a specific vertex in a graph carrying a negative edge weight
	// anywhere, reachable from the source or not: with negative weights, "the moment we
	// first reach the stop vertex" is not necessarily "with the shortest
	// distance", so this combination is rejected outright rather than
	// silently returning a wrong answer.
	ErrCycleDetected Error = "graph: negative edge weight with a stop vertex is ambiguous"
)

// AdjacencyList is a minimal in-memory Graph, used directly by tests and
// by any caller without its own graph representation to adapt.
type AdjacencyList struct {
	edges [][]weightedEdge
}

type weightedEdge struct {
	dest   int
	weight float64
}

// NewAdjacencyList returns an AdjacencyList with numVertices vertices and
// no edges.
func NewAdjacencyList(numVertices int) *AdjacencyList {
	return &AdjacencyList{edges: make([][]weightedEdge, numVertices)}
}

// AddEdge adds a directed edge from -> to with the given weight. Adding
// the same (from, to) pair twice creates a parallel edge rather than
// overwriting the first; ComputeShortestPaths considers both and keeps
// whichever is shorter.
func (a *AdjacencyList) AddEdge(from, to int, weight float64) {
	a.edges[from] = append(a.edges[from], weightedEdge{dest: to, weight: weight})
}

func (a *AdjacencyList) NumVertices() int { return len(a.edges) }

func (a *AdjacencyList) OutEdges(v int) EdgeIterator {
	return &sliceEdgeIterator{edges: a.edges[v]}
}

// Weight returns the weight of the edge from -> to, or ErrEdgeNotFound if
// none exists. If parallel edges exist, the lightest is returned.
func (a *AdjacencyList) Weight(from, to int) (float64, error) {
	found := false
	var best float64
	for _, e := range a.edges[from] {
		if e.dest == to && (!found || e.weight < best) {
			best = e.weight
			found = true
		}
	}
	if !found {
		return 0, ErrEdgeNotFound
	}
	return best, nil
}

type sliceEdgeIterator struct {
	edges []weightedEdge
	pos   int
}

func (it *sliceEdgeIterator) Next() (int, float64, bool) {
	if it.pos >= len(it.edges) {
		return 0, 0, false
	}
	e := it.edges[it.pos]
	it.pos++
	return e.dest, e.weight, true
}
