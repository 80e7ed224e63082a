// Package mailbox implements per-vertex message inboxes for the
// vertex-parallel graph engine: every vertex has a mailbox that commutes
// multiple senders' messages together via a user-supplied Merge, and a
// pool of worker-sharded outboxes so concurrent senders from different
// pool threads never contend on the same lock.
package mailbox

import (
	"sync"

	"github.com/dijkstracula/pgo/compute"
)

// Message is any payload a vertex can send itself (across a super-step) or
// a neighbor. Merge must be commutative and associative: the order
// multiple senders' messages arrive in is never guaranteed, only that all
// of them get folded together before the receiving vertex's next step.
type Message[T any] interface {
	Merge(other T) T
}

// Mailboxes is the full per-super-step message store across every vertex:
// senders call Send (from inside a Step callback, any pool thread)
// to enqueue a message for a destination vertex in next step's inbox, and
// Deliver swaps the "next" generation into "current" at a super-step
// boundary, returning whether any vertex received anything (false means
// the computation has quiesced).
type Mailboxes[M Message[M]] interface {
	// Send enqueues msg for vertex dest, to be visible starting next step.
	Send(dest int, msg M)
	// Receive returns the message delivered to vertex v this step, if any.
	Receive(v int) (M, bool)
	// Deliver swaps the pending generation into the current one. Returns
	// true iff at least one vertex received a message.
	Deliver() bool
}

// Sequential is the simplest Mailboxes: one map generation per step,
// guarded by nothing because it is only ever touched by SequentialStep's
// single calling goroutine. Useful for tests and for graphs too small to
// benefit from sharding.
type Sequential[M Message[M]] struct {
	numVertices int
	current     map[int]M
	pending     map[int]M
}

// NewSequential returns a Sequential mailbox store sized for numVertices
// vertices (0-indexed, [0, numVertices)).
func NewSequential[M Message[M]](numVertices int) *Sequential[M] {
	return &Sequential[M]{
		numVertices: numVertices,
		current:     make(map[int]M),
		pending:     make(map[int]M),
	}
}

func (s *Sequential[M]) Send(dest int, msg M) {
	if existing, ok := s.pending[dest]; ok {
		msg = existing.Merge(msg)
	}
	s.pending[dest] = msg
}

func (s *Sequential[M]) Receive(v int) (M, bool) {
	m, ok := s.current[v]
	return m, ok
}

func (s *Sequential[M]) Deliver() bool {
	s.current = s.pending
	s.pending = make(map[int]M)
	return len(s.current) > 0
}

// shard is one worker's slice of the pending generation, with its own
// lock so sends from different pool threads never block each other.
type shard[M Message[M]] struct {
	mu      sync.Mutex
	pending map[int]M
}

// Sharded is a Mailboxes implementation with one pending-message shard per
// pool fast-path thread slot (every worker plus every external fast-path
// slot), selected by compute.CurrentThreadIndex, so that
// concurrent Step callbacks running on different workers never contend on
// the same map. Deliver merges every shard into a single current
// generation; it must only be called between super-steps, never
// concurrently with Send.
type Sharded[M Message[M]] struct {
	pool    *compute.Pool
	shards  []*shard[M]
	current map[int]M
}

// NewSharded returns a Sharded mailbox store with p.Parallelism() shards:
// one per worker of p and one per external fast-path slot.
func NewSharded[M Message[M]](p *compute.Pool) *Sharded[M] {
	shards := make([]*shard[M], p.Parallelism())
	for i := range shards {
		shards[i] = &shard[M]{pending: make(map[int]M)}
	}
	return &Sharded[M]{pool: p, shards: shards, current: make(map[int]M)}
}

func (s *Sharded[M]) shardFor() *shard[M] {
	id, ok := s.pool.CurrentThreadIndex()
	if !ok || int(id) >= len(s.shards) {
		// An unregistered thread has no dedicated shard; route it through
		// shard 0 rather than panicking, since sending a message is not
		// itself a fast-path contract the caller needs to have opted into.
		return s.shards[0]
	}
	return s.shards[id]
}

func (s *Sharded[M]) Send(dest int, msg M) {
	sh := s.shardFor()
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if existing, ok := sh.pending[dest]; ok {
		msg = existing.Merge(msg)
	}
	sh.pending[dest] = msg
}

func (s *Sharded[M]) Receive(v int) (M, bool) {
	m, ok := s.current[v]
	return m, ok
}

// Deliver folds every shard's pending generation into current, merging
// across shards the same way Send merges within one. Must be called with
// no concurrent Send in flight (i.e. between super-steps).
func (s *Sharded[M]) Deliver() bool {
	merged := make(map[int]M)
	for _, sh := range s.shards {
		for dest, msg := range sh.pending {
			if existing, ok := merged[dest]; ok {
				msg = existing.Merge(msg)
			}
			merged[dest] = msg
		}
		sh.pending = make(map[int]M)
	}
	s.current = merged
	return len(s.current) > 0
}
