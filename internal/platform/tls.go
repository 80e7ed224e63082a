package platform

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// goroutineID extracts the calling goroutine's runtime id by parsing the
// header line of its own stack trace ("goroutine 123 [running]:"). Go
// deliberately exposes no portable goroutine-local-storage primitive; this
// is the well-known, allocation-light way of approximating one without
// resorting to linkname tricks into the runtime. It is only ever called at
// thread registration and lookup time (never on the deque/steal hot path),
// so the cost of a single small stack walk is immaterial.
//
// The runtime reuses a goroutine's id once it exits, so a LocalKey entry
// left behind by a goroutine that never cleaned up after itself could be
// silently inherited by a completely unrelated later goroutine that
// happens to land on the same id. LocalKey itself cannot close this on its
// own - by design it has no hook into a goroutine's exit - so every caller
// that owns a goroutine's full lifetime is required to pair each Set with
// a Delete before that goroutine returns. See LocalKey.Delete.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	const prefix = "goroutine "
	if i := bytes.Index(b, []byte(prefix)); i >= 0 {
		b = b[i+len(prefix):]
	}
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseInt(string(b), 10, 64)
	return id
}

// LocalKey is typed thread-local storage scoped to the calling goroutine.
// Unlike real TLS, there is no automatic cleanup when a goroutine exits:
// every call site that Sets a value is responsible for also Deleting it
// (typically via defer) before the owning goroutine returns, to avoid the
// stale-entry hazard documented on goroutineID above.
type LocalKey[T any] struct {
	values sync.Map // int64 (goroutine id) -> T
}

// MakeKey allocates a new, empty thread-local slot.
func MakeKey[T any]() *LocalKey[T] {
	return &LocalKey[T]{}
}

// Get returns the value set for the calling goroutine, if any.
func (k *LocalKey[T]) Get() (T, bool) {
	v, ok := k.values.Load(goroutineID())
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Set stores a value for the calling goroutine.
func (k *LocalKey[T]) Set(v T) {
	k.values.Store(goroutineID(), v)
}

// GetOrInsertDefault returns the value set for the calling goroutine,
// calling makeDefault and storing its result if none is set yet.
func (k *LocalKey[T]) GetOrInsertDefault(makeDefault func() T) T {
	id := goroutineID()
	if v, ok := k.values.Load(id); ok {
		return v.(T)
	}
	v := makeDefault()
	actual, loaded := k.values.LoadOrStore(id, v)
	if loaded {
		return actual.(T)
	}
	return v
}

// Delete removes the calling goroutine's value, if any. Callers that Set a
// value from a goroutine they control the full lifetime of must defer
// Delete so the entry cannot outlive the goroutine that wrote it.
func (k *LocalKey[T]) Delete() {
	k.values.Delete(goroutineID())
}
