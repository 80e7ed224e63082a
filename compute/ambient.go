package compute

import (
	"sync/atomic"

	"github.com/dijkstracula/pgo/internal/platform"
)

var (
	ambientPool     atomic.Pointer[Pool]
	ambientOverride = platform.MakeKey[*Pool]()
)

// Ambient returns the calling goroutine's ambient pool: the one most
// recently installed for it by WithPool, if any; otherwise the
// process-wide default installed by SetAmbient; otherwise nil.
func Ambient() *Pool {
	if p, ok := ambientOverride.Get(); ok {
		return p
	}
	return ambientPool.Load()
}

// SetAmbient installs p as the process-wide default pool, returned by
// Ambient on any goroutine that hasn't called WithPool itself. Returns
// whatever was installed before (nil if nothing was).
func SetAmbient(p *Pool) *Pool {
	return ambientPool.Swap(p)
}

// WithPool runs fn with p installed as the ambient pool for the calling
// goroutine only - concurrent callers on other goroutines never observe
// each other's override, unlike a single process-wide pointer. Whatever
// was ambient for this goroutine beforehand (its own prior WithPool
// override, or none at all) is restored once fn returns, including when fn
// panics, so a panicking caller never leaves this goroutine's ambient pool
// clobbered, and the override never leaks into a goroutine fn itself
// spawns (each goroutine's TLS key entry is independent).
func WithPool(p *Pool, fn func()) {
	prev, hadPrev := ambientOverride.Get()
	ambientOverride.Set(p)
	defer func() {
		if hadPrev {
			ambientOverride.Set(prev)
		} else {
			ambientOverride.Delete()
		}
	}()
	fn()
}
