package fleet

import "sync/atomic"

// gate bounds a periodic task to a single in-flight unit of work per
// key: a tick that fails to acquire is skipped entirely, never queued.
// All three automation loops share this primitive.
type gate struct {
	busy atomic.Bool
}

func (g *gate) tryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

func (g *gate) release() {
	g.busy.Store(false)
}
