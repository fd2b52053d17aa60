// Package monitor implements the world-stop protocol: one CPU becomes
// the leader, NMI-broadcasts every other CPU into the
// monitor, the whole set rendezvouses through three counting barriers
// (entry, update, exit) while the leader publishes a snapshot of shared
// debug state, and every follower propagates it locally before release.
package monitor

import "sync"

// Barrier is a reusable counting barrier: n goroutines call Wait, and
// none return until all n have arrived. Grounded on the original's
// nk_counting_barrier_t, translated to a generation-counted
// condition variable instead of a spin-and-CAS loop, since Go gives us
// sync.Cond for free and a goroutine parked on it costs nothing while
// waiting (unlike the original's busy-spin, which exists only because
// the kernel has nothing else to schedule onto that core).
type Barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	n          int
	count      int
	generation uint64
}

// NewBarrier builds a Barrier sized for n participants.
func NewBarrier(n int) *Barrier {
	b := &Barrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until n goroutines (across all callers since the barrier
// was last reset) have called Wait, then releases all of them together.
func (b *Barrier) Wait() {
	b.mu.Lock()
	gen := b.generation
	b.count++
	if b.count == b.n {
		b.count = 0
		b.generation++
		b.cond.Broadcast()
		b.mu.Unlock()
		return
	}
	for gen == b.generation {
		b.cond.Wait()
	}
	b.mu.Unlock()
}
