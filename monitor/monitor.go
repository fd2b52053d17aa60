package monitor

import (
	"sync"
	"sync/atomic"
)

// DebugState is the shared snapshot the leader publishes and every
// follower propagates locally, the Go analogue of the original's
// sync_dr0..sync_dr7 globals (debug registers). It is kept generic
// rather than x86-specific, since nothing at this layer depends on the
// concrete register shape — only on the publish/propagate protocol
// carrying it.
type DebugState struct {
	Registers [8]uint64
}

// Follower is the per-CPU callback interface a caller implements to
// react to entering and leaving the monitor: typically pausing the
// scheduler's timer and, on propagate, writing the published
// DebugState into real hardware state.
type Follower interface {
	// Propagate is called by every follower CPU once the leader has
	// published a new DebugState, to apply it locally. The leader's own
	// Follower is not called: it is the source of the published state.
	Propagate(DebugState)
}

// Monitor coordinates a world-stop across n CPUs using three counting
// barriers (entry, update, exit), matching nk_monitor_sync_entry /
// monitor_init_lock / monitor_deinit_lock.
type Monitor struct {
	n int

	entry  *Barrier
	update *Barrier
	exit   *Barrier

	entryFlag  int32 // CAS-guarded, 0 = no one in the monitor
	entryCPU   int32
	mu         sync.Mutex
	state      DebugState
	followers  []Follower
}

// NewMonitor builds a Monitor for n CPUs. followers[i] is consulted for
// CPU i; it may be nil for a CPU that does not need to react.
func NewMonitor(n int, followers []Follower) *Monitor {
	return &Monitor{
		n:         n,
		entry:     NewBarrier(n),
		update:    NewBarrier(n),
		exit:      NewBarrier(n),
		followers: followers,
	}
}

// Check reports whether the monitor is currently entered and, if so,
// which CPU is the leader — nk_monitor_check.
func (m *Monitor) Check() (entered bool, leaderCPU int) {
	return atomic.LoadInt32(&m.entryFlag) != 0, int(atomic.LoadInt32(&m.entryCPU))
}

// Enter is called by the CPU that wants to become leader. It wins the
// CAS race to set entryFlag, becomes leader, and is responsible for
// calling Leave, which publishes the new state; if it loses the race it instead behaves
// as a follower until the current leader releases the monitor,
// matching monitor_init_lock's retry loop.
func (m *Monitor) Enter(cpuIdx int, broadcast func()) bool {
	for !atomic.CompareAndSwapInt32(&m.entryFlag, 0, 1) {
		m.SyncEntry(cpuIdx)
	}
	atomic.StoreInt32(&m.entryCPU, int32(cpuIdx))

	if broadcast != nil {
		broadcast()
	}
	m.entry.Wait()
	return true
}

// SyncEntry is what every non-leader CPU calls once it has been
// NMI'd (or polls) into the monitor: wait for the leader to arrive,
// wait for the leader's published state, propagate it locally, then
// signal readiness to leave — nk_monitor_sync_entry.
func (m *Monitor) SyncEntry(cpuIdx int) {
	m.entry.Wait()
	m.update.Wait()

	m.mu.Lock()
	state := m.state
	m.mu.Unlock()
	if cpuIdx >= 0 && cpuIdx < len(m.followers) && m.followers[cpuIdx] != nil {
		m.followers[cpuIdx].Propagate(state)
	}

	m.exit.Wait()
}

// Leave is called by the leader to publish state, release followers
// through update/exit, and clear the entry flag — monitor_deinit_lock.
func (m *Monitor) Leave(cpuIdx int, state DebugState) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()

	m.update.Wait()
	atomic.StoreInt32(&m.entryFlag, 0)
	m.exit.Wait()
}
