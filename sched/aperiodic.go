package sched

import "math/rand"

// AperiodicPolicy is the common shape of the three build-time-selected
// aperiodic disciplines. The reschedule engine calls UpdateCurrent
// before deciding, then Put/GetNext to enqueue/dequeue.
type AperiodicPolicy interface {
	UpdateCurrent(t *Thread, now uint64, cfg Config)
	Put(t *Thread) bool
	GetNext() *Thread
	Remove(t *Thread) bool
	Peek(i int) *Thread
	Len() int
	Dump() []*Thread
}

// NewAperiodicPolicy constructs the policy selected by cfg.AperiodicPolicy.
func NewAperiodicPolicy(cfg Config, rng *rand.Rand) AperiodicPolicy {
	switch cfg.AperiodicPolicy {
	case RoundRobin:
		return NewRoundRobinQueue(cfg.MaxQueueSize)
	case Lottery:
		return NewLotteryQueue(cfg.MaxQueueSize, rng)
	case Dynamic:
		return NewDynamicQueue(cfg.MaxQueueSize, cfg.DynamicMode, rng)
	default:
		panic("sched: no aperiodic scheduler selected (impossible)")
	}
}

// DynamicQueue implements the priority-plus-runtime dynamic policy:
// key = priority + run_time (lifetime mode) or priority +
// min(cur_run_time, quantum) (quantum mode), idle forced to IdlePriority,
// with a small jitter to break ties among equal-priority threads. It
// reuses EDFQueue's heap since the dynamic key behaves exactly like an
// EDF deadline: smallest key runs next.
type DynamicQueue struct {
	mode DynamicMode
	q    *EDFQueue
	rng  *rand.Rand
}

func NewDynamicQueue(capacity int, mode DynamicMode, rng *rand.Rand) *DynamicQueue {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &DynamicQueue{mode: mode, q: NewEDFQueue(QueueAperiodic, capacity), rng: rng}
}

// UpdateCurrent recomputes t.Deadline as the dynamic priority key,
// preserving the original's clamp-then-jitter ordering: the key is
// first clamped so it cannot exceed idleJitterGuard, and only then is
// jitter added, capped so that a real thread's key never reaches
// IdlePriority.
func (q *DynamicQueue) UpdateCurrent(t *Thread, now uint64, cfg Config) {
	if t.Constraints.Type != Aperiodic {
		return
	}
	if t.IsIdle {
		t.Deadline = IdlePriority
		return
	}

	base := t.Constraints.Aperiodic.Priority
	var key uint64
	switch q.mode {
	case DynamicLifetime:
		key = base + t.RunTime
	default: // DynamicQuantum
		quantum := cfg.AperiodicQuantumNS
		cur := t.CurRunTime
		if cur > quantum {
			cur = quantum
		}
		key = base + cur
	}

	if key < base || key > idleJitterGuard {
		// overflowed, or close enough to the idle floor that jitter
		// could reach it
		key = idleJitterGuard
	}
	jitter := now & 0xfff
	if jitter >= IdlePriority-key {
		// the jitter would reach (or wrap past) the idle floor
		jitter = IdlePriority - key - 1
	}
	key += jitter
	t.Deadline = key
}

func (q *DynamicQueue) Put(t *Thread) bool      { return q.q.Enqueue(t) }
func (q *DynamicQueue) GetNext() *Thread        { return q.q.Dequeue() }
func (q *DynamicQueue) Remove(t *Thread) bool   { return q.q.Remove(t) }
func (q *DynamicQueue) Len() int                { return q.q.Len() }
func (q *DynamicQueue) Dump() []*Thread         { return q.q.Dump() }

// Peek returns the i-th thread in the underlying heap's storage order
// (not dequeue order); used only by work-stealing, which only needs
// "some prospective thread", not ordering.
func (q *DynamicQueue) Peek(i int) *Thread {
	d := q.q.Dump()
	if i < 0 || i >= len(d) {
		return nil
	}
	return d[i]
}
