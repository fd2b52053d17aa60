package sched

import "sync/atomic"

var nextTID uint64

// Thread is both the scheduler-visible thread state and the lifecycle
// object it describes. The original kept these as two
// cyclically-linked C structs (nk_thread_t <-> nk_sched_thread_state);
// Go's GC removes the reason for that split (see DESIGN.md), so fields
// from both live on one struct, still only ever mutated under the owning
// CPU's lock.
type Thread struct {
	TID  uint64
	Name string

	Constraints Constraints
	Status      Status
	QueueTag    QueueTag
	RunState    RunState

	IsIdle          bool
	IsInterrupt     bool
	BoundCPU        int // -1 if unbound
	CurrentCPU      int

	// Timing
	StartTime     uint64 // last switch-in
	CurRunTime    uint64 // since last switch-in
	RunTime       uint64 // cumulative for the current period/job
	Deadline      uint64 // interpreted per-type; dynamic priority key for APERIODIC
	ExitTime      uint64

	// Statistics
	ArrivalCount    uint64
	ReschedCount    uint64
	ReschedLongCount uint64
	SwitchInCount   uint64
	MissCount       uint64
	MissTimeSum     uint64
	MissTimeSumSq   uint64
	NumThefts       uint64

	destroyed bool // set by ReapSnapshots when the thread is unregistered; not read elsewhere
}

// NewThread allocates a fresh Thread in status Arrived, aperiodic by
// default at defaultPriority.
func NewThread(name string, boundCPU int, defaultPriority uint64) *Thread {
	return &Thread{
		TID:      atomic.AddUint64(&nextTID, 1),
		Name:     name,
		Status:   StatusArrived,
		QueueTag: QueueNone,
		RunState: RunSuspended,
		BoundCPU: boundCPU,
		Constraints: Constraints{
			Type:      Aperiodic,
			Aperiodic: AperiodicConstraint{Priority: defaultPriority},
		},
	}
}

// resetState clears the timing fields on (re-)admission, matching
// reset_state() in the original.
func (t *Thread) resetState() {
	t.StartTime = 0
	t.CurRunTime = 0
	t.RunTime = 0
	t.Deadline = 0
	t.ExitTime = 0
}

// resetStats clears the accounting fields on (re-)admission, matching
// reset_stats(). Aperiodic threads start with arrival_count=1 since they
// have no arrival event of their own.
func (t *Thread) resetStats() {
	if t.Constraints.Type == Aperiodic {
		t.ArrivalCount = 1
	} else {
		t.ArrivalCount = 0
	}
	t.ReschedCount = 0
	t.ReschedLongCount = 0
	t.SwitchInCount = 0
	t.MissCount = 0
	t.MissTimeSum = 0
	t.MissTimeSumSq = 0
}

// Runtime returns the thread's cumulative run time, the Go analogue of
// nk_sched_get_runtime.
func (t *Thread) Runtime() uint64 {
	return t.RunTime
}

// applyArrival converts Deadline from the arrival-time key a periodic
// or sporadic thread is keyed by while it waits in pending, into the
// genuine deadline for the job that has just arrived, and counts the
// arrival. Shared by drainArrivals (pending -> runnable) and the
// zero-phase admission path, which arrives immediately and so never
// passes through pending at all.
func (t *Thread) applyArrival() {
	t.ArrivalCount++
	switch t.Constraints.Type {
	case Periodic:
		t.Deadline = t.Deadline + t.Constraints.Periodic.Period
	case Sporadic:
		t.Deadline = t.Constraints.Sporadic.Deadline
	}
}

// jobExhausted reports whether a periodic or sporadic thread has used
// up the slice/size its current job is entitled to, the only condition
// under which its deadline is checked and it is disposed of as
// complete rather than merely preempted. Aperiodic threads have no
// slice to exhaust here; their quantum is handled separately.
func (t *Thread) jobExhausted() bool {
	switch t.Constraints.Type {
	case Periodic:
		return t.RunTime >= t.Constraints.Periodic.Slice
	case Sporadic:
		return t.RunTime >= t.Constraints.Sporadic.Size
	default:
		return false
	}
}

// checkDeadline records a deadline miss if now is past the thread's
// deadline, matching rt_thread_check_deadlines. Returns whether it was
// missed.
func (t *Thread) checkDeadline(now uint64) bool {
	if now > t.Deadline {
		miss := now - t.Deadline
		t.MissCount++
		t.MissTimeSum += miss
		t.MissTimeSumSq += miss * miss
		return true
	}
	return false
}
