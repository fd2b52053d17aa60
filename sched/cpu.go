package sched

import (
	"math/rand"
	"sync"
)

// InterruptController is the narrow capability NeedResched needs to
// raise and restore the simulated interrupt-priority floor around an
// interrupt thread's dispatch. platform.InterruptController satisfies
// this; kept as an interface here the same way OneShotTimer is, so
// sched never imports platform.
type InterruptController interface {
	Raise(class uint8) uint8
	Restore(class uint8)
}

// CPU is the per-CPU local scheduler state: three queues, the current
// thread, configuration, a lock, and bookkeeping. Exclusively owned by
// its CPU except for migration, work-stealing, and monitor coordination,
// which take its lock from another goroutine.
type CPU struct {
	idx   int
	cfg   Config
	clock Clock
	timer OneShotTimer
	intr  InterruptController

	mu sync.Mutex

	current   *Thread
	runnable  *EDFQueue // RUNNABLE_QUEUE, keyed by absolute deadline
	pending   *EDFQueue // PENDING_QUEUE, keyed by next arrival time
	aperiodic AperiodicPolicy

	setTime   uint64 // ns: when the next timer interrupt should occur
	numThefts uint64

	idleThread *Thread

	hooks *Hooks
}

// SetIdleThread installs the thread run when nothing else is runnable.
// It never sits in any queue; NeedResched falls back to it directly.
func (c *CPU) SetIdleThread(t *Thread) {
	t.IsIdle = true
	t.BoundCPU = c.idx
	t.CurrentCPU = c.idx
	c.lock()
	c.idleThread = t
	c.unlock()
}

// NewCPU constructs per-CPU state, matching init_local_state. intr may
// be nil, leaving the interrupt-priority floor uncommitted even if
// cfg.InterruptThreadModel is set (useful in tests that don't care
// about it).
func NewCPU(idx int, cfg Config, clock Clock, timer OneShotTimer, hooks *Hooks, intr InterruptController) *CPU {
	rng := rand.New(rand.NewSource(int64(idx) + 1))
	return &CPU{
		idx:       idx,
		cfg:       cfg,
		clock:     clock,
		timer:     timer,
		intr:      intr,
		runnable:  NewEDFQueue(QueueRunnable, cfg.MaxQueueSize),
		pending:   NewEDFQueue(QueuePending, cfg.MaxQueueSize),
		aperiodic: NewAperiodicPolicy(cfg, rng),
		hooks:     hooks,
	}
}

func (c *CPU) now() uint64 { return c.clock.Now() }

// lock/unlock are named to mirror LOCAL_LOCK/LOCAL_UNLOCK in the
// original; Go's mutex already gives us the IRQ-save-equivalent
// exclusion without a separate flags argument, since there is no
// hardware interrupt level to save here — that belongs to the platform
// boundary, not this package.
func (c *CPU) lock()   { c.mu.Lock() }
func (c *CPU) unlock() { c.mu.Unlock() }

// Current returns the thread currently assigned to this CPU.
func (c *CPU) Current() *Thread {
	c.lock()
	defer c.unlock()
	return c.current
}

// putAperiodic enqueues t onto the aperiodic policy, panicking on
// overflow since a full queue here is a configuration error, not a
// condition callers should handle.
func (c *CPU) putAperiodic(t *Thread) {
	if !c.aperiodic.Put(t) {
		queueFullPanic("aperiodic")
	}
}

// putRunnable enqueues t onto the EDF runnable queue, panicking on
// overflow.
func (c *CPU) putRunnable(t *Thread) {
	if !c.runnable.Enqueue(t) {
		queueFullPanic("runnable")
	}
}

// putPending enqueues t onto the EDF pending (arrival) queue, panicking
// on overflow.
func (c *CPU) putPending(t *Thread) {
	if !c.pending.Enqueue(t) {
		queueFullPanic("pending")
	}
}

// setTimer programs the one-shot timer to the minimum of the next
// pending arrival and the next preemption point for thread (which may be
// nil), adding the configured slack, matching set_timer.
func (c *CPU) setTimer(thread *Thread, now uint64, fire func()) {
	const maxUint64 = ^uint64(0)

	nextArrival := maxUint64
	if !c.pending.Empty() {
		nextArrival = c.pending.Peek().Deadline
	}

	nextPreempt := maxUint64
	if thread != nil {
		switch thread.Constraints.Type {
		case Aperiodic:
			nextPreempt = now + c.cfg.AperiodicQuantumNS
		case Sporadic:
			remaining := thread.Constraints.Sporadic.Size - thread.RunTime
			nextPreempt = now + remaining
		case Periodic:
			remaining := thread.Constraints.Periodic.Slice - thread.RunTime
			nextPreempt = now + remaining
		}
		thread.StartTime = now
	}

	set := nextArrival
	if nextPreempt < set {
		set = nextPreempt
	}
	c.setTime = set

	armAt := set + c.cfg.SlackNS
	if c.now() >= set {
		// the deadline has already passed; arm for the smallest
		// possible tick, matching "ticks = 1" in the original.
		armAt = c.now() + 1
	}

	if c.timer != nil {
		c.timer.Arm(armAt, fire)
	}
}

// Hooks lets callers observe scheduler decisions (for metrics/logging)
// without sched importing observability directly, avoiding an import
// cycle while still letting every decision point be instrumented.
type Hooks struct {
	OnResched   func(cpuIdx int, switched bool, longPath bool)
	OnAdmission func(ctype ConstraintType, accepted bool)
	OnMiss      func(cpuIdx int, ctype ConstraintType)
	OnSteal     func(fromCPU, toCPU int, count int)
	OnKick      func(cpuIdx int)
}

func (h *Hooks) resched(cpuIdx int, switched, longPath bool) {
	if h != nil && h.OnResched != nil {
		h.OnResched(cpuIdx, switched, longPath)
	}
}

func (h *Hooks) admission(ctype ConstraintType, accepted bool) {
	if h != nil && h.OnAdmission != nil {
		h.OnAdmission(ctype, accepted)
	}
}

func (h *Hooks) miss(cpuIdx int, ctype ConstraintType) {
	if h != nil && h.OnMiss != nil {
		h.OnMiss(cpuIdx, ctype)
	}
}
