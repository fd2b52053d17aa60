package sched

import (
	"sync"
)

// Scheduler owns every CPU's local state plus the cross-CPU operations
// that must coordinate between them: admission (MakeRunnable), runtime
// reconfiguration (ChangeConstraints), migration (Move), and
// work-stealing (Mug). Everything else is local to a single CPU and
// lives on *CPU.
type Scheduler struct {
	cfg   Config
	clock Clock
	hooks *Hooks

	cpus []*CPU

	registry *registry
	kick     *kickLimiter
}

// NewScheduler constructs a Scheduler with n CPUs, each built via
// makeTimer(idx) and makeIntr(idx) (either may be nil: a nil timer
// leaves that CPU's timer unarmed and a nil controller leaves its
// interrupt-priority floor uncommitted, both useful in tests that drive
// NeedResched directly).
func NewScheduler(n int, cfg Config, clock Clock, hooks *Hooks, makeTimer func(idx int) OneShotTimer, makeIntr func(idx int) InterruptController) *Scheduler {
	s := &Scheduler{
		cfg:      cfg,
		clock:    clock,
		hooks:    hooks,
		registry: newRegistry(),
		kick:     newKickLimiter(n),
	}
	s.cpus = make([]*CPU, n)
	for i := 0; i < n; i++ {
		var timer OneShotTimer
		if makeTimer != nil {
			timer = makeTimer(i)
		}
		var intr InterruptController
		if makeIntr != nil {
			intr = makeIntr(i)
		}
		s.cpus[i] = NewCPU(i, cfg, clock, timer, hooks, intr)
	}
	return s
}

// CPU returns the per-CPU state for idx, or nil if out of range.
func (s *Scheduler) CPU(idx int) *CPU {
	if idx < 0 || idx >= len(s.cpus) {
		return nil
	}
	return s.cpus[idx]
}

// NumCPUs reports how many CPUs the scheduler was built with.
func (s *Scheduler) NumCPUs() int { return len(s.cpus) }

// MakeRunnable admits t onto cpuIdx under its current Constraints and,
// on success, places it in the correct queue and triggers an explicit
// reschedule so an idle CPU notices immediately.
func (s *Scheduler) MakeRunnable(cpuIdx int, t *Thread) error {
	c := s.CPU(cpuIdx)
	if c == nil {
		return ErrInvalidCPU
	}

	c.lock()
	now := c.now()
	err := admit(s.cfg, c.runnable, c.pending, t, now)
	if err != nil {
		t.Status = StatusDenied
		s.hooks.admission(t.Constraints.Type, false)
		c.unlock()
		return err
	}
	s.hooks.admission(t.Constraints.Type, true)

	t.CurrentCPU = cpuIdx
	switch t.Constraints.Type {
	case Aperiodic:
		c.putAperiodic(t)
	case Periodic:
		if t.Constraints.Periodic.Phase == 0 {
			t.applyArrival()
			c.putRunnable(t)
		} else {
			c.putPending(t)
		}
	case Sporadic:
		if t.Constraints.Sporadic.Phase == 0 {
			t.applyArrival()
			c.putRunnable(t)
		} else {
			c.putPending(t)
		}
	}
	s.registry.add(t)
	c.unlock()

	c.NeedResched(ReasonExplicit)
	return nil
}

// ChangeConstraints reconstrains t, which must be cpuIdx's current
// thread: a thread only ever changes its own constraints, never
// another's. It is demoted to APERIODIC/CHANGING first so admission
// control never has to reason about a thread holding two reservations
// at once; on admission failure the original constraints and status are
// restored.
func (s *Scheduler) ChangeConstraints(cpuIdx int, t *Thread, next Constraints) error {
	c := s.CPU(cpuIdx)
	if c == nil {
		return ErrInvalidCPU
	}

	c.lock()
	if c.current != t {
		c.unlock()
		return ErrNotCurrent
	}

	saved := t.Constraints
	savedStatus := t.Status
	t.Status = StatusChanging
	t.Constraints = Constraints{Type: Aperiodic, Aperiodic: AperiodicConstraint{Priority: s.cfg.AperiodicDefaultPriority}}

	now := c.now()
	t.Constraints = next
	if err := admit(s.cfg, c.runnable, c.pending, t, now); err != nil {
		t.Constraints = saved
		t.Status = savedStatus
		c.unlock()
		return err
	}
	t.Status = StatusAdmitted
	c.unlock()

	c.NeedResched(ReasonExplicit)
	return nil
}

// Sleep voluntarily suspends t, which must be cpuIdx's current thread,
// marking it SLEEPING and handing the CPU to someone else —
// handle_special_switch(NK_THR_STATE_SLEEPING). A sleeping thread holds
// no queue slot; a later MakeRunnable call (the wakeup) re-admits it
// exactly like a fresh arrival.
func (s *Scheduler) Sleep(cpuIdx int, t *Thread) error {
	c := s.CPU(cpuIdx)
	if c == nil {
		return ErrInvalidCPU
	}
	c.lock()
	if c.current != t {
		c.unlock()
		return ErrNotCurrent
	}
	t.Status = StatusSleeping
	t.RunState = RunWaiting
	c.unlock()

	c.NeedResched(ReasonExplicit)
	return nil
}

// Yield voluntarily gives up the remainder of t's current slice or
// quantum, which must be cpuIdx's current thread, rejoining its queue
// as though it had been preempted — handle_special_switch
// (NK_THR_STATE_YIELDING) / nk_yield.
func (s *Scheduler) Yield(cpuIdx int, t *Thread) error {
	c := s.CPU(cpuIdx)
	if c == nil {
		return ErrInvalidCPU
	}
	c.lock()
	if c.current != t {
		c.unlock()
		return ErrNotCurrent
	}
	t.Status = StatusYielding
	c.unlock()

	c.NeedResched(ReasonExplicit)
	return nil
}

// Exit terminates t, which must be cpuIdx's current thread, permanently:
// it leaves the CPU in EXITING status and is picked up by the reaper on
// its next pass — handle_special_switch(NK_THR_STATE_EXITING).
func (s *Scheduler) Exit(cpuIdx int, t *Thread) error {
	c := s.CPU(cpuIdx)
	if c == nil {
		return ErrInvalidCPU
	}
	c.lock()
	if c.current != t {
		c.unlock()
		return ErrNotCurrent
	}
	t.Status = StatusExiting
	t.ExitTime = c.now()
	c.unlock()

	c.NeedResched(ReasonExplicit)
	return nil
}

// Move migrates t from its current CPU to dst. t must not be bound,
// must not be any CPU's current thread, and must not be the caller.
// Source and destination locks are never held
// simultaneously, always source first then destination, to match the
// lock ordering invariant the monitor's world-stop protocol also
// depends on.
func (s *Scheduler) Move(t *Thread, dst int) error {
	dstCPU := s.CPU(dst)
	if dstCPU == nil {
		return ErrInvalidCPU
	}
	if t.BoundCPU != -1 {
		return ErrMigrationRefused
	}

	src := s.CPU(t.CurrentCPU)
	if src == nil {
		return ErrInvalidCPU
	}
	if src == dstCPU {
		return nil
	}

	src.lock()
	if src.current == t {
		src.unlock()
		return ErrMigrationRefused
	}
	removed := false
	switch t.QueueTag {
	case QueueAperiodic:
		removed = src.aperiodic.Remove(t)
	case QueueRunnable:
		removed = src.runnable.Remove(t)
	case QueuePending:
		removed = src.pending.Remove(t)
	}
	src.unlock()
	if !removed {
		return ErrMigrationRefused
	}

	dstCPU.lock()
	t.CurrentCPU = dst
	switch t.Constraints.Type {
	case Aperiodic:
		dstCPU.putAperiodic(t)
	case Periodic, Sporadic:
		dstCPU.putRunnable(t)
	}
	dstCPU.unlock()

	dstCPU.NeedResched(ReasonExplicit)
	return nil
}

// selectVictim picks a work-stealing source using power-of-two-choices:
// two distinct candidate CPUs (other than self) are sampled and the one
// with the deeper aperiodic queue is chosen, spreading load without the
// cost of scanning every CPU.
func (s *Scheduler) selectVictim(self int, pick func(n int) int) int {
	n := len(s.cpus)
	if n < 2 {
		return -1
	}
	a := pick(n)
	for a == self {
		a = pick(n)
	}
	b := pick(n)
	for b == self || b == a {
		b = pick(n)
	}
	if s.cpus[a].aperiodic.Len() >= s.cpus[b].aperiodic.Len() {
		return a
	}
	return b
}

// Mug steals one aperiodic thread from a victim CPU chosen by
// selectVictim and places it on self, matching the original's mug().
// Returns false if no thread could be stolen (victim had none, or the
// one peeked was not actually removable).
func (s *Scheduler) Mug(self int, pick func(n int) int) bool {
	c := s.CPU(self)
	if c == nil {
		return false
	}
	v := s.selectVictim(self, pick)
	if v < 0 {
		return false
	}
	victim := s.cpus[v]

	victim.lock()
	t := victim.aperiodic.Peek(0)
	if t == nil || !victim.aperiodic.Remove(t) {
		victim.unlock()
		return false
	}
	victim.unlock()

	c.lock()
	t.CurrentCPU = self
	t.NumThefts++
	c.putAperiodic(t)
	c.unlock()

	c.NeedResched(ReasonExplicit)
	if s.hooks != nil && s.hooks.OnSteal != nil {
		s.hooks.OnSteal(v, self, 1)
	}
	return true
}

// registry is the global, mutex-protected list of every thread known to
// the scheduler, used by the reaper and by DumpThreads: threads are
// added post-create, dropped pre-destroy, and an EXITING sweep collects
// garbage without holding the lock during the (possibly slow) destroy
// step.
type registry struct {
	mu      sync.Mutex
	threads map[*Thread]struct{}
}

func newRegistry() *registry {
	return &registry{threads: make(map[*Thread]struct{})}
}

func (r *registry) add(t *Thread) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threads[t] = struct{}{}
}

func (r *registry) remove(t *Thread) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.threads, t)
}

// collectExited returns every registered thread in StatusExiting,
// matching the reaper's first phase: scan under the global lock, defer
// destruction until after it is released.
func (r *registry) collectExited() []*Thread {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Thread
	for t := range r.threads {
		if t.Status == StatusExiting {
			out = append(out, t)
		}
	}
	return out
}

// Reap runs one pass of the reaper: collect every EXITING thread, then
// destroy each outside the global lock (destroy may itself be slow, and
// must never be called while holding a lock other threads need to make
// progress).
func (s *Scheduler) Reap() int {
	return len(s.ReapSnapshots())
}

// ReapSnapshots runs one reaper pass like Reap, additionally returning a
// snapshot of each destroyed thread's final state, taken before
// destruction, so callers like telemetry.Historian can persist it.
func (s *Scheduler) ReapSnapshots() []ThreadSnapshot {
	victims := s.registry.collectExited()
	out := make([]ThreadSnapshot, 0, len(victims))
	for _, t := range victims {
		out = append(out, snapshotThread(t))
		t.destroyed = true
		s.registry.remove(t)
	}
	return out
}

// RegisterThread adds t to the global registry; callers do this once,
// immediately after a thread is created, matching post_create_check.
func (s *Scheduler) RegisterThread(t *Thread) {
	s.registry.add(t)
}
