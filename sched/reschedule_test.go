package sched

import "testing"

func newTestCPU() (*CPU, *FakeClock) {
	clock := NewFakeClock(0)
	cfg := DefaultConfig()
	cfg.MaxQueueSize = 16
	c := NewCPU(0, cfg, clock, nil, nil, nil)
	idle := NewThread("idle", 0, 0)
	c.SetIdleThread(idle)
	return c, clock
}

func TestNeedReschedPicksIdleWhenNothingRunnable(t *testing.T) {
	c, _ := newTestCPU()
	next := c.NeedResched(ReasonExplicit)
	if next == nil || !next.IsIdle {
		t.Fatalf("expected idle thread, got %v", next)
	}
}

func TestNeedReschedAdmitsAndRunsAperiodic(t *testing.T) {
	c, clock := newTestCPU()
	th := NewThread("worker", 0, 10)

	c.lock()
	if err := admit(c.cfg, c.runnable, c.pending, th, clock.Now()); err != nil {
		t.Fatalf("admit: %v", err)
	}
	c.putAperiodic(th)
	c.unlock()

	next := c.NeedResched(ReasonExplicit)
	if next != th {
		t.Fatalf("expected worker to run, got %v", next)
	}
}

func TestNeedReschedPeriodicPreemptsAperiodic(t *testing.T) {
	c, clock := newTestCPU()

	aper := NewThread("background", 0, 10)
	c.lock()
	admit(c.cfg, c.runnable, c.pending, aper, clock.Now())
	c.putAperiodic(aper)
	c.unlock()

	if next := c.NeedResched(ReasonExplicit); next != aper {
		t.Fatalf("expected background to run first, got %v", next)
	}

	rt := NewThread("rt", 0, 0)
	rt.Constraints = Constraints{Type: Periodic, Periodic: PeriodicConstraint{Period: 1000, Slice: 100}}

	c.lock()
	if err := admit(c.cfg, c.runnable, c.pending, rt, clock.Now()); err != nil {
		t.Fatalf("admit rt: %v", err)
	}
	c.putRunnable(rt)
	c.unlock()

	next := c.NeedResched(ReasonExplicit)
	if next != rt {
		t.Fatalf("expected rt to preempt background, got %v", next)
	}
}

func TestNeedReschedDrainsPendingArrival(t *testing.T) {
	c, clock := newTestCPU()

	rt := NewThread("rt", 0, 0)
	rt.Constraints = Constraints{Type: Periodic, Periodic: PeriodicConstraint{Period: 1000, Slice: 100, Phase: 500}}

	c.lock()
	if err := admit(c.cfg, c.runnable, c.pending, rt, clock.Now()); err != nil {
		t.Fatalf("admit rt: %v", err)
	}
	c.putPending(rt)
	c.unlock()

	// Before the phase elapses, idle still runs.
	next := c.NeedResched(ReasonExplicit)
	if !next.IsIdle {
		t.Fatalf("expected idle before arrival, got %v", next)
	}

	clock.Advance(500)
	next = c.NeedResched(ReasonTimer)
	if next != rt {
		t.Fatalf("expected rt to have arrived and be runnable, got %v", next)
	}
}

// TestNeedReschedPreemptsPeriodicEarlyWithoutAdvancingDeadline covers a
// periodic thread losing the CPU to an earlier-deadline arrival before
// it has used up its own slice: its deadline and run_time must come
// back unchanged, and it must land on runnable (not pending) so it
// resumes later in the same period.
func TestNeedReschedPreemptsPeriodicEarlyWithoutAdvancingDeadline(t *testing.T) {
	c, clock := newTestCPU()

	slow := NewThread("slow", 0, 0)
	slow.Constraints = Constraints{Type: Periodic, Periodic: PeriodicConstraint{Period: 1000, Slice: 200, Phase: 500}}
	c.lock()
	if err := admit(c.cfg, c.runnable, c.pending, slow, clock.Now()); err != nil {
		t.Fatalf("admit slow: %v", err)
	}
	c.putRunnable(slow)
	c.unlock()

	if next := c.NeedResched(ReasonExplicit); next != slow {
		t.Fatalf("expected slow to run, got %v", next)
	}
	wantDeadline := slow.Deadline

	clock.Advance(50)

	urgent := NewThread("urgent", 0, 0)
	urgent.Constraints = Constraints{Type: Periodic, Periodic: PeriodicConstraint{Period: 1000, Slice: 50}}
	urgent.Deadline = slow.Deadline - 1
	c.lock()
	c.putRunnable(urgent)
	c.unlock()

	next := c.NeedResched(ReasonExplicit)
	if next != urgent {
		t.Fatalf("expected urgent to preempt slow, got %v", next)
	}
	if slow.Status != StatusArrived || slow.QueueTag != QueueRunnable {
		t.Fatalf("expected slow back on runnable, got status=%v tag=%v", slow.Status, slow.QueueTag)
	}
	if slow.Deadline != wantDeadline {
		t.Fatalf("expected slow's deadline untouched at %d, got %d", wantDeadline, slow.Deadline)
	}
	if slow.RunTime != 50 {
		t.Fatalf("expected slow's run_time to reflect only the 50ns it actually ran, got %d", slow.RunTime)
	}
}

// TestNeedReschedDemotesSporadicOnCompletion covers a sporadic thread
// that actually runs its required size to completion: it must be
// demoted to aperiodic at AperiodicPriorityOnCompletion rather than
// recycled through pending, where its already-past deadline would
// otherwise make drainArrivals re-arrive it forever.
func TestNeedReschedDemotesSporadicOnCompletion(t *testing.T) {
	c, clock := newTestCPU()

	job := NewThread("job", 0, 0)
	job.Constraints = Constraints{
		Type: Sporadic,
		Sporadic: SporadicConstraint{
			Size:                          100,
			Deadline:                      1000,
			AperiodicPriorityOnCompletion: 42,
		},
	}
	c.lock()
	if err := admit(c.cfg, c.runnable, c.pending, job, clock.Now()); err != nil {
		t.Fatalf("admit job: %v", err)
	}
	job.applyArrival()
	c.putRunnable(job)
	// A waiting aperiodic thread with a lower key than the demoted job
	// will have, so the job has someone to hand the CPU to.
	background := NewThread("background", 0, 10)
	if err := admit(c.cfg, c.runnable, c.pending, background, clock.Now()); err != nil {
		t.Fatalf("admit background: %v", err)
	}
	c.putAperiodic(background)
	c.unlock()

	if next := c.NeedResched(ReasonExplicit); next != job {
		t.Fatalf("expected job to run, got %v", next)
	}

	clock.Advance(100)
	next := c.NeedResched(ReasonTimer)
	if next == job {
		t.Fatalf("expected job to give up the CPU on completion")
	}
	if job.Constraints.Type != Aperiodic {
		t.Fatalf("expected job demoted to aperiodic, still %v", job.Constraints.Type)
	}
	if job.Constraints.Aperiodic.Priority != 42 {
		t.Fatalf("expected demoted priority 42, got %d", job.Constraints.Aperiodic.Priority)
	}
	if job.QueueTag != QueueAperiodic {
		t.Fatalf("expected job on the aperiodic queue, got tag %v", job.QueueTag)
	}
}

// TestSchedulerSleepYieldExit exercises the three voluntary-transition
// operations: Sleep and Exit both leave the CPU (handled generically by
// NeedResched's special-status branch), Yield rejoins its queue.
func TestSchedulerSleepYieldExit(t *testing.T) {
	clock := NewFakeClock(0)
	cfg := DefaultConfig()
	cfg.MaxQueueSize = 16
	s := NewScheduler(1, cfg, clock, nil, nil, nil)
	idle := NewThread("idle", 0, 0)
	s.CPU(0).SetIdleThread(idle)

	worker := NewThread("worker", -1, 10)
	if err := s.MakeRunnable(0, worker); err != nil {
		t.Fatalf("MakeRunnable: %v", err)
	}
	if s.CPU(0).Current() != worker {
		t.Fatalf("expected worker to be current before Yield")
	}

	if err := s.Yield(0, worker); err != nil {
		t.Fatalf("Yield: %v", err)
	}
	// worker is the only ready aperiodic thread, so it is immediately
	// reselected; the point of the assertion is that Yield actually
	// drove it through completeJob and back out again, not that
	// something else got to run in the meantime.
	if s.CPU(0).Current() != worker {
		t.Fatalf("expected worker to still be current after yielding with nothing else ready")
	}
	if worker.Status != StatusAdmitted {
		t.Fatalf("expected worker ADMITTED after being reselected, got %v", worker.Status)
	}

	if err := s.Sleep(0, worker); err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	if worker.Status != StatusSleeping {
		t.Fatalf("expected SLEEPING after Sleep, got %v", worker.Status)
	}
	if s.CPU(0).Current() == worker {
		t.Fatalf("expected sleeping thread to leave the CPU")
	}

	other := NewThread("other", -1, 10)
	if err := s.MakeRunnable(0, other); err != nil {
		t.Fatalf("MakeRunnable other: %v", err)
	}
	if err := s.Exit(0, other); err != nil {
		t.Fatalf("Exit: %v", err)
	}
	if other.Status != StatusExiting {
		t.Fatalf("expected EXITING after Exit, got %v", other.Status)
	}
}
