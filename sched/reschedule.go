package sched

// ReschedReason tells NeedResched why it was invoked, which decides
// whether the cheap early-exit applies. Voluntary status changes
// (sleep/exit/change/yield) are read off the thread itself, not passed
// in; this only distinguishes the two interrupt sources from a bare
// explicit call.
type ReschedReason int

const (
	// ReasonExplicit covers calls made directly after an operation like
	// MakeRunnable or ChangeConstraints, with no interrupt involved.
	ReasonExplicit ReschedReason = iota
	// ReasonTimer is the local one-shot timer firing.
	ReasonTimer
	// ReasonKick is a cross-CPU kick, used for migration/steal wakeups.
	ReasonKick
)

// NeedResched is the reschedule decision engine: flush the current
// thread's accounting, drain any arrivals whose release time has
// passed, dispose of the current thread according to its status, pick
// the best runnable/aperiodic candidate (falling back to idle), commit,
// and rearm the timer. It returns the thread the CPU should now be
// running; the caller is responsible for the actual context switch,
// which is out of scope for this package.
func (c *CPU) NeedResched(reason ReschedReason) *Thread {
	c.lock()
	defer c.unlock()

	now := c.now()
	cur := c.current

	exhausted := false
	if cur != nil && !cur.IsIdle {
		elapsed := now - cur.StartTime
		cur.CurRunTime += elapsed
		cur.RunTime += elapsed
		exhausted = cur.jobExhausted()
	}

	timedOut := now >= c.setTime
	special := cur != nil && cur.Status.IsSpecial()
	yielding := cur != nil && cur.Status == StatusYielding
	idle := cur != nil && cur.IsIdle

	// A bare timer fire with nothing special pending and the deadline
	// not yet reached is spurious (the timer was armed conservatively,
	// e.g. slack rounding): nothing can have changed, so skip straight
	// back to current. Explicit and kick calls always follow a state
	// change (an admission, a migration landing, a steal) and must run
	// the full decision below even if nothing looks urgent yet.
	if reason == ReasonTimer && !timedOut && !special && !yielding && !idle {
		return cur
	}

	c.drainArrivals(now)

	disposed := false
	switch {
	case cur == nil:
		// nothing to dispose
	case special:
		// sleeping/exiting/changing threads leave the CPU entirely;
		// whatever put them in that status (ChangeConstraints, Sleep,
		// Exit) owns bringing them back.
		cur.CurRunTime = 0
		disposed = true
	case yielding:
		cur.Status = StatusArrived
		c.completeJob(cur, now)
		disposed = true
	case idle:
		// never requeued; only reselected if nothing else is runnable
	case cur.Constraints.Type == Aperiodic:
		// aperiodic has no slice/size to exhaust: it gives up the CPU
		// once its quantum runs out or any real-time thread becomes
		// runnable, always rejoining its policy with a refreshed key.
		if timedOut || !c.runnable.Empty() {
			c.completeJob(cur, now)
			disposed = true
		}
	case exhausted:
		// the job's slice (periodic) or size (sporadic) has actually
		// been used up: this is the only point at which a deadline
		// miss is meaningful to record, matching the original's
		// rt_thread_check_deadlines call sites.
		if cur.checkDeadline(now) {
			c.hooks.miss(c.idx, cur.Constraints.Type)
		}
		c.completeJob(cur, now)
		disposed = true
	case !c.runnable.Empty() && c.runnable.Peek().Deadline < cur.Deadline:
		// preempted before exhausting its slice/size by a strictly
		// earlier deadline: deadline and run_time are left exactly as
		// they are, and the thread resumes later in the same job.
		c.requeuePreempted(cur)
		disposed = true
	}

	var next *Thread
	if disposed || cur == nil || idle {
		next = c.selectNext()
		if next == nil && idle {
			next = cur
		}
	} else {
		next = cur
	}

	longPath := true
	switched := next != cur || disposed
	c.commit(cur, next, now)
	c.hooks.resched(c.idx, switched, longPath)

	d := Decision{CPU: c.idx, Now: now, Switched: switched, LongPath: longPath}
	if next != nil {
		d.NextTID = next.TID
		d.NextName = next.Name
	}
	logDecision(d)

	return next
}

// completeJob disposes of a thread that is done with its job, either
// because it exhausted its slice/size or because it yielded
// voluntarily: aperiodic threads rejoin the aperiodic policy with a
// refreshed dynamic key; a periodic thread waits in pending for its
// next release; a sporadic thread is demoted to aperiodic if it has
// actually run its required size, or otherwise waits in pending (a
// voluntary yield before finishing).
func (c *CPU) completeJob(t *Thread, now uint64) {
	switch t.Constraints.Type {
	case Aperiodic:
		t.Status = StatusArrived
		c.aperiodic.UpdateCurrent(t, now, c.cfg)
		c.putAperiodic(t)
	case Periodic:
		t.CurRunTime = 0
		t.RunTime = 0
		t.Status = StatusArrived
		// Deadline already holds the end of this period, which is the
		// next release instant; drainArrivals adds Period on arrival.
		c.putPending(t)
	case Sporadic:
		if t.RunTime >= t.Constraints.Sporadic.Size {
			c.demoteSporadic(t, now)
			return
		}
		t.CurRunTime = 0
		t.Status = StatusArrived
		c.putPending(t)
	}
}

// demoteSporadic retires a sporadic thread that has run its required
// size to completion into an ordinary aperiodic thread at
// Constraints.Sporadic.AperiodicPriorityOnCompletion, matching the
// original's demotion on sporadic job completion.
func (c *CPU) demoteSporadic(t *Thread, now uint64) {
	t.Constraints = Constraints{
		Type:      Aperiodic,
		Aperiodic: AperiodicConstraint{Priority: t.Constraints.Sporadic.AperiodicPriorityOnCompletion},
	}
	t.resetState()
	t.resetStats()
	t.Status = StatusArrived
	c.aperiodic.UpdateCurrent(t, now, c.cfg)
	c.putAperiodic(t)
}

// requeuePreempted puts a periodic or sporadic thread back on runnable
// exactly as it stood: preempted before exhausting its slice/size, its
// deadline and run_time have not changed, and it simply resumes later
// within the same job.
func (c *CPU) requeuePreempted(t *Thread) {
	t.Status = StatusArrived
	c.putRunnable(t)
}

// drainArrivals moves every pending thread whose release time has
// arrived onto the runnable queue, recomputing its absolute deadline.
func (c *CPU) drainArrivals(now uint64) {
	for !c.pending.Empty() && c.pending.Peek().Deadline <= now {
		t := c.pending.Dequeue()
		t.applyArrival()
		t.Status = StatusAdmitted
		c.putRunnable(t)
	}
}

// selectNext picks the next thread to run: runnable (EDF) always beats
// aperiodic, since a thread only reaches runnable by having an admitted
// real-time reservation, and real-time threads must never be starved by
// best-effort ones. Aperiodic is consulted only when runnable is empty,
// and idle is the fallback of last resort.
func (c *CPU) selectNext() *Thread {
	if !c.runnable.Empty() {
		t := c.runnable.Dequeue()
		t.Status = StatusAdmitted
		return t
	}
	if c.aperiodic.Len() > 0 {
		t := c.aperiodic.GetNext()
		t.Status = StatusAdmitted
		return t
	}
	return c.idleThread
}

// commit installs next as current, resets its running-time basis,
// raises or restores the interrupt-priority floor to match it, and
// rearms the timer against it.
func (c *CPU) commit(prev, next *Thread, now uint64) {
	if next != nil {
		next.CurrentCPU = c.idx
		next.StartTime = now
		if next != prev {
			next.SwitchInCount++
			next.CurRunTime = 0
		}
	}
	c.current = next
	c.commitInterruptClass(next)
	c.setTimer(next, now, func() { c.NeedResched(ReasonTimer) })
}

// commitInterruptClass raises the simulated interrupt-priority floor to
// next's class when it is an interrupt thread, or restores it to
// unmasked otherwise, mirroring the original's CR8 write around a
// dispatch. A no-op when the interrupt-thread model is disabled or no
// controller was installed.
func (c *CPU) commitInterruptClass(next *Thread) {
	if !c.cfg.InterruptThreadModel || c.intr == nil {
		return
	}
	if next != nil && next.IsInterrupt {
		c.intr.Raise(next.Constraints.InterruptPriorityClass)
		return
	}
	c.intr.Restore(0)
}
