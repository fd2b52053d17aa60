package sched

import "testing"

func TestAdmitAperiodicAlwaysSucceeds(t *testing.T) {
	cfg := DefaultConfig()
	runnable := NewEDFQueue(QueueRunnable, 8)
	pending := NewEDFQueue(QueuePending, 8)
	th := NewThread("a", -1, 42)

	if err := admit(cfg, runnable, pending, th, 0); err != nil {
		t.Fatalf("admit aperiodic: %v", err)
	}
	if th.Deadline != 42 {
		t.Errorf("Deadline = %d, want 42 (priority)", th.Deadline)
	}
}

func TestAdmitPeriodicRejectsSliceEqualToPeriod(t *testing.T) {
	cfg := DefaultConfig()
	runnable := NewEDFQueue(QueueRunnable, 8)
	pending := NewEDFQueue(QueuePending, 8)
	th := NewThread("p", -1, 0)
	th.Constraints = Constraints{
		Type:     Periodic,
		Periodic: PeriodicConstraint{Period: 100, Slice: 100},
	}

	if err := admit(cfg, runnable, pending, th, 0); err != ErrAdmissionDenied {
		t.Fatalf("admit slice==period: got %v, want ErrAdmissionDenied", err)
	}
}

func TestAdmitPeriodicRMSBound(t *testing.T) {
	cfg := DefaultConfig()
	runnable := NewEDFQueue(QueueRunnable, 8)
	pending := NewEDFQueue(QueuePending, 8)

	// A single periodic thread using 50% of a period is within the
	// periodic reservation (80% of UtilScale by default) and within the
	// 1-thread RMS bound (100%).
	th := NewThread("p1", -1, 0)
	th.Constraints = Constraints{
		Type:     Periodic,
		Periodic: PeriodicConstraint{Period: 1000, Slice: 500},
	}
	if err := admit(cfg, runnable, pending, th, 0); err != nil {
		t.Fatalf("admit p1: %v", err)
	}
	runnable.Enqueue(th)

	// A second thread pushing combined utilization to 100% must be
	// rejected regardless of RMS bound vs reservation bound.
	th2 := NewThread("p2", -1, 0)
	th2.Constraints = Constraints{
		Type:     Periodic,
		Periodic: PeriodicConstraint{Period: 1000, Slice: 500},
	}
	if err := admit(cfg, runnable, pending, th2, 0); err != ErrAdmissionDenied {
		t.Fatalf("admit p2: got %v, want ErrAdmissionDenied", err)
	}
}

func TestAdmitSporadicRejectsImpossibleDeadline(t *testing.T) {
	cfg := DefaultConfig()
	runnable := NewEDFQueue(QueueRunnable, 8)
	pending := NewEDFQueue(QueuePending, 8)
	th := NewThread("s", -1, 0)
	th.Constraints = Constraints{
		Type: Sporadic,
		Sporadic: SporadicConstraint{
			Size:     100,
			Deadline: 50, // deadline already before phase+size
			Phase:    0,
		},
	}
	if err := admit(cfg, runnable, pending, th, 0); err != ErrAdmissionDenied {
		t.Fatalf("admit impossible sporadic: got %v, want ErrAdmissionDenied", err)
	}
}

func TestAdmitSporadicWithinReservation(t *testing.T) {
	cfg := DefaultConfig()
	runnable := NewEDFQueue(QueueRunnable, 8)
	pending := NewEDFQueue(QueuePending, 8)
	th := NewThread("s", -1, 0)
	th.Constraints = Constraints{
		Type: Sporadic,
		Sporadic: SporadicConstraint{
			Size:     1_000,
			Deadline: 1_000_000,
			Phase:    0,
		},
	}
	if err := admit(cfg, runnable, pending, th, 0); err != nil {
		t.Fatalf("admit sporadic within reservation: %v", err)
	}
}

func TestAdmitRejectsOutOfRangeInterruptPriority(t *testing.T) {
	cfg := DefaultConfig()
	runnable := NewEDFQueue(QueueRunnable, 8)
	pending := NewEDFQueue(QueuePending, 8)
	th := NewThread("a", -1, 0)
	th.Constraints.InterruptPriorityClass = MaxInterruptPriorityClass + 1

	if err := admit(cfg, runnable, pending, th, 0); err != ErrAdmissionDenied {
		t.Fatalf("admit with bad interrupt class: got %v, want ErrAdmissionDenied", err)
	}
}

func TestRMSLimitTable(t *testing.T) {
	if rmsLimit(0) != UtilScale {
		t.Errorf("rmsLimit(0) = %d, want UtilScale", rmsLimit(0))
	}
	if rmsLimit(1) != UtilScale {
		t.Errorf("rmsLimit(1) = %d, want UtilScale", rmsLimit(1))
	}
	if rmsLimit(17) != ln2Scaled {
		t.Errorf("rmsLimit(17) = %d, want ln2Scaled", rmsLimit(17))
	}
}
