package sched

// rmsLevels is the precomputed Liu-Layland RMS bound n*(2^{1/n}-1), fixed
// point scale UtilScale, for n=1..16. Beyond 16 threads the bound
// converges to ln(2). Grounded verbatim on
// scheduler.c:get_periodic_util_rms_limit's levels[] table.
var rmsLevels = [16]uint64{
	1_000_000,
	828_427,
	779_763,
	756_828,
	743_491,
	734_772,
	728_626,
	724_061,
	720_537,
	717_734,
	715_451,
	713_557,
	711_958,
	710_592,
	709_411,
	708_380,
}

// ln2Scaled is the RMS bound's asymptote for n > 16, ln(2) at UtilScale.
const ln2Scaled uint64 = 693_147

// rmsLimit returns the RMS schedulability bound for count periodic
// threads (including the one being admitted).
func rmsLimit(count uint64) uint64 {
	if count == 0 {
		return UtilScale
	}
	if count > 16 {
		return ln2Scaled
	}
	return rmsLevels[count-1]
}

// periodicUtil sums the fixed-point utilization of every PERIODIC thread
// currently on runnable or pending, matching get_periodic_util.
func periodicUtil(runnable, pending *EDFQueue) (util, count uint64) {
	for _, t := range runnable.Dump() {
		if t.Constraints.Type == Periodic {
			count++
			util += (t.Constraints.Periodic.Slice * UtilScale) / t.Constraints.Periodic.Period
		}
	}
	for _, t := range pending.Dump() {
		if t.Constraints.Type == Periodic {
			count++
			util += (t.Constraints.Periodic.Slice * UtilScale) / t.Constraints.Periodic.Period
		}
	}
	return
}

// sporadicUtil sums the instantaneous fixed-point utilization of every
// SPORADIC thread currently on runnable or pending, matching
// get_sporadic_util. Runnable sporadics are weighted by remaining work
// over remaining time; pending ones by total size over time-until-
// deadline-from-arrival.
func sporadicUtil(runnable, pending *EDFQueue, now uint64) (util, count uint64) {
	for _, t := range runnable.Dump() {
		if t.Constraints.Type == Sporadic {
			count++
			util += ((t.Constraints.Sporadic.Size - t.RunTime) * UtilScale) / (t.Constraints.Sporadic.Deadline - now)
		}
	}
	for _, t := range pending.Dump() {
		if t.Constraints.Type == Sporadic {
			count++
			denom := t.Constraints.Sporadic.Deadline - now - t.Constraints.Sporadic.Phase
			util += (t.Constraints.Sporadic.Size * UtilScale) / denom
		}
	}
	return
}

// admit runs admission control for thread t against the given CPU's
// runnable/pending queues at time now, matching rt_thread_admit.
// On success it resets t's state/stats and installs its initial
// deadline key; on failure it leaves t untouched and returns
// ErrAdmissionDenied.
func admit(cfg Config, runnable, pending *EDFQueue, t *Thread, now uint64) error {
	if t.Constraints.InterruptPriorityClass > MaxInterruptPriorityClass {
		return ErrAdmissionDenied
	}

	switch t.Constraints.Type {
	case Aperiodic:
		t.resetState()
		t.resetStats()
		t.Deadline = t.Constraints.Aperiodic.Priority
		return nil

	case Periodic:
		c := t.Constraints.Periodic
		if c.Slice >= c.Period {
			// boundary behaviour: slice >= period is rejected outright
			return ErrAdmissionDenied
		}
		thisUtil := (c.Slice * UtilScale) / c.Period
		curUtil, curCount := periodicUtil(runnable, pending)
		limit := rmsLimit(curCount + 1)
		perRes := cfg.periodicReservation()
		ourLimit := limit
		if perRes < ourLimit {
			ourLimit = perRes
		}
		if curUtil+thisUtil < ourLimit {
			t.resetState()
			t.resetStats()
			t.Deadline = now + c.Phase
			return nil
		}
		return ErrAdmissionDenied

	case Sporadic:
		c := t.Constraints.Sporadic
		if now+c.Phase+c.Size >= c.Deadline {
			// boundary behaviour: phase+size >= deadline is rejected outright
			return ErrAdmissionDenied
		}
		timeLeft := c.Deadline - (now + c.Phase)
		thisUtil := (c.Size * UtilScale) / timeLeft
		curUtil, _ := sporadicUtil(runnable, pending, now)
		if curUtil+thisUtil < cfg.SporadicReservation {
			t.resetState()
			t.resetStats()
			t.Deadline = now + c.Phase
			return nil
		}
		return ErrAdmissionDenied

	default:
		return ErrAdmissionDenied
	}
}
