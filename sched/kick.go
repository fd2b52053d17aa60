package sched

import (
	"golang.org/x/time/rate"
)

// kickLimiter rate-limits cross-CPU kicks, one token bucket per CPU, so
// a storm of migrations or wakeups cannot turn into an interrupt storm
// on the target. Grounded on control_plane/scheduler/limiter.go's use of
// golang.org/x/time/rate for the same shape of problem (bound the rate
// of an expensive cross-goroutine signal).
type kickLimiter struct {
	limiters []*rate.Limiter
}

// newKickLimiter allows up to 1000 kicks/sec per CPU, bursting to 4 —
// generous enough that a legitimate wakeup is never dropped under normal
// load, while still capping a runaway caller.
func newKickLimiter(n int) *kickLimiter {
	k := &kickLimiter{limiters: make([]*rate.Limiter, n)}
	for i := range k.limiters {
		k.limiters[i] = rate.NewLimiter(rate.Limit(1000), 4)
	}
	return k
}

func (k *kickLimiter) allow(cpuIdx int) bool {
	if cpuIdx < 0 || cpuIdx >= len(k.limiters) {
		return false
	}
	return k.limiters[cpuIdx].Allow()
}

// KickCPU requests an out-of-band reschedule on cpuIdx, e.g. after a
// migration lands a thread there or a sporadic arrival needs attention
// sooner than the armed timer. Silently dropped if the target is being
// kicked faster than the configured rate, matching the original's
// best-effort IPI semantics: a dropped kick is recovered by the next
// timer fire regardless.
func (s *Scheduler) KickCPU(cpuIdx int) {
	if !s.kick.allow(cpuIdx) {
		return
	}
	c := s.CPU(cpuIdx)
	if c == nil {
		return
	}
	if s.hooks != nil && s.hooks.OnKick != nil {
		s.hooks.OnKick(cpuIdx)
	}
	c.NeedResched(ReasonKick)
}
