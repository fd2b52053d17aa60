// Package sched implements the per-CPU real-time thread scheduler: EDF
// admission and dispatch for periodic and sporadic threads, a priority
// aperiodic policy, constraint changes, migration, and work-stealing.
package sched

import "math"

// ConstraintType tags which of the three scheduling disciplines a thread
// is currently running under. A thread's type can change at runtime via
// ChangeConstraints.
type ConstraintType int

const (
	Aperiodic ConstraintType = iota
	Periodic
	Sporadic
)

func (t ConstraintType) String() string {
	switch t {
	case Aperiodic:
		return "APERIODIC"
	case Periodic:
		return "PERIODIC"
	case Sporadic:
		return "SPORADIC"
	default:
		return "UNKNOWN"
	}
}

// AperiodicConstraint carries only a priority: lower deadline keys run
// first under the dynamic policy, more tickets win more often under the
// lottery policy, and round-robin ignores it entirely.
type AperiodicConstraint struct {
	Priority uint64
}

// PeriodicConstraint describes a thread that arrives every Period and
// must complete Slice of work before the next arrival. Phase delays the
// first arrival relative to admission time.
type PeriodicConstraint struct {
	Period uint64 // ns
	Slice  uint64 // ns, must be < Period (admission rejects Slice >= Period)
	Phase  uint64 // ns
}

// SporadicConstraint describes a thread with exactly one future arrival
// and one deadline. On completion it is demoted to Aperiodic with
// AperiodicPriorityOnCompletion.
type SporadicConstraint struct {
	Size                          uint64 // ns of work required
	Deadline                      uint64 // absolute ns
	Phase                         uint64 // ns before arrival
	AperiodicPriorityOnCompletion uint64
}

// Constraints is the tagged-variant scheduling request a thread is admitted under.
type Constraints struct {
	Type                  ConstraintType
	InterruptPriorityClass uint8 // 0..14, higher masks more

	Aperiodic AperiodicConstraint
	Periodic  PeriodicConstraint
	Sporadic  SporadicConstraint
}

// MaxInterruptPriorityClass is the highest legal interrupt priority class.
const MaxInterruptPriorityClass = 14

// UtilScale is the fixed-point scale (1,000,000 == a utilization of 1.0)
// used throughout admission control, matching the original's UTIL_ONE.
const UtilScale uint64 = 1_000_000

// Status is the thread's scheduler-visible lifecycle status.
type Status int

const (
	StatusArrived Status = iota
	StatusAdmitted
	StatusChanging
	StatusYielding
	StatusSleeping
	StatusExiting
	StatusDenied
)

func (s Status) String() string {
	switch s {
	case StatusArrived:
		return "ARRIVED"
	case StatusAdmitted:
		return "ADMITTED"
	case StatusChanging:
		return "CHANGING"
	case StatusYielding:
		return "YIELDING"
	case StatusSleeping:
		return "SLEEPING"
	case StatusExiting:
		return "EXITING"
	case StatusDenied:
		return "DENIED"
	default:
		return "UNKNOWN"
	}
}

// IsSpecial reports whether the thread is mid voluntary-transition and
// must not be requeued by the reschedule engine on its own — the caller
// (handle_special_switch's Go equivalent) has already placed it.
func (s Status) IsSpecial() bool {
	return s == StatusSleeping || s == StatusExiting || s == StatusChanging
}

// QueueTag records which scheduler queue (if any) a thread currently sits
// in, so queue membership can be checked cheaply without scanning.
type QueueTag int

const (
	QueueNone QueueTag = iota
	QueueRunnable
	QueuePending
	QueueAperiodic
)

// RunState is the coarse execution state. NewThread starts a thread in
// RunSuspended and Sleep sets RunWaiting; the reschedule engine neither
// reads nor changes it, and nothing in this package sets RunRunning.
type RunState int

const (
	RunSuspended RunState = iota
	RunRunning
	RunWaiting // set by Sleep
)

// IdlePriority is the lowest possible aperiodic priority key, reserved for
// the idle thread so it never displaces real work.
const IdlePriority = math.MaxUint64

// idleJitterGuard is the headroom the dynamic aperiodic policy clamps
// below IdlePriority before adding jitter; the jitter is then capped so
// a real thread's key always stays below the idle floor.
const idleJitterGuard = IdlePriority - 2048

// AperiodicPolicyKind selects one of the three build-time aperiodic
// disciplines.
type AperiodicPolicyKind int

const (
	RoundRobin AperiodicPolicyKind = iota
	Lottery
	Dynamic
)

// DynamicMode distinguishes the two Dynamic sub-variants.
type DynamicMode int

const (
	DynamicLifetime DynamicMode = iota // priority + cumulative run_time
	DynamicQuantum                     // priority + min(cur_run_time, quantum)
)

// Config is a per-CPU scheduler configuration.
type Config struct {
	UtilLimit              uint64 // <= UtilScale
	SporadicReservation    uint64
	AperiodicReservation   uint64
	AperiodicQuantumNS     uint64
	AperiodicDefaultPriority uint64
	AperiodicPolicy        AperiodicPolicyKind
	DynamicMode            DynamicMode
	SlackNS                uint64
	InterruptThreadModel   bool
	MaxQueueSize           int // fixed capacity; overflow is a programmer error
}

// DefaultConfig returns production-sensible defaults.
func DefaultConfig() Config {
	return Config{
		UtilLimit:               UtilScale,
		SporadicReservation:     100_000,  // 10%
		AperiodicReservation:    100_000,  // 10%
		AperiodicQuantumNS:      1_000_000, // 1ms
		AperiodicDefaultPriority: 1 << 20,
		AperiodicPolicy:         Dynamic,
		DynamicMode:             DynamicQuantum,
		SlackNS:                 2_000, // scheduler-overhead budget
		MaxQueueSize:            4096,
	}
}

// periodicReservation derives the periodic budget from the other two
// reservations, exactly as rt_thread_admit does: per_res = util_limit -
// aper_res - spor_res.
func (c Config) periodicReservation() uint64 {
	return c.UtilLimit - c.AperiodicReservation - c.SporadicReservation
}
