package sched

import "errors"

// Sentinel errors for the recoverable half of the error taxonomy. The
// other half — queue-full, impossible state transitions, lost queue
// pointers — panics with a descriptive message, matching the original's
// ERROR()+panic() pairing for invariants that must hold for safety.
var (
	// ErrAdmissionDenied is returned when a constraint change or initial
	// admission would violate the utilization bound or the interrupt
	// priority cap. The caller may retry with looser constraints.
	ErrAdmissionDenied = errors.New("sched: admission denied")

	// ErrMigrationRefused is returned when move-thread's preconditions
	// are not met: thread is bound, currently running, or not in a
	// migratable status.
	ErrMigrationRefused = errors.New("sched: migration refused")

	// ErrInvalidCPU is returned for a migration or placement request
	// naming a CPU index outside the scheduler's configured range.
	ErrInvalidCPU = errors.New("sched: invalid cpu index")

	// ErrSelfMigration is returned when a thread attempts to migrate
	// itself; the caller must target a different CPU's current thread
	// from outside.
	ErrSelfMigration = errors.New("sched: cannot migrate the calling thread")

	// ErrNotCurrent is returned when change-constraints is attempted on
	// a thread that is not the calling CPU's current thread.
	ErrNotCurrent = errors.New("sched: change-constraints targets only the calling thread")
)

// queueFullPanic panics with a descriptive message: a full queue is a
// programming error, not a condition the caller should recover from.
func queueFullPanic(queue string) {
	panic("sched: queue overflow in " + queue + ": this is a programming error, not a runtime condition")
}
