// Package platform isolates the few operations that, in the original,
// are raw hardware intrinsics: masking interrupts by priority class
// (CR8 on x86-64), arming a one-shot timer (the local APIC timer), and
// sending a cross-CPU interrupt (NMI broadcast). sched and monitor only
// ever see the narrow interfaces they declare (sched.OneShotTimer); this
// package provides the simulated implementations those interfaces need
// to run as an ordinary Go process, keeping every intrinsic at this one
// boundary: no context switch or hardware access inside sched itself.
package platform

import (
	"sync"
	"time"
)

// InterruptController tracks the simulated interrupt priority class
// (the Go analogue of writing CR8): any event whose class is at or
// below the current floor is masked until the floor is lowered again.
type InterruptController struct {
	mu    sync.Mutex
	floor uint8
}

// NewInterruptController returns a controller with nothing masked.
func NewInterruptController() *InterruptController {
	return &InterruptController{}
}

// Raise sets the masking floor and returns the previous value, so
// callers can restore it — mirroring the original's save/restore around
// a critical section.
func (c *InterruptController) Raise(class uint8) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.floor
	c.floor = class
	return prev
}

// Restore sets the masking floor back to a value returned by Raise.
func (c *InterruptController) Restore(class uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.floor = class
}

// Masked reports whether an event at the given priority class would
// currently be masked.
func (c *InterruptController) Masked(class uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return class <= c.floor
}

// Timer is the production sched.OneShotTimer, backed by time.Timer.
// Re-arming stops any pending fire and schedules a new one, matching
// the local APIC timer's single-shot-replace semantics.
type Timer struct {
	epoch time.Time

	mu sync.Mutex
	t  *time.Timer
}

// NewTimer builds a Timer whose deadlines are nanoseconds since epoch.
func NewTimer(epoch time.Time) *Timer {
	return &Timer{epoch: epoch}
}

// Arm schedules fire to run no earlier than deadlineNS nanoseconds
// after epoch, replacing any previously armed fire.
func (t *Timer) Arm(deadlineNS uint64, fire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.t != nil {
		t.t.Stop()
	}
	target := t.epoch.Add(time.Duration(deadlineNS))
	d := time.Until(target)
	if d < 0 {
		d = 0
	}
	t.t = time.AfterFunc(d, fire)
}

// Stop cancels any pending fire.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.t != nil {
		t.t.Stop()
	}
}

// NMIBroadcaster sends a cross-CPU interrupt to every CPU other than
// the sender, the Go analogue of apic_bcast_nmi. Handlers are plain
// functions rather than an actual signal, since Go has no portable way
// to interrupt another goroutine's execution — the monitor's barrier
// protocol only needs "every other CPU eventually notices and calls
// SyncEntry", and a direct function call gives that without pretending
// to preempt anything.
type NMIBroadcaster struct {
	mu       sync.Mutex
	handlers map[int]func()
}

// NewNMIBroadcaster returns an empty broadcaster.
func NewNMIBroadcaster() *NMIBroadcaster {
	return &NMIBroadcaster{handlers: make(map[int]func())}
}

// Register installs the handler a CPU runs when NMI'd.
func (b *NMIBroadcaster) Register(cpuIdx int, handler func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[cpuIdx] = handler
}

// Broadcast invokes every registered handler except self's, each in its
// own goroutine, matching the asynchronous nature of a real NMI.
func (b *NMIBroadcaster) Broadcast(self int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for cpu, h := range b.handlers {
		if cpu == self || h == nil {
			continue
		}
		go h()
	}
}
