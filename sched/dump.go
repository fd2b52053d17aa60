package sched

// ThreadSnapshot is a point-in-time, lock-free-to-read copy of a
// thread's scheduler-visible state, for diagnostics and the websocket/
// redis sinks in the diagnostics package.
type ThreadSnapshot struct {
	TID          uint64
	Name         string
	Type         string
	Status       string
	QueueTag     QueueTag
	Deadline     uint64
	RunTime      uint64
	MissCount    uint64
	ArrivalCount uint64
	NumThefts    uint64
}

func snapshotThread(t *Thread) ThreadSnapshot {
	return ThreadSnapshot{
		TID:          t.TID,
		Name:         t.Name,
		Type:         t.Constraints.Type.String(),
		Status:       t.Status.String(),
		QueueTag:     t.QueueTag,
		Deadline:     t.Deadline,
		RunTime:      t.RunTime,
		MissCount:    t.MissCount,
		ArrivalCount: t.ArrivalCount,
		NumThefts:    t.NumThefts,
	}
}

// CoreSnapshot is the per-CPU diagnostic view: the current thread plus
// every thread sitting in each of the three queues.
type CoreSnapshot struct {
	CPU       int
	Current   *ThreadSnapshot
	Runnable  []ThreadSnapshot
	Pending   []ThreadSnapshot
	Aperiodic []ThreadSnapshot
}

// DumpCore builds a CoreSnapshot for one CPU, matching
// sched_dump_cores's per-core section of the original's text dump.
func (s *Scheduler) DumpCore(idx int) *CoreSnapshot {
	c := s.CPU(idx)
	if c == nil {
		return nil
	}
	c.lock()
	defer c.unlock()

	snap := &CoreSnapshot{CPU: idx}
	if c.current != nil {
		cs := snapshotThread(c.current)
		snap.Current = &cs
	}
	for _, t := range c.runnable.Dump() {
		snap.Runnable = append(snap.Runnable, snapshotThread(t))
	}
	for _, t := range c.pending.Dump() {
		snap.Pending = append(snap.Pending, snapshotThread(t))
	}
	for _, t := range c.aperiodic.Dump() {
		snap.Aperiodic = append(snap.Aperiodic, snapshotThread(t))
	}
	return snap
}

// DumpCores builds a CoreSnapshot for every CPU, matching
// sched_dump_cores.
func (s *Scheduler) DumpCores() []CoreSnapshot {
	out := make([]CoreSnapshot, 0, len(s.cpus))
	for i := range s.cpus {
		out = append(out, *s.DumpCore(i))
	}
	return out
}

// DumpThreads returns a snapshot of every thread known to the global
// registry, matching sched_dump_threads.
func (s *Scheduler) DumpThreads() []ThreadSnapshot {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()
	out := make([]ThreadSnapshot, 0, len(s.registry.threads))
	for t := range s.registry.threads {
		out = append(out, snapshotThread(t))
	}
	return out
}

// TimeSnapshot reports the scheduler's current notion of time per CPU,
// matching sched_dump_time.
type TimeSnapshot struct {
	CPU     int
	Now     uint64
	SetTime uint64
}

// DumpTime returns the current/set time pair for every CPU.
func (s *Scheduler) DumpTime() []TimeSnapshot {
	out := make([]TimeSnapshot, 0, len(s.cpus))
	for i, c := range s.cpus {
		c.lock()
		out = append(out, TimeSnapshot{CPU: i, Now: c.now(), SetTime: c.setTime})
		c.unlock()
	}
	return out
}
