// Package diagnostics publishes scheduler dump snapshots to external
// observers: a websocket hub for live dashboards, and a
// Redis channel for anything that wants to subscribe without holding an
// open connection to this process directly. Both sinks are publish-
// only — diagnostics never reads scheduler state back out of them.
package diagnostics

import (
	"context"
	"time"

	"github.com/hobbes-aerokernel/aerosched/sched"
)

// Snapshot is the full periodic diagnostic payload published to every sink.
type Snapshot struct {
	TakenAtNS uint64                `json:"taken_at_ns"`
	Cores     []sched.CoreSnapshot  `json:"cores"`
	Threads   []sched.ThreadSnapshot `json:"threads"`
	Time      []sched.TimeSnapshot  `json:"time"`
}

// Sink receives a Snapshot; implementations must not block the caller
// for long (they should buffer or drop rather than stall the publisher
// loop).
type Sink interface {
	Publish(ctx context.Context, s Snapshot) error
}

// Publisher periodically snapshots a Scheduler and fans it out to every
// registered Sink.
type Publisher struct {
	sched    *sched.Scheduler
	clock    sched.Clock
	sinks    []Sink
	interval time.Duration
}

// NewPublisher builds a Publisher that samples s every interval.
func NewPublisher(s *sched.Scheduler, clock sched.Clock, interval time.Duration, sinks ...Sink) *Publisher {
	return &Publisher{sched: s, clock: clock, sinks: sinks, interval: interval}
}

// Run blocks, publishing snapshots every interval until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishOnce(ctx)
		}
	}
}

func (p *Publisher) publishOnce(ctx context.Context) {
	snap := Snapshot{
		TakenAtNS: p.clock.Now(),
		Cores:     p.sched.DumpCores(),
		Threads:   p.sched.DumpThreads(),
		Time:      p.sched.DumpTime(),
	}
	for _, sink := range p.sinks {
		_ = sink.Publish(ctx, snap)
	}
}
