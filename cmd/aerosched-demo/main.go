// Command aerosched-demo wires the scheduler, fiber, and monitor
// packages into a runnable process: it admits a small mix of periodic,
// sporadic, and aperiodic threads, runs a reaper and diagnostics
// publisher loop, and exposes Prometheus metrics and a websocket
// dashboard feed, matching control_plane/main.go's wiring style (load
// config, build the core components, start background loops, serve
// HTTP) adapted to this domain.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hobbes-aerokernel/aerosched/config"
	"github.com/hobbes-aerokernel/aerosched/diagnostics"
	"github.com/hobbes-aerokernel/aerosched/fiber"
	"github.com/hobbes-aerokernel/aerosched/monitor"
	"github.com/hobbes-aerokernel/aerosched/observability"
	"github.com/hobbes-aerokernel/aerosched/platform"
	"github.com/hobbes-aerokernel/aerosched/sched"
	"github.com/hobbes-aerokernel/aerosched/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("aerosched-demo: loading config: %v", err)
	}

	clock := sched.NewWallClock()
	hooks := observability.NewHooks()
	nmi := platform.NewNMIBroadcaster()

	sc := sched.NewScheduler(cfg.NumCPUs, cfg.Sched, clock, hooks,
		func(idx int) sched.OneShotTimer { return platform.NewTimer(time.Now()) },
		func(idx int) sched.InterruptController { return platform.NewInterruptController() },
	)

	followers := make([]monitor.Follower, cfg.NumCPUs)
	mon := monitor.NewMonitor(cfg.NumCPUs, followers)
	for i := 0; i < cfg.NumCPUs; i++ {
		cpuIdx := i
		nmi.Register(cpuIdx, func() { mon.SyncEntry(cpuIdx) })
	}

	fsched := cfg.NewFiberScheduler()

	for i := 0; i < cfg.NumCPUs; i++ {
		idle := sched.NewThread("idle", i, 0)
		idle.Status = sched.StatusAdmitted
		sc.CPU(i).SetIdleThread(idle)
		sc.RegisterThread(idle)

		fidle := fsched.Create("fiber-idle", func(h *fiber.Handle, input any) any {
			for {
				h.Yield()
			}
		}, nil)
		fsched.CPU(i).SetIdleFiber(fidle)
	}

	seedWorkload(sc, cfg.NumCPUs)

	historian := maybeHistorian(context.Background())
	if historian != nil {
		defer historian.Close()
	}

	wsSink := diagnostics.NewWebSocketSink()
	http.HandleFunc("/diagnostics/ws", wsSink.ServeHTTP)

	sinks := []diagnostics.Sink{wsSink}
	if addr := os.Getenv("AEROSCHED_REDIS_ADDR"); addr != "" {
		if redisSink, err := diagnostics.NewRedisSink(context.Background(), addr, "aerosched.diagnostics"); err != nil {
			log.Printf("aerosched-demo: redis diagnostics sink unavailable: %v", err)
		} else {
			defer redisSink.Close()
			sinks = append(sinks, redisSink)
		}
	}
	publisher := diagnostics.NewPublisher(sc, clock, time.Second, sinks...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go publisher.Run(ctx)
	go runReaper(ctx, sc, historian)
	go runQueueDepthSampler(ctx, sc)

	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	_ = mon

	log.Printf("aerosched-demo listening on %s (%d CPUs)", *addr, cfg.NumCPUs)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

// maybeHistorian connects to Postgres if AEROSCHED_DATABASE_URL is set,
// otherwise returns nil and the reaper simply skips persistence.
func maybeHistorian(ctx context.Context) *telemetry.Historian {
	dsn := os.Getenv("AEROSCHED_DATABASE_URL")
	if dsn == "" {
		return nil
	}
	h, err := telemetry.NewHistorian(ctx, dsn)
	if err != nil {
		log.Printf("aerosched-demo: telemetry historian unavailable: %v", err)
		return nil
	}
	return h
}

// runReaper periodically collects exited threads and, if a historian is
// configured, persists their final statistics.
func runReaper(ctx context.Context, sc *sched.Scheduler, historian *telemetry.Historian) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			victims := sc.ReapSnapshots()
			if historian == nil {
				continue
			}
			for _, v := range victims {
				if err := historian.RecordReaped(ctx, &v); err != nil {
					log.Printf("aerosched-demo: recording reaped thread %d: %v", v.TID, err)
				}
			}
		}
	}
}

// runQueueDepthSampler keeps the queue-depth gauges current between
// diagnostic snapshots.
func runQueueDepthSampler(ctx context.Context, sc *sched.Scheduler) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observability.ObserveQueueDepths(sc)
		}
	}
}

// seedWorkload admits a small illustrative mix of threads so the demo
// has something to schedule immediately: one periodic, one sporadic,
// two aperiodic threads, and one aperiodic interrupt thread per CPU.
func seedWorkload(sc *sched.Scheduler, numCPUs int) {
	for i := 0; i < numCPUs; i++ {
		periodic := sched.NewThread("periodic-worker", -1, 0)
		periodic.Constraints = sched.Constraints{
			Type: sched.Periodic,
			Periodic: sched.PeriodicConstraint{
				Period: 20 * uint64(time.Millisecond),
				Slice:  5 * uint64(time.Millisecond),
			},
		}
		if err := sc.MakeRunnable(i, periodic); err != nil {
			log.Printf("aerosched-demo: admitting periodic thread on cpu %d: %v", i, err)
		}

		sporadic := sched.NewThread("sporadic-worker", -1, 0)
		sporadic.Constraints = sched.Constraints{
			Type: sched.Sporadic,
			Sporadic: sched.SporadicConstraint{
				Size:                          2 * uint64(time.Millisecond),
				Deadline:                      50 * uint64(time.Millisecond),
				AperiodicPriorityOnCompletion: 10,
			},
		}
		if err := sc.MakeRunnable(i, sporadic); err != nil {
			log.Printf("aerosched-demo: admitting sporadic thread on cpu %d: %v", i, err)
		}

		for j := 0; j < 2; j++ {
			aperiodic := sched.NewThread("aperiodic-worker", -1, uint64(5+j))
			if err := sc.MakeRunnable(i, aperiodic); err != nil {
				log.Printf("aerosched-demo: admitting aperiodic thread on cpu %d: %v", i, err)
			}
		}

		irqHandler := sched.NewThread("irq-handler", -1, 0)
		irqHandler.IsInterrupt = true
		irqHandler.Constraints = sched.Constraints{
			Type:                   sched.Aperiodic,
			InterruptPriorityClass: 8,
			Aperiodic:              sched.AperiodicConstraint{Priority: 0},
		}
		if err := sc.MakeRunnable(i, irqHandler); err != nil {
			log.Printf("aerosched-demo: admitting irq-handler thread on cpu %d: %v", i, err)
		}
	}
}
