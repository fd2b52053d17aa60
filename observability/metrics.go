// Package observability exposes the scheduler's internal decisions as
// Prometheus metrics, mirroring control_plane/observability/metrics.go's
// package-level promauto vars rather than a constructed registry
// object.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hobbes-aerokernel/aerosched/sched"
)

var (
	// ReschedTotal counts every reschedule decision, by CPU and whether
	// it switched the running thread.
	ReschedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aerosched_resched_total",
		Help: "Total reschedule decisions made, by CPU and outcome",
	}, []string{"cpu", "switched"})

	// AdmissionTotal counts admission outcomes by constraint type.
	AdmissionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aerosched_admission_total",
		Help: "Admission control outcomes by constraint type",
	}, []string{"type", "accepted"})

	// DeadlineMissTotal counts deadline misses by CPU and constraint type.
	DeadlineMissTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aerosched_deadline_miss_total",
		Help: "Deadline misses observed, by CPU and constraint type",
	}, []string{"cpu", "type"})

	// WorkStealTotal counts successful work-steals between CPUs.
	WorkStealTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aerosched_work_steal_total",
		Help: "Successful aperiodic work-steals, by source and destination CPU",
	}, []string{"from_cpu", "to_cpu"})

	// KickTotal counts cross-CPU kicks that were actually delivered
	// (not dropped by the rate limiter).
	KickTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aerosched_kick_total",
		Help: "Cross-CPU kicks delivered, by target CPU",
	}, []string{"cpu"})

	// RunnableQueueDepth tracks the current EDF runnable queue depth per CPU.
	RunnableQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aerosched_runnable_queue_depth",
		Help: "Current number of threads in the runnable (EDF) queue",
	}, []string{"cpu"})

	// AperiodicQueueDepth tracks the current aperiodic queue depth per CPU.
	AperiodicQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aerosched_aperiodic_queue_depth",
		Help: "Current number of threads in the aperiodic queue",
	}, []string{"cpu"})

	// BarrierWaitSeconds is a histogram for time spent blocked in the
	// monitor's counting barriers. It is registered here, but neither the
	// monitor package nor NewHooks records observations into it.
	BarrierWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aerosched_monitor_barrier_wait_seconds",
		Help:    "Time spent waiting at a monitor counting barrier",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
	})
)

// NewHooks builds a sched.Hooks that reports every decision point to
// the package-level metrics above, for use with sched.NewScheduler.
func NewHooks() *sched.Hooks {
	return &sched.Hooks{
		OnResched: func(cpuIdx int, switched, longPath bool) {
			ReschedTotal.WithLabelValues(strconv.Itoa(cpuIdx), strconv.FormatBool(switched)).Inc()
		},
		OnAdmission: func(ctype sched.ConstraintType, accepted bool) {
			AdmissionTotal.WithLabelValues(ctype.String(), strconv.FormatBool(accepted)).Inc()
		},
		OnMiss: func(cpuIdx int, ctype sched.ConstraintType) {
			DeadlineMissTotal.WithLabelValues(strconv.Itoa(cpuIdx), ctype.String()).Inc()
		},
		OnSteal: func(fromCPU, toCPU int, count int) {
			WorkStealTotal.WithLabelValues(strconv.Itoa(fromCPU), strconv.Itoa(toCPU)).Add(float64(count))
		},
		OnKick: func(cpuIdx int) {
			KickTotal.WithLabelValues(strconv.Itoa(cpuIdx)).Inc()
		},
	}
}

// ObserveQueueDepths samples every CPU's runnable/aperiodic queue depth
// into the gauges above; callers typically run this periodically from a
// background goroutine.
func ObserveQueueDepths(s *sched.Scheduler) {
	for i := 0; i < s.NumCPUs(); i++ {
		core := s.DumpCore(i)
		if core == nil {
			continue
		}
		cpu := strconv.Itoa(i)
		RunnableQueueDepth.WithLabelValues(cpu).Set(float64(len(core.Runnable)))
		AperiodicQueueDepth.WithLabelValues(cpu).Set(float64(len(core.Aperiodic)))
	}
}
