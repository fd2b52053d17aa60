// Package telemetry persists per-thread statistics after a thread is
// reaped, so deadline-miss rates and run-time history survive past the
// thread's own lifetime for later analysis — something the original
// kernel has no use for (threads just vanish) but any hosted deployment
// of this scheduler wants.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hobbes-aerokernel/aerosched/sched"
)

// Historian writes reaped-thread statistics to PostgreSQL, grounded on
// control_plane/store/postgres.go's pgxpool-backed construction and
// upsert style.
type Historian struct {
	pool *pgxpool.Pool
}

// NewHistorian connects to connString, tuning the pool for the modest,
// bursty write pattern of a reaper sweep rather than a request-serving
// workload.
func NewHistorian(ctx context.Context, connString string) (*Historian, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("telemetry: parsing connection string: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	config.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("telemetry: ping: %w", err)
	}
	return &Historian{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (h *Historian) Close() {
	h.pool.Close()
}

// Schema is the DDL a deployment runs once before using a Historian.
const Schema = `
CREATE TABLE IF NOT EXISTS thread_history (
	tid BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	constraint_type TEXT NOT NULL,
	run_time_ns BIGINT NOT NULL,
	arrival_count BIGINT NOT NULL,
	miss_count BIGINT NOT NULL,
	miss_time_sum_ns BIGINT NOT NULL,
	miss_time_sum_sq BIGINT NOT NULL,
	num_thefts BIGINT NOT NULL,
	reaped_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// RecordReaped upserts one thread's final statistics, called by the
// reaper with a snapshot returned by Scheduler.ReapSnapshots.
func (h *Historian) RecordReaped(ctx context.Context, t *sched.ThreadSnapshot) error {
	_, err := h.pool.Exec(ctx, `
		INSERT INTO thread_history
			(tid, name, constraint_type, run_time_ns, arrival_count, miss_count, miss_time_sum_ns, miss_time_sum_sq, num_thefts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tid) DO UPDATE SET
			run_time_ns = EXCLUDED.run_time_ns,
			arrival_count = EXCLUDED.arrival_count,
			miss_count = EXCLUDED.miss_count,
			miss_time_sum_ns = EXCLUDED.miss_time_sum_ns,
			miss_time_sum_sq = EXCLUDED.miss_time_sum_sq,
			num_thefts = EXCLUDED.num_thefts,
			reaped_at = NOW()`,
		t.TID, t.Name, t.Type, t.RunTime, t.ArrivalCount, t.MissCount, 0, 0, t.NumThefts)
	if err != nil {
		return fmt.Errorf("telemetry: recording thread %d: %w", t.TID, err)
	}
	return nil
}

// MissRate returns a thread's historical deadline-miss rate
// (miss_count / arrival_count), or 0 if the thread never arrived.
func (h *Historian) MissRate(ctx context.Context, tid uint64) (float64, error) {
	var missCount, arrivalCount int64
	err := h.pool.QueryRow(ctx,
		`SELECT miss_count, arrival_count FROM thread_history WHERE tid = $1`, tid,
	).Scan(&missCount, &arrivalCount)
	if err != nil {
		return 0, fmt.Errorf("telemetry: querying thread %d: %w", tid, err)
	}
	if arrivalCount == 0 {
		return 0, nil
	}
	return float64(missCount) / float64(arrivalCount), nil
}
