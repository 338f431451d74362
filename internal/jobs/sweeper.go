// Package jobs runs scheduled housekeeping.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"whereismypet/internal/observability"
	"whereismypet/internal/repository"

	"github.com/robfig/cron/v3"
)

const (
	DefaultOrphanSweepSchedule = "@hourly"

	sweepTimeout = 2 * time.Minute
)

// Scheduler owns the cron runner for background jobs.
type Scheduler struct {
	cron        *cron.Cron
	maintenance repository.MaintenanceRepository
}

// NewScheduler registers the orphan sweep on schedule.
func NewScheduler(maintenance repository.MaintenanceRepository, schedule string) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultOrphanSweepSchedule
	}
	s := &Scheduler{
		cron:        cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		maintenance: maintenance,
	}
	if _, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		_, _ = s.SweepOrphans(ctx)
	}); err != nil {
		return nil, fmt.Errorf("schedule orphan sweep %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	observability.GlobalLogger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for a running job to finish or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SweepOrphans deletes comments, notifications and reports left behind by
// posts that no longer exist.
func (s *Scheduler) SweepOrphans(ctx context.Context) (map[string]int64, error) {
	started := time.Now()
	deleted, err := s.maintenance.DeleteOrphans(ctx)
	if err != nil {
		observability.LogAsyncOperationError(ctx, "orphan_sweep", err, nil)
		return deleted, err
	}

	tables := make([]string, 0, len(deleted))
	for table := range deleted {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	attrs := []any{"duration", time.Since(started)}
	for _, table := range tables {
		observability.OrphanSweepDeleted.WithLabelValues(table).Add(float64(deleted[table]))
		attrs = append(attrs, table, deleted[table])
	}
	observability.GlobalLogger.InfoContext(ctx, "orphan sweep finished", attrs...)
	return deleted, nil
}
