package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"ArxivDigest/internal/ports"
)

// CronScheduler fires the daily pipeline on a cron expression in the
// configured timezone.
type CronScheduler struct {
	expression string
	location   *time.Location
	logger     *slog.Logger
	runner     *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// New builds a scheduler; a nil location falls back to UTC.
func New(expression string, loc *time.Location, log *slog.Logger) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &CronScheduler{
		expression: expression,
		location:   loc,
		logger:     log,
	}
}

// Start registers the job and begins firing it. The job receives the
// wall-clock time of each trigger in the scheduler's timezone.
func (s *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if s.runner != nil {
		return fmt.Errorf("scheduler already started")
	}

	runner := cron.New(cron.WithLocation(s.location))
	_, err := runner.AddFunc(s.expression, func() {
		if ctx.Err() != nil {
			return
		}
		job(time.Now().In(s.location))
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", s.expression, err)
	}

	s.runner = runner
	runner.Start()
	s.logger.Info("scheduler started", "cron", s.expression, "timezone", s.location.String())
	return nil
}

// Stop halts scheduling and waits for a running job to finish or the
// context to expire.
func (s *CronScheduler) Stop(ctx context.Context) error {
	if s.runner == nil {
		return nil
	}

	done := s.runner.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	s.runner = nil
	s.logger.Info("scheduler stopped")
	return nil
}
