// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// TempExpirer removes temp standards workspaces past their retention window
type TempExpirer interface {
	ExpireTempFiles(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	expirer  TempExpirer
	now      func() time.Time
	logger   *slog.Logger
}

// NewScheduler creates a new job scheduler. schedule is a standard 5-field
// cron expression for the temp workspace cleanup.
func NewScheduler(expirer TempExpirer, schedule string, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:     c,
		schedule: schedule,
		expirer:  expirer,
		now:      time.Now,
		logger:   logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.expireTempFiles); err != nil {
		return fmt.Errorf("failed to schedule temp cleanup %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("temp_cleanup", s.schedule),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

func (s *Scheduler) expireTempFiles() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := s.expirer.ExpireTempFiles(ctx, s.now())
	if err != nil {
		s.logger.Error("temp workspace cleanup failed", slog.Any("error", err))
		return
	}

	s.logger.Info("temp workspace cleanup completed", slog.Int64("removed", n))
}
