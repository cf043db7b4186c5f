// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/gastos-tracker/pkg/storage"
)

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	storage   storage.Storage
	schedule  string
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewScheduler creates a scheduler that sweeps archived uploads older than
// retentionDays on the given 5-field cron schedule.
func NewScheduler(store storage.Storage, schedule string, retentionDays int, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:      c,
		storage:   store,
		schedule:  schedule,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       time.Now,
		logger:    logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if s.retention <= 0 {
		s.logger.Info("upload retention disabled, cron scheduler not started")
		return nil
	}

	_, err := s.cron.AddFunc(s.schedule, s.sweepUploads)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("schedule", s.schedule),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow triggers the sweep synchronously and returns the number of removed files.
func (s *Scheduler) RunNow(ctx context.Context) (int, error) {
	return s.storage.Sweep(ctx, s.now().Add(-s.retention))
}

func (s *Scheduler) sweepUploads() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := s.RunNow(ctx)
	if err != nil {
		s.logger.Error("failed to sweep archived uploads",
			slog.Int("removed", removed),
			slog.Any("error", err),
		)
		return
	}

	s.logger.Info("archived uploads swept", slog.Int("removed", removed))
}
