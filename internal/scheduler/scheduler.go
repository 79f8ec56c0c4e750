// Package scheduler runs named periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

// Scheduler wraps a gocron scheduler. Jobs never overlap with themselves.
type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a Scheduler running on UTC.
func New(logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Every registers job to run each interval, starting immediately once the
// scheduler is started.
func (s *Scheduler) Every(name string, interval time.Duration, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("schedule %s: interval must be positive", name)
	}
	_, err := s.scheduler.Every(interval).Tag(name).SingletonMode().Do(func() {
		s.run(name, job)
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler starting", "jobs", len(s.scheduler.Jobs()))
	s.scheduler.StartAsync()
}

// Stop cancels running jobs and stops future runs.
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
}

func (s *Scheduler) run(name string, job Job) {
	if s.ctx.Err() != nil {
		return
	}

	start := time.Now()
	if err := job(s.ctx); err != nil {
		s.logger.Warn("scheduled job failed", "job", name, "error", err)
		return
	}
	s.logger.Debug("scheduled job finished", "job", name, "duration", time.Since(start))
}
