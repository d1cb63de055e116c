// Package scheduler triggers pipeline runs on a fixed interval. Overlap
// control lives in the runner: a tick that fires while a run is still in
// flight is dropped, never queued.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/yumiaura/RedditSync/internal/domain"
	"github.com/yumiaura/RedditSync/internal/service"
)

// Runner is the run orchestrator surface the scheduler drives.
type Runner interface {
	RunOnce(ctx context.Context) (*domain.RunStats, error)
}

type Scheduler struct {
	runner       Runner
	interval     time.Duration
	initialDelay time.Duration
	logger       *slog.Logger
}

func New(runner Runner, interval, initialDelay time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:       runner,
		interval:     interval,
		initialDelay: initialDelay,
		logger:       logger.With("component", "scheduler"),
	}
}

// Start runs until ctx is cancelled, triggering one run per tick after an
// optional initial delay. Runs execute off the tick loop, so a tick that
// fires mid-run hits the runner's in-progress gate and is dropped instead
// of waiting in the ticker's buffer.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "initial_delay", s.initialDelay)

	if s.initialDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.initialDelay):
		}
	}

	var wg sync.WaitGroup
	launch := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.trigger(ctx)
		}()
	}

	launch()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			launch()
		}
	}
}

func (s *Scheduler) trigger(ctx context.Context) {
	_, err := s.runner.RunOnce(ctx)
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		s.logger.Warn("previous run still in flight, tick dropped")
	case err != nil:
		s.logger.Error("run failed", "error", err)
	}
}
