package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"HackathonScanner/internal/ports"
)

// Scheduler wires the cron driver to the orchestrator.
type Scheduler struct {
	driver       ports.Scheduler
	orchestrator *Orchestrator
	logger       *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring ingestion runs.
func NewScheduler(driver ports.Scheduler, orchestrator *Orchestrator, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, orchestrator: orchestrator, logger: logger}
}

// Start registers the ingestion run with the provided driver. A tick
// arriving while a run is in flight is a logged no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.orchestrator == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := s.orchestrator.RunOnce(ctx); err != nil {
			if errors.Is(err, ErrRunInProgress) {
				return
			}
			if s.logger != nil {
				s.logger.Error("scheduled ingestion run failed", "trigger", trigger, "error", err)
			}
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
