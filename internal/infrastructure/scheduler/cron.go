// Package scheduler provides the cron-backed driver for recurring
// ingestion runs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"HackathonScanner/internal/ports"
)

// CronScheduler drives the ingestion job from a standard 5-field cron
// expression.
type CronScheduler struct {
	spec     string
	location *time.Location
	logger   *slog.Logger
	cron     *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler from a cron expression and the
// timezone the expression should be evaluated in.
func NewCronScheduler(spec string, location *time.Location, logger *slog.Logger) *CronScheduler {
	if location == nil {
		location = time.UTC
	}
	return &CronScheduler{spec: spec, location: location, logger: logger}
}

// Start registers the job and begins the cron loop. Calling Start on a
// running scheduler is a no-op.
func (c *CronScheduler) Start(_ context.Context, job func(time.Time)) error {
	if job == nil || c.cron != nil {
		return nil
	}

	runner := cron.New(
		cron.WithLocation(c.location),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)

	if _, err := runner.AddFunc(c.spec, func() { job(time.Now().In(c.location)) }); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", c.spec, err)
	}

	runner.Start()
	c.cron = runner
	if c.logger != nil {
		c.logger.Info("cron scheduler started", "spec", c.spec, "timezone", c.location.String())
	}
	return nil
}

// Stop halts the cron loop and waits for a running job to finish,
// bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	if c.cron == nil {
		return nil
	}

	stopped := c.cron.Stop()
	c.cron = nil

	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}
