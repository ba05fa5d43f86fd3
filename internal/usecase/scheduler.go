package usecase

import (
	"context"
	"log/slog"
	"time"

	"BlogHarvester/internal/ports"
)

// Jobs wires recurring work (harvest, enrichment, reference refresh)
// into the cron driver.
type Jobs struct {
	driver ports.Scheduler
	logger *slog.Logger
}

// NewJobs returns a helper to register and run recurring jobs.
func NewJobs(driver ports.Scheduler, logger *slog.Logger) *Jobs {
	return &Jobs{driver: driver, logger: logger}
}

// Register binds one job function to a cron spec. Job errors are logged
// and absorbed; the schedule keeps running.
func (j *Jobs) Register(spec, name string, fn func(ctx context.Context, trigger time.Time) error) error {
	if j.driver == nil || fn == nil {
		return nil
	}
	return j.driver.Add(spec, func(trigger time.Time) {
		ctx := context.Background()
		if err := fn(ctx, trigger); err != nil && j.logger != nil {
			j.logger.Error("scheduled job failed", "job", name, "error", err)
		}
	})
}

// Start begins the underlying scheduler.
func (j *Jobs) Start(ctx context.Context) error {
	if j.driver == nil {
		return nil
	}
	return j.driver.Start(ctx)
}

// Stop gracefully tears down the underlying scheduler.
func (j *Jobs) Stop(ctx context.Context) error {
	if j.driver == nil {
		return nil
	}
	return j.driver.Stop(ctx)
}
