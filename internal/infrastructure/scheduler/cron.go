// Package scheduler runs recurring jobs on cron expressions.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"BlogHarvester/internal/ports"
)

// CronScheduler drives jobs from standard five-field cron specs
// evaluated in a fixed location.
type CronScheduler struct {
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds an idle scheduler; jobs fire only after Start.
func NewCronScheduler(loc *time.Location) *CronScheduler {
	return &CronScheduler{cron: cron.New(cron.WithLocation(loc))}
}

// Add registers a job under a cron spec.
func (c *CronScheduler) Add(spec string, job func(time.Time)) error {
	_, err := c.cron.AddFunc(spec, func() {
		job(time.Now())
	})
	if err != nil {
		return fmt.Errorf("add cron job %q: %w", spec, err)
	}
	return nil
}

// Start launches the cron loop in its own goroutine.
func (c *CronScheduler) Start(_ context.Context) error {
	c.cron.Start()
	return nil
}

// Stop waits for running jobs to finish, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	done := c.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
