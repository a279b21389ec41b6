package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/reboundhq/rebound/internal/services"
	"github.com/reboundhq/rebound/pkg/logger"
)

const (
	defaultRetentionDays = 90
	defaultSchedule      = "@daily"
)

// Cleaner runs background maintenance: purging read notifications that have
// aged past the retention window so the table does not grow without bound.
type Cleaner struct {
	notifications *services.NotificationService
	cron          *cron.Cron
	now           func() time.Time
	log           *zap.Logger

	retentionDays int
	schedule      string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for retention comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithRetentionDays adjusts how long read notifications are retained.
// Zero or negative values disable the purge.
func WithRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		cleaner.retentionDays = days
	}
}

// WithSchedule overrides the cron specification for the purge job.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(notifications *services.NotificationService, opts ...Option) (*Cleaner, error) {
	if notifications == nil {
		return nil, fmt.Errorf("maintenance: notification service is required")
	}

	cleaner := &Cleaner{
		notifications: notifications,
		now:           time.Now,
		retentionDays: defaultRetentionDays,
		schedule:      defaultSchedule,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New()
	}

	return cleaner, nil
}

// Start registers the purge job and starts the scheduler. A non-positive
// retention disables the job entirely.
func (c *Cleaner) Start() error {
	if c.retentionDays <= 0 {
		c.log.Info("notification retention disabled")
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if _, err := c.RunNotificationCleanup(context.Background()); err != nil {
			c.log.Error("notification cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: schedule cleanup: %w", err)
	}

	c.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for running jobs to finish.
func (c *Cleaner) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

// RunNotificationCleanup purges read notifications older than the retention
// window and returns the number of rows removed.
func (c *Cleaner) RunNotificationCleanup(ctx context.Context) (int64, error) {
	cutoff := c.now().UTC().AddDate(0, 0, -c.retentionDays)
	purged, err := c.notifications.DeleteReadOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if purged > 0 {
		c.log.Info("purged notifications",
			zap.Int64("count", purged),
			zap.Time("cutoff", cutoff))
	}
	return purged, nil
}
