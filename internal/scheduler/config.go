package scheduler

import (
	"time"

	"github.com/smallbiznis/gymdesk/internal/config"
)

const (
	JobAlertSweep        = "alert_sweep"
	JobActivityRetention = "activity_retention"
)

// Config controls job schedules and timeouts. The alert sweep schedule comes
// from the hot-reloaded policy so it is not part of this struct.
type Config struct {
	RetentionSchedule string
	SweepTimeout      time.Duration
	RetentionTimeout  time.Duration
	EnabledJobs       []string
}

func DefaultConfig() Config {
	return Config{
		RetentionSchedule: "@daily",
		SweepTimeout:      30 * time.Second,
		RetentionTimeout:  5 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	c := DefaultConfig()
	c.EnabledJobs = cfg.SchedulerJobs
	return c
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RetentionSchedule == "" {
		c.RetentionSchedule = defaults.RetentionSchedule
	}
	if c.SweepTimeout <= 0 {
		c.SweepTimeout = defaults.SweepTimeout
	}
	if c.RetentionTimeout <= 0 {
		c.RetentionTimeout = defaults.RetentionTimeout
	}
	return c
}
