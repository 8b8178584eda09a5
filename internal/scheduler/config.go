package scheduler

import (
	"time"

	"github.com/smallbiznis/signbilling/internal/config"
)

// Config controls the batch rating loop.
type Config struct {
	RunInterval time.Duration
	RunTimeout  time.Duration
	Concurrency int
}

func DefaultConfig() Config {
	return Config{
		RunInterval: 24 * time.Hour,
		RunTimeout:  10 * time.Minute,
		Concurrency: 4,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.SchedulerRunInterval,
		RunTimeout:  cfg.SchedulerRunTimeout,
		Concurrency: cfg.SchedulerConcurrency,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	if c.Concurrency <= 0 {
		c.Concurrency = defaults.Concurrency
	}
	return c
}
