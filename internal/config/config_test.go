package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DATABASE_TYPE", "SNOWFLAKE_NODE_ID", "GORM_LOG_LEVEL", "GORM_SLOW_THRESHOLD", "SCHEDULER_CONCURRENCY", "RATING_CLIENT_IDS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "postgres", cfg.DBType)
	assert.Equal(t, int64(1), cfg.NodeID)
	assert.Equal(t, "warn", cfg.GormLogLevel)
	assert.Equal(t, 200*time.Millisecond, cfg.GormSlowThreshold)
	assert.Equal(t, 4, cfg.SchedulerConcurrency)
	assert.Empty(t, cfg.RatingClientIDs)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LOG_LEVEL", " DEBUG ")
	t.Setenv("OTEL_ENABLED", "off")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.5")
	t.Setenv("SNOWFLAKE_NODE_ID", "12")
	t.Setenv("RATING_CLIENT_IDS", "7, x, 9,")
	t.Setenv("SCHEDULER_RUN_TIMEOUT", "-1s")

	cfg := Load()

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.OtelEnabled)
	assert.Equal(t, 0.5, cfg.OtelSamplingRatio)
	assert.Equal(t, int64(12), cfg.NodeID)
	assert.Equal(t, []int64{7, 9}, cfg.RatingClientIDs)
	assert.Equal(t, 10*time.Minute, cfg.SchedulerRunTimeout)
}
