package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "data/stock_simulator.db", cfg.DatabaseURL)
	assert.Equal(t, 8*time.Second, cfg.FeedTimeout)
	assert.Equal(t, "@every 30s", cfg.SyncSchedule)
	assert.True(t, cfg.SyncOnStart)
	assert.Equal(t, 10, cfg.HistoryLookbackDays)
	assert.Equal(t, 10*time.Minute, cfg.RecommendCacheTTL)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("FEED_TIMEOUT", "3s")
	t.Setenv("SYNC_ON_START", "false")
	t.Setenv("HISTORY_LOOKBACK_DAYS", "5")
	t.Setenv("ALLOW_CROSS_SITE_DEV", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 3*time.Second, cfg.FeedTimeout)
	assert.False(t, cfg.SyncOnStart)
	assert.Equal(t, 5, cfg.HistoryLookbackDays)
	assert.True(t, cfg.AllowCrossSiteDev)
}
