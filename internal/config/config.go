package config

import (
	"strings"
	"time"

	"stocksim-backend/internal/application/pricesync"
	"stocksim-backend/internal/application/recommend"
	"stocksim-backend/internal/infrastructure/feed"

	"github.com/spf13/viper"
)

const defaultDatabaseURL = "data/stock_simulator.db"

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	SessionSecret       string
	DatabaseURL         string // postgres DSN or sqlite path
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string

	FeedSpotBaseURL     string
	FeedHistoryBaseURL  string
	FeedTimeout         time.Duration
	SyncSchedule        string
	SyncOnStart         bool
	HistoryLookbackDays int
	RecommendCacheTTL   time.Duration
	SeedDefaults        bool
}

// Load loads config from env and optional .env file. Environment variables win.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", defaultDatabaseURL)
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("FEED_SPOT_BASE_URL", feed.DefaultSpotBaseURL)
	v.SetDefault("FEED_HISTORY_BASE_URL", feed.DefaultHistoryBaseURL)
	v.SetDefault("FEED_TIMEOUT", pricesync.DefaultFeedTimeout)
	v.SetDefault("SYNC_SCHEDULE", pricesync.DefaultSchedule)
	v.SetDefault("SYNC_ON_START", true)
	v.SetDefault("HISTORY_LOOKBACK_DAYS", pricesync.DefaultLookbackDays)
	v.SetDefault("RECOMMEND_CACHE_TTL", recommend.DefaultCacheTTL)
	v.SetDefault("SEED_DEFAULTS", true)

	return &Config{
		Env:                 v.GetString("APP_ENV"),
		Port:                v.GetString("PORT"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		SessionSecret:       v.GetString("SESSION_SECRET"),
		DatabaseURL:         v.GetString("DATABASE_URL"),
		RedisURL:            v.GetString("REDIS_URL"),
		FrontendURLEndsWith: v.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         v.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   v.GetBool("ALLOW_CROSS_SITE_DEV"),
		HealthAdminKey:      v.GetString("HEALTH_ADMIN_KEY"),
		FeedSpotBaseURL:     v.GetString("FEED_SPOT_BASE_URL"),
		FeedHistoryBaseURL:  v.GetString("FEED_HISTORY_BASE_URL"),
		FeedTimeout:         v.GetDuration("FEED_TIMEOUT"),
		SyncSchedule:        v.GetString("SYNC_SCHEDULE"),
		SyncOnStart:         v.GetBool("SYNC_ON_START"),
		HistoryLookbackDays: v.GetInt("HISTORY_LOOKBACK_DAYS"),
		RecommendCacheTTL:   v.GetDuration("RECOMMEND_CACHE_TTL"),
		SeedDefaults:        v.GetBool("SEED_DEFAULTS"),
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
