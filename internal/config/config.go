// Package config loads pipeline configuration from the environment with
// sensible defaults, so the service runs out of the box against public
// sources and an in-memory store.
package config

import (
	"os"
	"strconv"
	"time"
)

type (
	// Sources holds the external endpoints the fetchers scrape. Each
	// scalar metric has a primary and a secondary site; issue boards
	// are all fetched and merged, never raced.
	Sources struct {
		IndexPrimaryURL     string
		IndexSecondaryURL   string
		FxPrimaryURL        string
		FxSecondaryURL      string
		CommodityPrimaryURL string
		CommoditySecondURL  string
		RegistrarBoardURL   string
		AggregatorBoardURL  string
		QuoteURL            string
	}

	// Pipeline tunes cache lifetimes, reconciliation defaults and the
	// alert suppression window.
	Pipeline struct {
		SnapshotTTL       time.Duration // snapshot cache TTL, min 1 minute
		LastGoodRetention time.Duration // per-metric last-good retention
		FetchTimeout      time.Duration // per-request network bound
		DefaultMinUnits   int64         // min units when a source omits them
		AlertWindow       time.Duration // idempotency key expiry
		SyncSchedule      string        // cron spec for the scheduled run
		MarketInterval    time.Duration // inline trigger interval, market concern
		SuggestInterval   time.Duration // inline trigger interval, suggestions concern
	}

	// Server configures the HTTP surface.
	Server struct {
		Port       string
		AdminToken string // gates the manual sync trigger
		WebhookURL string // external notification channel, empty disables
	}

	Config struct {
		DatabaseURL string
		RedisURL    string
		Sources     Sources
		Pipeline    Pipeline
		Server      Server
	}
)

// Load reads configuration from the environment.
func Load() *Config {
	cfg := &Config{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisURL = os.Getenv("REDIS_URL")

	cfg.Sources.IndexPrimaryURL = getEnv("INDEX_PRIMARY_URL", "https://www.sharesansar.com/live-trading")
	cfg.Sources.IndexSecondaryURL = getEnv("INDEX_SECONDARY_URL", "https://merolagani.com/MarketSummary.aspx")
	cfg.Sources.FxPrimaryURL = getEnv("FX_PRIMARY_URL", "https://www.nrb.org.np/api/forex/v1/rates?per_page=1")
	cfg.Sources.FxSecondaryURL = getEnv("FX_SECONDARY_URL", "https://www.ashesh.com.np/forex/")
	cfg.Sources.CommodityPrimaryURL = getEnv("COMMODITY_PRIMARY_URL", "https://www.fenegosida.org/")
	cfg.Sources.CommoditySecondURL = getEnv("COMMODITY_SECONDARY_URL", "https://www.ashesh.com.np/gold/")
	cfg.Sources.RegistrarBoardURL = getEnv("REGISTRAR_BOARD_URL", "https://iporesult.cdsc.com.np/result/companyShares/fileUploaded")
	cfg.Sources.AggregatorBoardURL = getEnv("AGGREGATOR_BOARD_URL", "https://www.sharesansar.com/existing-issues")
	cfg.Sources.QuoteURL = getEnv("QUOTE_URL", "https://www.sharesansar.com/today-share-price")

	cfg.Pipeline.SnapshotTTL = getDuration("SNAPSHOT_TTL", 15*time.Minute)
	if cfg.Pipeline.SnapshotTTL < time.Minute {
		cfg.Pipeline.SnapshotTTL = time.Minute
	}
	cfg.Pipeline.LastGoodRetention = getDuration("LAST_GOOD_RETENTION", 72*time.Hour)
	cfg.Pipeline.FetchTimeout = getDuration("FETCH_TIMEOUT", 15*time.Second)
	cfg.Pipeline.DefaultMinUnits = getInt64("DEFAULT_MIN_UNITS", 10)
	cfg.Pipeline.AlertWindow = getDuration("ALERT_WINDOW", 3*time.Hour)
	cfg.Pipeline.SyncSchedule = getEnv("SYNC_SCHEDULE", "@every 30m")
	cfg.Pipeline.MarketInterval = getDuration("MARKET_TRIGGER_INTERVAL", 10*time.Minute)
	cfg.Pipeline.SuggestInterval = getDuration("SUGGEST_TRIGGER_INTERVAL", 6*time.Hour)

	cfg.Server.Port = getEnv("PORT", "8080")
	cfg.Server.AdminToken = os.Getenv("ADMIN_TOKEN")
	cfg.Server.WebhookURL = os.Getenv("NOTIFY_WEBHOOK_URL")

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}
