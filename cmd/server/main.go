package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/paisa-labs/market-sync/internal/cache"
	"github.com/paisa-labs/market-sync/internal/config"
	"github.com/paisa-labs/market-sync/internal/metrics"
	"github.com/paisa-labs/market-sync/internal/notify"
	"github.com/paisa-labs/market-sync/internal/scrape"
	"github.com/paisa-labs/market-sync/internal/snapshot"
	"github.com/paisa-labs/market-sync/internal/store"
	syncsvc "github.com/paisa-labs/market-sync/internal/sync"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	// --- Initialize cache ---
	var c cache.Cache
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
		c = cache.NewRedisCache(rdb)
		slog.Info("Redis cache enabled")
	} else {
		slog.Warn("REDIS_URL not set, using in-memory cache")
		c = cache.NewMemoryCache()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Pipeline ---
	fetcher := scrape.NewFetcher(
		scrape.NewClient(cfg.Pipeline.FetchTimeout),
		scrape.HTMLExtractor{},
		cfg.Sources,
	)
	snap := snapshot.NewService(c, fetcher, cfg.Pipeline.SnapshotTTL, cfg.Pipeline.LastGoodRetention)

	notifier := notify.NewMulti(
		notify.NewInApp(st),
		notify.NewWebhook(cfg.Server.WebhookURL, cfg.Pipeline.FetchTimeout),
	)

	// --- WebSocket hub ---
	hub := syncsvc.NewHub()
	go hub.Run()

	// --- Sync service ---
	svc := syncsvc.NewService(st, fetcher, snap, c, notifier, hub,
		cfg.Pipeline.DefaultMinUnits, cfg.Pipeline.AlertWindow, cfg.Server.AdminToken)

	// --- Scheduled sync ---
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Pipeline.SyncSchedule, func() {
		metrics.SyncRuns.WithLabelValues("scheduled").Inc()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		svc.Sync(ctx, true)
	}); err != nil {
		slog.Error("invalid sync schedule", "spec", cfg.Pipeline.SyncSchedule, "err", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// --- Inline trigger ---
	trigger := syncsvc.NewTrigger(svc, cfg.Pipeline.MarketInterval, cfg.Pipeline.SuggestInterval)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(metrics.Middleware)
	r.Use(trigger.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"market-sync"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for live price and sync events.
		r.Get("/ws", hub.HandleWS)

		// Read paths.
		r.Get("/snapshot", svc.GetSnapshot)
		r.Get("/issues", svc.ListIssueRows)

		// Write paths.
		r.Post("/snapshot/refresh", svc.RefreshSnapshot)
		r.Post("/sync", svc.TriggerSync)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("market-sync listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down market-sync...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("market-sync stopped")
}
