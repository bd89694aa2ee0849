// Package main is the entrypoint for the DealScope orchestration server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dealscope/dealscope/internal/api"
	"github.com/dealscope/dealscope/internal/api/handler"
	mw "github.com/dealscope/dealscope/internal/api/middleware"
	"github.com/dealscope/dealscope/internal/api/response"
	"github.com/dealscope/dealscope/internal/cache"
	"github.com/dealscope/dealscope/internal/config"
	"github.com/dealscope/dealscope/internal/engines"
	"github.com/dealscope/dealscope/internal/llm"
	"github.com/dealscope/dealscope/internal/queue"
	"github.com/dealscope/dealscope/internal/registry"
	"github.com/dealscope/dealscope/internal/scheduler"
	"github.com/dealscope/dealscope/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid values
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "llm_provider", cfg.LLM.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create model providers
	providers, defaultProvider, err := llm.NewProviders(cfg.LLM)
	if err != nil {
		return fmt.Errorf("create model providers: %w", err)
	}
	slog.Info("model providers initialized", "default", defaultProvider)

	// 6. Create store and engine registry
	pgStore := store.NewPostgresStore(pool)
	engineRegistry := registry.New(pgStore)

	// 7. Create LLM gateway
	gateway := llm.NewGateway(pgStore, redisCache, providers, defaultProvider, cfg.LLM)

	// 8. Create queue manager and register engine invokers
	manager := queue.NewManager(pgStore, engineRegistry,
		queue.WithLockTTL(cfg.Queue.LockTTL),
		queue.WithStuckAfter(cfg.Queue.StuckAfter),
		queue.WithCompletedRetention(cfg.Queue.CompletedRetention),
	)
	manager.RegisterInvoker("deal_analysis", engines.NewLLMEngine(gateway, "deal_analysis", "gpt-4o"))
	manager.RegisterInvoker("document_analysis", engines.NewLLMEngine(gateway, "document_analysis", "gpt-4o-mini"))
	manager.RegisterInvoker("deal_scoring", engines.NewLLMEngine(gateway, "deal_scoring", "gpt-4o-mini"))

	// 9. Build router with dependencies
	rateLimit := mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMin)

	deps := api.Dependencies{
		RateLimit: rateLimit,

		HealthHandler:       healthHandler(pgStore, redisCache),
		CreateJobHandler:    handler.NewCreateJobHandler(manager),
		GetJobHandler:       handler.NewGetJobHandler(manager),
		ProcessQueueHandler: handler.NewProcessQueueHandler(manager),
		InvokeHandler:       handler.NewInvokeHandler(gateway),
		CleanupHandler:      handler.NewCleanupHandler(manager),
	}

	router := api.NewRouter(deps)

	// 10. Start background scheduler
	if cfg.Scheduler.Enabled {
		sched := scheduler.New(manager, engineRegistry)
		if err := sched.Start(ctx, cfg.Scheduler.DispatchInterval, cfg.Scheduler.CleanupInterval); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	// 11. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
