// Package main is the entrypoint for the Personify API server.
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

	"github.com/personify-ai/personify/internal/ai"
	"github.com/personify-ai/personify/internal/analysis"
	"github.com/personify-ai/personify/internal/api"
	"github.com/personify-ai/personify/internal/api/handler"
	mw "github.com/personify-ai/personify/internal/api/middleware"
	"github.com/personify-ai/personify/internal/api/response"
	"github.com/personify-ai/personify/internal/auth"
	"github.com/personify-ai/personify/internal/cache"
	"github.com/personify-ai/personify/internal/config"
	"github.com/personify-ai/personify/internal/dispatch"
	"github.com/personify-ai/personify/internal/store"
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
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "ai_provider", cfg.AI.Provider, "env", cfg.Server.Env)

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

	// 4. Create Redis key-value backend
	kv, err := cache.NewRedisKV(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis client: %w", err)
	}
	defer kv.Close()

	if err := kv.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create text generator
	generator, err := ai.NewGenerator(cfg.AI)
	if err != nil {
		return fmt.Errorf("create text generator: %w", err)
	}
	slog.Info("text generator initialized", "provider", generator.Name())

	// 6. Create stores and services
	pgStore := store.NewPostgresStore(pool)
	stateStore := analysis.NewStateStore(kv)
	publisher := dispatch.NewHTTPClient(cfg.Dispatch.BaseURL, cfg.Dispatch.Token, cfg.Dispatch.Timeout)
	tokens := auth.NewTokenManager(cfg.Auth)

	webhookURL := cfg.Server.BaseURL + "/webhooks/dispatch/analyze"
	analysisService := analysis.NewService(
		stateStore,
		publisher,
		generator,
		webhookURL,
		cfg.Dispatch.Delay,
		cfg.AI.InferenceTimeout,
		!cfg.IsProduction(),
	)

	// 7. Build router with dependencies
	deps := api.Dependencies{
		Auth:          mw.NewAuth(tokens),
		RateLimit:     mw.NewRateLimit(kv, 60),
		WebhookVerify: mw.NewWebhookVerify(dispatch.NewVerifier(cfg.Dispatch.SigningKey, cfg.Dispatch.NextSigningKey)),

		HealthHandler: healthHandler(pgStore, kv),

		RegisterHandler: handler.NewRegisterHandler(pgStore, tokens),
		LoginHandler:    handler.NewLoginHandler(pgStore, tokens),
		RefreshHandler:  handler.NewRefreshHandler(tokens),

		CurrentUserHandler:    handler.NewCurrentUserHandler(pgStore),
		CreateAnalysisHandler: handler.NewCreateAnalysisHandler(analysisService),
		GetAnalysisHandler:    handler.NewGetAnalysisHandler(analysisService),

		AnalyzeWebhookHandler: handler.NewAnalyzeWebhookHandler(analysisService),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
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
func healthHandler(s store.Store, kv cache.KV) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := kv.Ping(r.Context()); err != nil {
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
