package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"animehub/database"
	"animehub/internal/config"
	"animehub/internal/logging"
	"animehub/internal/microservices/http-api/middleware"
	"animehub/internal/microservices/http-api/repository"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("server_exited", "error", err)
		os.Exit(1)
	}
}

// run owns every resource it opens so deferred cleanup happens before main exits.
func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := database.OpenGorm(cfg, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close(db)

	cache := openCache(cfg, logger)
	defer cache.Close()

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	router := newRouter(cfg, db, cache, limiter, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go cleanupLimiter(ctx, limiter)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting_http_server", "addr", srv.Addr, "env", cfg.GoEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("received_shutdown_signal")
	case err := <-errChan:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server_stopped_gracefully")
	return nil
}

// openCache returns nil when REDIS_URL is unset or unreachable; the service
// then reads unread counts straight from postgres.
func openCache(cfg *config.Config, logger *slog.Logger) *repository.UnreadCache {
	if cfg.RedisURL == "" {
		logger.Info("unread_cache_disabled")
		return nil
	}
	cache, err := repository.NewUnreadCache(cfg.RedisURL, cfg.RedisPassword, cfg.CacheExpiry())
	if err != nil {
		logger.Warn("unread_cache_unavailable", "error", err)
		return nil
	}
	logger.Info("unread_cache_connected", "ttl", cfg.CacheExpiry().String())
	return cache
}

func cleanupLimiter(ctx context.Context, limiter *middleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Cleanup(10 * time.Minute)
		}
	}
}
