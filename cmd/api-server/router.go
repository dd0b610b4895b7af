package main

import (
	"context"
	"log/slog"
	"net/http"

	"animehub/database"
	"animehub/internal/config"
	"animehub/internal/metrics"
	"animehub/internal/microservices/http-api/handler"
	"animehub/internal/microservices/http-api/middleware"
	"animehub/internal/microservices/http-api/repository"
	"animehub/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func newRouter(cfg *config.Config, db *gorm.DB, cache *repository.UnreadCache, limiter *middleware.RateLimiter, logger *slog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	animeRepo := repository.NewAnimeRepo(db)
	commentRepo := repository.NewCommentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	settingRepo := repository.NewNotificationSettingRepository(db)
	gamificationRepo := repository.NewGamificationRepository(db)

	// services
	authService := service.NewAuthService(userRepo, refreshTokenRepo, cfg, logger)
	notificationService := service.NewNotificationService(service.NotificationServiceDeps{
		Notifications: notificationRepo,
		Settings:      settingRepo,
		Users:         userRepo,
		Anime:         animeRepo,
		Comments:      commentRepo,
		Gamification:  gamificationRepo,
		Cache:         cache,
		Logger:        logger,
		FanoutWorkers: cfg.FanoutWorkers,
	})
	commentService := service.NewCommentService(commentRepo, animeRepo, notificationService, logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	if cfg.PrometheusEnabled {
		r.Use(metrics.GinMiddleware())
		r.GET("/metrics", metrics.Handler())
	}

	health := handler.NewHealthHandler(map[string]handler.PingFunc{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
		"cache":    cache.Ping,
	}, logger)
	r.GET("/healthz", health.Health)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimit(limiter))
	handler.NewAuthHandler(authService, cfg.AccessTokenTTL).RegisterRoutes(authGroup)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(authService), middleware.RateLimit(limiter))

	handler.NewNotificationHandler(notificationService).RegisterRoutes(protected.Group("/notifications"))
	handler.NewCommentHandler(commentService).RegisterRoutes(protected)

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	handler.NewAdminHandler(notificationService).RegisterRoutes(admin)

	return r
}
