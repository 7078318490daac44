package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/rewear-app/rewear-api/api/swagger"
	"github.com/rewear-app/rewear-api/internal/handler"
	"github.com/rewear-app/rewear-api/internal/middleware"
	"github.com/rewear-app/rewear-api/internal/models"
	"github.com/rewear-app/rewear-api/internal/repository"
	"github.com/rewear-app/rewear-api/internal/service"
	"github.com/rewear-app/rewear-api/pkg/cache"
	"github.com/rewear-app/rewear-api/pkg/config"
	"github.com/rewear-app/rewear-api/pkg/database"
	"github.com/rewear-app/rewear-api/pkg/jobs"
	"github.com/rewear-app/rewear-api/pkg/logger"
	corsmiddleware "github.com/rewear-app/rewear-api/pkg/middleware/cors"
	reqidmiddleware "github.com/rewear-app/rewear-api/pkg/middleware/requestid"
)

// @title ReWear API
// @version 1.0.0
// @description Community clothing exchange: list garments, swap them directly or through points.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	itemRepo := repository.NewItemRepository(db)
	swapRepo := repository.NewSwapRepository(db)
	pointsRepo := repository.NewPointsRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsService := service.NewMetricsService()
	notificationService := service.NewNotificationService(notificationRepo, logr, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	})

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})
	userService := service.NewUserService(userRepo, validate, logr)
	itemService := service.NewItemService(itemRepo, pointsRepo, notificationService, cacheRepo, metricsService, validate, logr, service.ItemConfig{
		ListingBonus:     cfg.Points.ListingBonus,
		FeaturedLimit:    cfg.Catalog.FeaturedLimit,
		FeaturedCacheTTL: cfg.Catalog.FeaturedCacheTTL,
	})
	swapService := service.NewSwapService(swapRepo, itemRepo, pointsRepo, notificationService, metricsService, validate, logr, service.SwapConfig{
		CompletionBonus: cfg.Points.CompletionBonus,
	})
	pointsService := service.NewPointsService(pointsRepo, itemRepo, notificationService, cacheRepo, validate, cfg.Exports.StatementTitle, logr)
	dashboardService := service.NewDashboardService(itemRepo, swapRepo, notificationRepo, pointsRepo, logr)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	itemHandler := handler.NewItemHandler(itemService)
	swapHandler := handler.NewSwapHandler(swapService)
	pointsHandler := handler.NewPointsHandler(pointsService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.PUT("/password", middleware.JWT(authService), authHandler.ChangePassword)
			auth.GET("/me", middleware.JWT(authService), userHandler.Me)
		}

		items := api.Group("/items")
		{
			items.GET("", itemHandler.List)
			items.GET("/featured", itemHandler.Featured)
			items.GET("/valuation", itemHandler.Suggest)
			items.GET("/mine", middleware.JWT(authService), itemHandler.MyItems)
			items.GET("/:id", itemHandler.Get)
			items.POST("", middleware.JWT(authService), itemHandler.Create)
			items.PUT("/:id", middleware.JWT(authService), itemHandler.Update)
			items.DELETE("/:id", middleware.JWT(authService), itemHandler.Delist)
		}

		api.GET("/categories", itemHandler.Categories)

		swaps := api.Group("/swaps", middleware.JWT(authService))
		{
			swaps.POST("", swapHandler.Create)
			swaps.GET("", swapHandler.List)
			swaps.GET("/:id", swapHandler.Get)
			swaps.POST("/:id/accept", swapHandler.Accept)
			swaps.POST("/:id/reject", swapHandler.Reject)
			swaps.POST("/:id/cancel", swapHandler.Cancel)
			swaps.POST("/:id/complete", swapHandler.Complete)
		}

		points := api.Group("/points", middleware.JWT(authService))
		{
			points.GET("/balance", pointsHandler.Balance)
			points.GET("/transactions", pointsHandler.Transactions)
			points.GET("/statement", pointsHandler.Export)
			points.POST("/redeem", pointsHandler.Redeem)
			points.GET("/redemptions", pointsHandler.Redemptions)
		}

		notifications := api.Group("/notifications", middleware.JWT(authService))
		{
			notifications.GET("", notificationHandler.List)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
		}

		users := api.Group("/users", middleware.JWT(authService))
		{
			users.GET("/me", userHandler.Me)
			users.PUT("/me", userHandler.UpdateMe)
		}

		api.GET("/dashboard/stats", middleware.JWT(authService), dashboardHandler.Stats)

		admin := api.Group("/admin", middleware.JWT(authService), middleware.RequireRoles(models.RoleModerator, models.RoleAdmin))
		{
			admin.DELETE("/items/:id", itemHandler.Delist)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationService.Start(ctx)
	defer notificationService.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
