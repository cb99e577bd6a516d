package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/mindbridge/consult-api/api/swagger"
	"github.com/mindbridge/consult-api/internal/handler"
	"github.com/mindbridge/consult-api/internal/middleware"
	"github.com/mindbridge/consult-api/internal/models"
	"github.com/mindbridge/consult-api/internal/repository"
	"github.com/mindbridge/consult-api/internal/service"
	"github.com/mindbridge/consult-api/pkg/cache"
	"github.com/mindbridge/consult-api/pkg/config"
	"github.com/mindbridge/consult-api/pkg/database"
	"github.com/mindbridge/consult-api/pkg/logger"
	corsmiddleware "github.com/mindbridge/consult-api/pkg/middleware/cors"
	reqidmiddleware "github.com/mindbridge/consult-api/pkg/middleware/requestid"
)

// @title Consult API
// @version 1.0.0
// @description Consultation booking backend
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := database.Migrate(ctx, db, cfg.Database.MigrationsDir); err != nil {
			cancel()
			logr.Sugar().Fatalw("failed to run migrations", "error", err)
		}
		cancel()
	}

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			repo := repository.NewCacheRepository(redisClient, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled && cacheRepo != nil)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	consultantRepo := repository.NewConsultantRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	typeRepo := repository.NewConsultationTypeRepository(db)
	consultationRepo := repository.NewConsultationRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.Booking.SingleSession,
	})
	notificationSvc := service.NewNotificationService(notificationRepo, validate, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	consultantSvc := service.NewConsultantService(consultantRepo, availabilityRepo, typeRepo, cacheSvc, logr, cfg.Booking.MaxAvailabilityDays)
	bookingSvc := service.NewBookingService(consultationRepo, availabilityRepo, consultantRepo, typeRepo, notificationSvc, cacheSvc, metricsSvc, validate, logr, cfg.Booking.NotifyOnBooking)
	reviewSvc := service.NewReviewService(reviewRepo, consultationRepo, cacheSvc, validate, logr)
	favoriteSvc := service.NewFavoriteService(favoriteRepo, consultantRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc, notificationSvc)
	consultantHandler := handler.NewConsultantHandler(consultantSvc, reviewSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc, metricsSvc)
	reviewHandler := handler.NewReviewHandler(reviewSvc)
	favoriteHandler := handler.NewFavoriteHandler(favoriteSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		payload := gin.H{"status": "ready"}
		if version, err := database.MigrationVersion(c.Request.Context(), db); err == nil {
			payload["migration_version"] = version
		}
		c.JSON(http.StatusOK, payload)
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	requireAuth := middleware.JWT(authSvc)

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", requireAuth, authHandler.Logout)
			auth.POST("/logout-all", requireAuth, authHandler.LogoutAll)
			auth.POST("/change-password", requireAuth, authHandler.ChangePassword)
		}

		users := api.Group("/users")
		{
			users.POST("/reactivate", userHandler.Reactivate)

			me := users.Group("/me", requireAuth)
			{
				me.GET("", userHandler.Profile)
				me.PATCH("", userHandler.UpdateProfile)
				me.DELETE("", userHandler.Delete)
				me.POST("/deactivate", userHandler.Deactivate)
				me.GET("/notifications", userHandler.Notifications)
				me.POST("/notifications/:id/read", userHandler.MarkNotificationRead)
				me.DELETE("/notifications/:id", userHandler.DeleteNotification)
				me.GET("/notification-preferences", userHandler.NotificationPreferences)
				me.PUT("/notification-preferences", userHandler.UpdateNotificationPreference)
			}
		}

		consultants := api.Group("/consultants")
		{
			consultants.GET("", consultantHandler.List)
			consultants.GET("/:id", consultantHandler.Get)
			consultants.GET("/:id/availability", consultantHandler.Availability)
			consultants.POST("/:id/availability", requireAuth, middleware.RequireRoles(models.RoleConsultant, models.RoleAdmin), consultantHandler.PublishAvailability)
			consultants.GET("/:id/reviews", consultantHandler.Reviews)
		}
		api.GET("/consultation-types", consultantHandler.Types)

		consultations := api.Group("/consultations", requireAuth)
		{
			consultations.POST("", bookingHandler.Book)
			consultations.GET("", bookingHandler.List)
			consultations.POST("/:id/complete", bookingHandler.Complete)
			consultations.POST("/:id/cancel", bookingHandler.Cancel)
		}

		api.GET("/analytics/bookings", requireAuth, middleware.RequireRoles(models.RoleAdmin, models.RoleConsultant), bookingHandler.Analytics)

		api.POST("/reviews", requireAuth, reviewHandler.Create)

		favorites := api.Group("/favorites", requireAuth)
		{
			favorites.GET("", favoriteHandler.List)
			favorites.PUT("/:id", favoriteHandler.Add)
			favorites.DELETE("/:id", favoriteHandler.Remove)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
