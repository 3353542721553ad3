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

	_ "github.com/tutorease/tutorease-api/api/swagger"
	"github.com/tutorease/tutorease-api/internal/events"
	"github.com/tutorease/tutorease-api/internal/handler"
	"github.com/tutorease/tutorease-api/internal/middleware"
	"github.com/tutorease/tutorease-api/internal/repository"
	"github.com/tutorease/tutorease-api/internal/service"
	"github.com/tutorease/tutorease-api/pkg/cache"
	"github.com/tutorease/tutorease-api/pkg/config"
	"github.com/tutorease/tutorease-api/pkg/database"
	"github.com/tutorease/tutorease-api/pkg/logger"
	corsmiddleware "github.com/tutorease/tutorease-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tutorease/tutorease-api/pkg/middleware/requestid"
)

// @title TutorEase API
// @version 1.0.0
// @description Tutoring marketplace: offerings, bookings, assignments, ratings
// @BasePath /api/v1
// @schemes http

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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	offeringRepo := repository.NewOfferingRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	metricsSvc := service.NewMetricsService()

	publisher := events.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic, logr)
	publisher.Observe(metricsSvc.RecordEventPublished)
	defer publisher.Close() //nolint:errcheck

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.Enabled)
	} else {
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Dashboard.CacheTTL, logr, false)
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	offeringSvc := service.NewOfferingService(offeringRepo, publisher, validate, logr)
	bookingSvc := service.NewBookingService(bookingRepo, offeringRepo, ratingRepo, publisher, validate, logr, service.BookingServiceConfig{
		MaxDurationMonths: cfg.Booking.MaxDurationMonths,
	})
	assignmentSvc := service.NewAssignmentService(assignmentRepo, bookingRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(dashboardRepo, bookingRepo, assignmentRepo, ratingRepo, cacheSvc, logr, service.DashboardServiceConfig{
		CacheTTL: cfg.Dashboard.CacheTTL,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := service.NewSweeperService(bookingSvc, assignmentSvc, metricsSvc, logr, service.SweeperConfig{
		Interval:   cfg.Sweeper.Interval,
		Workers:    cfg.Sweeper.Workers,
		MaxRetries: cfg.Sweeper.MaxRetries,
	})
	if cfg.Sweeper.Enabled {
		sweeper.Start(ctx)
		sweeper.RunOnce()
		defer sweeper.Stop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, handler.RouterDeps{
		Auth:        handler.NewAuthHandler(authSvc),
		Offerings:   handler.NewOfferingHandler(offeringSvc),
		Bookings:    handler.NewBookingHandler(bookingSvc),
		Assignments: handler.NewAssignmentHandler(assignmentSvc),
		Dashboard:   handler.NewDashboardHandler(dashboardSvc),
		AuthService: authSvc,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
