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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/bloodbank-api/api/swagger"
	"github.com/noah-isme/bloodbank-api/internal/handler"
	"github.com/noah-isme/bloodbank-api/internal/middleware"
	"github.com/noah-isme/bloodbank-api/internal/repository"
	"github.com/noah-isme/bloodbank-api/internal/service"
	"github.com/noah-isme/bloodbank-api/pkg/cache"
	"github.com/noah-isme/bloodbank-api/pkg/config"
	"github.com/noah-isme/bloodbank-api/pkg/database"
	"github.com/noah-isme/bloodbank-api/pkg/events"
	"github.com/noah-isme/bloodbank-api/pkg/jobs"
	"github.com/noah-isme/bloodbank-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/bloodbank-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/bloodbank-api/pkg/middleware/requestid"
)

// @title Blood Bank API
// @version 1.0.0
// @description Donation lifecycle, inventory and allocation service
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Dashboard.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
			redisClient = nil
		}
	}

	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled && redisClient != nil)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		kafkaPublisher := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Events.Brokers, cfg.Events.Topic))
		async := events.NewAsyncPublisher(kafkaPublisher, jobs.QueueConfig{
			Workers:    cfg.Events.Workers,
			MaxRetries: cfg.Events.MaxRetries,
			Logger:     logr,
		})
		async.Start(ctx)
		defer func() {
			async.Stop()
			if err := kafkaPublisher.Close(); err != nil {
				logr.Warn("close kafka writer", zap.Error(err))
			}
		}()
		publisher = async
	}

	tx := database.NewTransactor(db, cfg.Database.TxTimeout)
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	centerRepo := repository.NewCenterRepository(db)
	donorRepo := repository.NewDonorRepository(db)
	donationRepo := repository.NewDonationRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	issueRepo := repository.NewIssueRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	shelfLife := service.ShelfLife(cfg.Inventory.ShelfLifeDays)
	policy := service.NewEligibilityPolicy(cfg.Eligibility.CooldownDays)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	donationSvc := service.NewDonationService(service.DonationServiceParams{
		Tx:          tx,
		Donors:      donorRepo,
		Donations:   donationRepo,
		Units:       inventoryRepo,
		Centers:     centerRepo,
		Audit:       auditRepo,
		Eligibility: policy,
		ShelfLife:   shelfLife,
		Publisher:   publisher,
		Cache:       cacheSvc,
		Metrics:     metricsSvc,
		Validator:   validate,
		Logger:      logr,
	})
	allocationSvc := service.NewAllocationService(service.AllocationServiceParams{
		Tx:        tx,
		Requests:  requestRepo,
		Units:     inventoryRepo,
		Issues:    issueRepo,
		Audit:     auditRepo,
		ShelfLife: shelfLife,
		Publisher: publisher,
		Cache:     cacheSvc,
		Metrics:   metricsSvc,
		Validator: validate,
		Logger:    logr,
	})
	inventorySvc := service.NewInventoryService(service.InventoryServiceParams{
		Tx:        tx,
		Units:     inventoryRepo,
		Audit:     auditRepo,
		Publisher: publisher,
		Cache:     cacheSvc,
		Metrics:   metricsSvc,
		Logger:    logr,
	})
	donorSvc := service.NewDonorService(tx, donorRepo, donationRepo, auditRepo, policy, cacheSvc, logr)
	centerSvc := service.NewCenterService(tx, centerRepo, donationRepo, auditRepo, validate, logr)
	auditSvc := service.NewAuditService(auditRepo, cfg.Audit.RecentLimit)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Stock:     inventoryRepo,
		Requests:  requestRepo,
		Donations: donationRepo,
		Cache:     cacheSvc,
		Logger:    logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:           cfg.Dashboard.CacheTTL,
			ExpiringSoonWindow: cfg.Inventory.ExpiringSoonWindow,
		},
	})
	exportSvc := service.NewExportService(inventorySvc, auditSvc, logr)

	sweeper := service.NewExpirySweeper(inventorySvc, cfg.Inventory.SweepInterval, logr)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(authSvc)
	donationHandler := handler.NewDonationHandler(donationSvc)
	requestHandler := handler.NewRequestHandler(allocationSvc)
	donorHandler := handler.NewDonorHandler(donorSvc)
	inventoryHandler := handler.NewInventoryHandler(inventorySvc)
	centerHandler := handler.NewCenterHandler(centerSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	exportHandler := handler.NewExportHandler(exportSvc)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/donations/schedule", donationHandler.Schedule)
	api.GET("/centers", middleware.OptionalJWT(authSvc), centerHandler.List)
	api.GET("/inventory", inventoryHandler.ListAvailable)
	api.POST("/requests", requestHandler.Submit)

	staff := api.Group("")
	staff.Use(middleware.JWT(authSvc), middleware.StaffOnly())
	staff.GET("/auth/me", authHandler.Me)
	staff.GET("/metrics/summary", metricsHandler.Summary)

	staff.GET("/donations", donationHandler.List)
	staff.GET("/donations/:id", donationHandler.Get)
	staff.POST("/donations/:id/complete", donationHandler.Complete)
	staff.POST("/donations/:id/cancel", donationHandler.Cancel)

	staff.GET("/donors", donorHandler.List)
	staff.GET("/donors/:id", donorHandler.Get)
	staff.GET("/donors/:id/eligibility", donorHandler.Eligibility)

	staff.GET("/requests", requestHandler.List)
	staff.GET("/requests/:id", requestHandler.Get)
	staff.POST("/requests/:id/fulfill", requestHandler.Fulfill)
	staff.POST("/requests/:id/cancel", requestHandler.Cancel)

	staff.GET("/inventory/:id", inventoryHandler.Get)
	staff.GET("/audit", auditHandler.Recent)
	staff.GET("/dashboard", dashboardHandler.Inventory)
	staff.GET("/exports/inventory", exportHandler.Inventory)
	staff.GET("/exports/audit", exportHandler.Audit)

	admin := staff.Group("")
	admin.Use(middleware.AdminOnly())
	admin.DELETE("/donations/:id", donationHandler.Delete)
	admin.DELETE("/donors/:id", donorHandler.Delete)
	admin.POST("/inventory/sweep", inventoryHandler.Sweep)
	admin.POST("/centers", centerHandler.Create)
	admin.DELETE("/centers/:id", centerHandler.Delete)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
