package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/atelier-labs/commission-api/api/swagger"
	"github.com/atelier-labs/commission-api/internal/handler"
	"github.com/atelier-labs/commission-api/internal/middleware"
	"github.com/atelier-labs/commission-api/internal/models"
	"github.com/atelier-labs/commission-api/internal/payment"
	"github.com/atelier-labs/commission-api/internal/repository"
	"github.com/atelier-labs/commission-api/internal/service"
	"github.com/atelier-labs/commission-api/pkg/cache"
	"github.com/atelier-labs/commission-api/pkg/config"
	"github.com/atelier-labs/commission-api/pkg/database"
	"github.com/atelier-labs/commission-api/pkg/jobs"
	"github.com/atelier-labs/commission-api/pkg/logger"
	corsmiddleware "github.com/atelier-labs/commission-api/pkg/middleware/cors"
	reqidmiddleware "github.com/atelier-labs/commission-api/pkg/middleware/requestid"
	"github.com/atelier-labs/commission-api/pkg/storage"
)

// @title Commission API
// @version 1.0.0
// @description Commission lifecycle, queue admission and milestone payments
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
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}

	commissionRepo := repository.NewCommissionRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	milestoneRepo := repository.NewMilestoneRepository(db)
	settingsRepo := repository.NewQueueSettingsRepository(db)
	stateLogRepo := repository.NewStateLogRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, logr, cfg.Queue.CacheEnabled, cfg.Queue.SnapshotTTL)
	notifySvc := service.NewNotificationService(cfg.Notifications.WebhookURL, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)

	historySvc := service.NewHistoryService(stateLogRepo, commissionRepo, logr)
	queueSvc := service.NewQueueService(commissionRepo, settingsRepo, historySvc, cacheSvc, metricsSvc, notifySvc, nil, logr, cfg.Queue.DefaultMaxSlots)
	boardSvc := service.NewBoardService(requestRepo, queueSvc, notifySvc, nil, logr)

	paymentClient := payment.NewClient(cfg.Payments.BaseURL, cfg.Payments.APIKey, cfg.Payments.Timeout)

	// Settlement and cancellation serialize per commission through the
	// same lock set.
	commissionLocks := service.NewKeyedLocks()
	milestoneSvc := service.NewMilestoneService(milestoneRepo, commissionRepo, paymentClient, queueSvc, historySvc, notifySvc, metricsSvc, commissionLocks, nil, logr)
	cancellationSvc := service.NewCancellationService(commissionRepo, milestoneRepo, queueSvc, historySvc, notifySvc, commissionLocks, nil, logr)
	receiptSvc := service.NewReceiptService(queueSvc, milestoneRepo)
	tokenSvc := service.NewTokenService(cfg.JWT)

	assetStore, err := storage.NewAssetStore(cfg.Assets.StorageDir, cfg.Assets.PublicBaseURL)
	if err != nil {
		logr.Sugar().Fatalw("failed to init asset store", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Assets.SignedURLSecret, cfg.Assets.SignedURLTTL)
	uploadSvc := service.NewUploadService(assetStore, signer, cfg.Assets.MaxFileSizeBytes)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifySvc.Start(ctx)
	defer notifySvc.Stop()

	boardHandler := handler.NewBoardHandler(boardSvc)
	commissionHandler := handler.NewCommissionHandler(queueSvc, cancellationSvc, historySvc, receiptSvc)
	milestoneHandler := handler.NewMilestoneHandler(milestoneSvc)
	queueHandler := handler.NewQueueHandler(queueSvc, receiptSvc)
	uploadHandler := handler.NewUploadHandler(uploadSvc)

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	auth := middleware.JWT(tokenSvc)

	api.GET("/requests", boardHandler.List)
	api.GET("/requests/:id", boardHandler.Get)
	api.POST("/requests", auth, middleware.RequireRoles(models.RoleClient), boardHandler.Create)
	api.DELETE("/requests/:id", auth, middleware.RequireRoles(models.RoleClient), boardHandler.Withdraw)
	api.POST("/requests/:id/bids", auth, middleware.RequireRoles(models.RoleArtist), boardHandler.SubmitBid)
	api.POST("/bids/:id/accept", auth, middleware.RequireRoles(models.RoleClient), boardHandler.AcceptBid)

	api.GET("/commissions", commissionHandler.List)
	api.GET("/commissions/:id", commissionHandler.Get)
	api.POST("/commissions/:id/start", auth, middleware.RequireRoles(models.RoleArtist), commissionHandler.Start)
	api.GET("/commissions/:id/can-cancel", commissionHandler.CanCancel)
	api.POST("/commissions/:id/cancel", auth, middleware.RequireRoles(models.RoleClient), commissionHandler.Cancel)
	api.GET("/commissions/:id/history", commissionHandler.History)
	api.GET("/commissions/:id/milestones", milestoneHandler.List)

	api.POST("/milestones/:id/complete", auth, middleware.RequireRoles(models.RoleArtist), milestoneHandler.Complete)
	api.GET("/milestones/:id/checkpoints", milestoneHandler.Checkpoints)
	api.POST("/checkpoints/:id/decide", auth, middleware.RequireRoles(models.RoleClient), milestoneHandler.Decide)

	api.GET("/artists/:id/queue", queueHandler.Snapshot)
	api.GET("/artists/:id/queue-settings", queueHandler.GetSettings)
	api.PUT("/queue-settings", auth, middleware.RequireRoles(models.RoleArtist), queueHandler.UpdateSettings)

	if cfg.Exports.Enabled {
		api.GET("/commissions/:id/receipt", auth, commissionHandler.Receipt)
		api.GET("/queue-roster", auth, middleware.RequireRoles(models.RoleArtist), queueHandler.Roster)
	}

	api.POST("/uploads", auth, uploadHandler.Upload)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
