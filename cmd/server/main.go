package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appevent "github.com/marketplace/backend/internal/application/event"
	settlementapp "github.com/marketplace/backend/internal/application/settlement"
	webhookapp "github.com/marketplace/backend/internal/application/webhook"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/infrastructure/cache"
	"github.com/marketplace/backend/internal/infrastructure/config"
	"github.com/marketplace/backend/internal/infrastructure/event"
	"github.com/marketplace/backend/internal/infrastructure/logger"
	"github.com/marketplace/backend/internal/infrastructure/persistence"
	"github.com/marketplace/backend/internal/infrastructure/webhook"
	"github.com/marketplace/backend/internal/interfaces/http/handler"
	"github.com/marketplace/backend/internal/interfaces/http/middleware"
	"github.com/marketplace/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//	@title			Settlement Engine API
//	@version		1.0
//	@description	Marketplace settlement and commission engine

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Name:       "settlement",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting settlement engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap. Calculation queries aggregate whole
	// periods, so the slow query threshold is higher than the default.
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel,
		logger.WithSlowThreshold(500*time.Millisecond),
	)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	batchRepo := persistence.NewGormSettlementBatchRepository(db.DB)
	logRepo := persistence.NewGormSettlementLogRepository(db.DB)
	transactionRepo := persistence.NewGormSettlementTransactionRepository(db.DB)
	policyProvider := persistence.NewGormPolicyProvider(db.DB)
	webhookConfigRepo := persistence.NewGormWebhookConfigRepository(db.DB)
	deliveryRepo := persistence.NewGormWebhookDeliveryRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Initialize event serializer and register all event types
	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)

	// Create outbox publisher for transactional event saving and inject it
	// into the batch repository so state changes and events commit together
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)
	batchRepo.SetOutboxEventSaver(outboxPublisher)

	// Idempotency store: Redis when reachable, in-memory otherwise
	idempotencyFactory := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	idempotencyStore, err := idempotencyFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Initialize application services
	batchService := settlementapp.NewBatchService(batchRepo, logRepo, transactionRepo, policyProvider, log)
	dispatcher := webhookapp.NewDispatcher(webhookConfigRepo, deliveryRepo, idempotencyStore, shared.DefaultIdempotencyConfig(), log)

	// Initialize event bus and subscribe the webhook dispatcher to every
	// settlement event it forwards to partners
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(dispatcher, dispatcher.EventTypes()...)
	log.Info("Event handlers registered",
		zap.Strings("webhook_dispatch_events", dispatcher.EventTypes()),
	)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Start outbox processor for guaranteed event delivery
	if cfg.Event.ProcessorEnabled {
		processorConfig := event.DefaultOutboxProcessorConfig()
		processorConfig.BatchSize = cfg.Event.BatchSize
		processorConfig.PollInterval = cfg.Event.PollInterval
		processorConfig.CleanupEnabled = cfg.Event.CleanupEnabled
		processorConfig.CleanupRetention = cfg.Event.CleanupRetention

		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, processorConfig, log)
		if err := outboxProcessor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorConfig.BatchSize),
			zap.Duration("poll_interval", processorConfig.PollInterval),
		)
	}

	// Start webhook delivery worker
	if cfg.Webhook.WorkerEnabled {
		signer := webhook.NewSigner()
		sender := webhook.NewHTTPSender(cfg.Webhook.RequestTimeout, signer)

		workerConfig := webhook.DefaultWorkerConfig()
		workerConfig.Workers = cfg.Webhook.Workers
		workerConfig.BatchSize = cfg.Webhook.BatchSize
		workerConfig.PollInterval = cfg.Webhook.PollInterval
		workerConfig.CleanupEnabled = cfg.Webhook.CleanupEnabled
		workerConfig.CleanupRetention = cfg.Webhook.CleanupRetention

		deliveryWorker := webhook.NewWorker(deliveryRepo, webhookConfigRepo, sender, workerConfig, log)
		if err := deliveryWorker.Start(context.Background()); err != nil {
			log.Fatal("Failed to start webhook delivery worker", zap.Error(err))
		}
		defer func() {
			if err := deliveryWorker.Stop(context.Background()); err != nil {
				log.Error("Error stopping webhook delivery worker", zap.Error(err))
			}
		}()
	}

	// Initialize HTTP handlers
	settlementHandler := handler.NewSettlementHandler(batchService)
	webhookHandler := handler.NewWebhookHandler(dispatcher)
	outboxHandler := handler.NewOutboxHandler(appevent.NewOutboxService(outboxRepo, log))

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes. API calls carry a deadline so a stuck calculation
	// cannot pin a connection past the write timeout.
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.Timeout(cfg.HTTP.WriteTimeout))
	r.Register(settlementHandler).
		Register(webhookHandler).
		Register(outboxHandler)

	// Register system routes with swagger-documented handlers
	systemHandler := handler.NewSystemHandler()
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	r.Register(systemRoutes)

	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
