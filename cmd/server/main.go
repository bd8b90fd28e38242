package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appevent "github.com/erp/stockledger/internal/application/event"
	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/cache"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/event"
	"github.com/erp/stockledger/internal/infrastructure/export"
	"github.com/erp/stockledger/internal/infrastructure/lock"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/erp/stockledger/internal/infrastructure/storage"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/erp/stockledger/internal/interfaces/http/handler"
	"github.com/erp/stockledger/internal/interfaces/http/middleware"
	"github.com/erp/stockledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
	}

	// Bootstrap logger, replaced once the telemetry log bridge exists
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// Initialize OpenTelemetry tracing, metrics and logs
	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	log, err = logger.New(logCfg,
		logger.WithCore(telemetry.NewZapCore(providers, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))),
		logger.WithFields(zap.String("service", cfg.App.Name), zap.String("env", cfg.App.Env)),
	)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = logger.Sync(log) }()

	log.Info("Starting stock ledger",
		zap.String("version", version),
		zap.String("posting_policy", cfg.Ledger.PostingPolicy),
	)

	// Initialize database with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithParameterizedQueries(!cfg.Telemetry.DBLogFullSQL))
	db, err := persistence.Open(ctx, &cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected",
		zap.String("driver", cfg.Database.Driver),
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
	)

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
		log.Info("Database schema migrated")
	}

	meter := otel.Meter(cfg.Telemetry.ServiceName)
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        dbSystem(cfg.Database.Driver),
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	if err := telemetry.RegisterDBPoolMetrics(db.DB, meter); err != nil {
		log.Warn("Failed to register database pool metrics", zap.Error(err))
	}

	// Redis backs idempotency, the period-close lock and the rate limiter when enabled
	var rdb redis.UniversalClient
	if client, err := cache.Connect(ctx, cfg.Redis); err != nil {
		log.Warn("Redis unavailable, falling back to in-process stores", zap.Error(err))
	} else if client != nil {
		rdb = client
		defer func() {
			if err := client.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	idempotencyStore := cache.NewIdempotencyStore(rdb, log)

	var locker inventoryapp.PeriodLocker
	if rdb != nil {
		locker = lock.NewRedisLocker(rdb, log)
	} else {
		locker = lock.NewLocalLocker()
	}

	// Event infrastructure: the serializer decodes outbox payloads and intake bodies alike
	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)
	outboxPublisher := event.NewOutboxPublisher(eventSerializer, cfg.Event.MaxRetries)
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	eventBus := event.NewInMemoryEventBus(log)

	// Ledger repositories and services
	scope := persistence.NewGormTransactionScope(db.DB, outboxPublisher)
	periodRepo := persistence.NewGormPeriodRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	conversionRepo := persistence.NewGormUnitConversionRepository(db.DB)

	opts := inventoryapp.Options{
		Policy:              inventoryapp.PostingPolicy(cfg.Ledger.PostingPolicy),
		MaxRetries:          cfg.Ledger.MaxRetries,
		AutoStartNextPeriod: cfg.Ledger.AutoStartNextPeriod,
	}

	ledgerMetrics, err := telemetry.NewLedgerMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}

	poster := inventoryapp.NewMovementPoster(scope, catalog.NewUnitConverter(productRepo, conversionRepo), opts, log.Named("poster"))
	poster.SetMetrics(ledgerMetrics)
	closer := inventoryapp.NewPeriodCloser(scope, locker, cfg.Ledger.CloseLockTTL, opts, log.Named("closer"))
	closer.SetMetrics(ledgerMetrics)
	registry := inventoryapp.NewPeriodRegistry(scope, periodRepo, log.Named("periods"))
	queries := inventoryapp.NewQueryService(
		registry,
		persistence.NewGormStockCardRepository(db.DB),
		persistence.NewGormStockCardEntryRepository(db.DB),
		persistence.NewGormCurrentStockRepository(db.DB),
	)

	// Period archives go to S3 when storage is configured; exports work either way
	var archiveStorage inventoryapp.ArchiveStorage = storage.NewMemoryObjectStorage("")
	if cfg.Storage.Enabled {
		s3Storage, err := storage.NewS3ObjectStorage(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration))
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		if err := s3Storage.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to ensure archive bucket", zap.Error(err))
		}
		archiveStorage = s3Storage
		log.Info("Object storage enabled", zap.String("bucket", s3Storage.GetBucket()))
	}
	archiver := inventoryapp.NewStockCardArchiver(queries, export.NewWorkbookRenderer(), archiveStorage,
		cfg.Storage.ArchivePrefix, log.Named("archiver"))

	// Register ledger event handlers, each wrapped with idempotency checking
	ledgerHandlers := []shared.EventHandler{
		inventoryapp.NewProductCreatedHandler(productRepo, conversionRepo, poster, log),
		inventoryapp.NewPurchaseOrderApprovedHandler(poster),
		inventoryapp.NewGoodsReceiptApprovedHandler(poster),
		inventoryapp.NewSaleRecordedHandler(poster),
		inventoryapp.NewStockOutApprovedHandler(poster),
		inventoryapp.NewStockOpnameApprovedHandler(poster),
		inventoryapp.NewPeriodCloseRequestedHandler(closer),
	}
	if cfg.Storage.Enabled {
		ledgerHandlers = append(ledgerHandlers, archiver)
	}
	deliveries := &event.DeliveryCounters{}
	for _, h := range event.WrapHandlersWithIdempotency(ledgerHandlers, idempotencyStore, log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{TTL: cfg.Event.IdempotencyTTL, Enabled: true}),
		event.WithDeliveryCounters(deliveries),
	) {
		eventBus.Subscribe(h)
	}
	log.Info("Event handlers registered",
		zap.Int("handlers", len(ledgerHandlers)),
		zap.Strings("event_types", eventSerializer.RegisteredTypes()),
	)

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// The outbox processor delivers events committed with ledger rows, such as PeriodClosed
	if cfg.Event.ProcessorEnabled {
		processorConfig := event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
		}
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, processorConfig, log.Named("outbox"))
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", cfg.Event.BatchSize),
			zap.Duration("poll_interval", cfg.Event.PollInterval),
		)
	}

	// Initialize HTTP handlers
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version)
	systemHandler.AddCheck("database", db.Ping)
	if rdb != nil {
		systemHandler.AddCheck("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	handlers := router.LedgerHandlers{
		Periods:    handler.NewPeriodHandler(registry, closer, log),
		StockCards: handler.NewStockCardHandler(queries, archiver, cfg.Storage.Enabled, log),
		Events:     handler.NewEventHandler(eventSerializer, eventBus, log),
		System:     systemHandler,
		Deliveries: handler.NewDeliveryHandler(appevent.NewDeliveryService(outboxRepo, log.Named("deliveries"))),
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}

	// Middleware order: request id first so every later layer can log it,
	// tracing before metrics so spans cover the whole request
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	})...)
	engine.Use(httpMetrics)
	engine.Use(logger.GinMiddleware(log, logger.WithSkipPaths("/health", "/api/v1/system/ping")))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	var intake []gin.HandlerFunc
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter, err := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, rdb)
		if err != nil {
			log.Fatal("Failed to create rate limiter", zap.Error(err))
		}
		intake = append(intake, middleware.RateLimit(rateLimiter, log))
		log.Info("Event intake rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
			zap.Bool("shared", rdb != nil),
		)
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	router.RegisterLedgerRoutes(r, handlers, intake...)
	routes := r.Setup()
	log.Info("HTTP routes mounted", zap.String("prefix", r.Prefix()), zap.Int("routes", len(routes)))

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	stats := deliveries.Snapshot()
	log.Info("Server exited gracefully",
		zap.Int64("events_handled", stats.Handled),
		zap.Int64("events_skipped", stats.Skipped),
		zap.Int64("events_failed", stats.Failed),
	)
}

// dbSystem maps the configured driver to the db.system semantic convention value
func dbSystem(driver string) string {
	switch driver {
	case config.DriverMySQL:
		return "mysql"
	case config.DriverSQLite:
		return "sqlite"
	default:
		return "postgresql"
	}
}
