package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	accountapp "github.com/shopdesk/backend/internal/application/account"
	adsapp "github.com/shopdesk/backend/internal/application/ads"
	fulfillmentapp "github.com/shopdesk/backend/internal/application/fulfillment"
	ordersapp "github.com/shopdesk/backend/internal/application/orders"
	"github.com/shopdesk/backend/internal/infrastructure/auth"
	"github.com/shopdesk/backend/internal/infrastructure/cache"
	"github.com/shopdesk/backend/internal/infrastructure/config"
	"github.com/shopdesk/backend/internal/infrastructure/ecommerce"
	"github.com/shopdesk/backend/internal/infrastructure/logger"
	"github.com/shopdesk/backend/internal/infrastructure/migration"
	"github.com/shopdesk/backend/internal/infrastructure/persistence"
	"github.com/shopdesk/backend/internal/infrastructure/printing"
	"github.com/shopdesk/backend/internal/infrastructure/scheduler"
	"github.com/shopdesk/backend/internal/infrastructure/storage"
	"github.com/shopdesk/backend/internal/infrastructure/telemetry"
	"github.com/shopdesk/backend/internal/interfaces/http/handler"
	"github.com/shopdesk/backend/internal/interfaces/http/middleware"
	"github.com/shopdesk/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

const serviceVersion = "1.0.0"

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
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ShopDesk backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("tiktok_sandbox", cfg.TikTok.Sandbox),
	)

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    serviceVersion,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    serviceVersion,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	marketplaceMetrics, err := telemetry.NewMarketplaceMetrics(meterProvider.Meter("shopdesk.marketplace"), log)
	if err != nil {
		log.Fatal("Failed to create marketplace metrics", zap.Error(err))
	}

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBName:          cfg.Database.DBName,
		}, log); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	// Apply pending schema migrations
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get sql.DB", zap.Error(err))
	}
	migrator, err := migration.New(sqlDB, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Up(); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}

	// Repositories
	sealer, err := persistence.NewSecretSealer(cfg.Crypto.CredentialKey)
	if err != nil {
		log.Fatal("Failed to initialize credential sealer", zap.Error(err))
	}
	credentialRepo := persistence.NewGormCredentialRepository(db.DB, sealer)
	orderRecordRepo := persistence.NewGormOrderRecordRepository(db.DB)

	// Shipment guard: Redis when reachable, in-memory otherwise
	guard, err := cache.NewShipmentGuardFactory(cfg.Redis, cache.WithLogger(log)).Create(ctx)
	if err != nil {
		log.Fatal("Failed to create shipment guard", zap.Error(err))
	}
	defer func() {
		if err := guard.Close(); err != nil {
			log.Error("Error closing shipment guard", zap.Error(err))
		}
	}()

	// Marketplace clients
	tiktokConfig := &ecommerce.TikTokConfig{
		APIBaseURL:     cfg.TikTok.APIBaseURL,
		AuthBaseURL:    cfg.TikTok.AuthBaseURL,
		IsSandbox:      cfg.TikTok.Sandbox,
		TimeoutSeconds: cfg.TikTok.TimeoutSeconds,
		ClockSkew:      cfg.TikTok.ClockSkew,
	}
	dispatcher, err := ecommerce.NewDispatcher(tiktokConfig,
		ecommerce.WithDispatcherLogger(log),
		ecommerce.WithObserver(marketplaceMetrics),
	)
	if err != nil {
		log.Fatal("Failed to create marketplace dispatcher", zap.Error(err))
	}
	tiktokClient := ecommerce.NewClient(dispatcher)

	adsClient, err := ecommerce.NewAdsClient(&ecommerce.AdsConfig{
		BaseURL:        cfg.Ads.BaseURL,
		TimeoutSeconds: cfg.Ads.TimeoutSeconds,
	}, log, nil)
	if err != nil {
		log.Fatal("Failed to create ads client", zap.Error(err))
	}

	// Waybill printing: merging and archiving are optional
	waybillOpts := []fulfillmentapp.WaybillOption{fulfillmentapp.WithPrintRecorder(marketplaceMetrics)}
	if cfg.Merge.ServiceURL != "" {
		merger, err := printing.NewHTTPMerger(cfg.Merge, printing.WithMergerLogger(log))
		if err != nil {
			log.Fatal("Failed to create document merger", zap.Error(err))
		}
		waybillOpts = append(waybillOpts, fulfillmentapp.WithMerger(merger))
		log.Info("Waybill merging enabled")
	}
	if cfg.Storage.Enabled {
		archive, err := storage.NewS3LabelArchive(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignTTL),
		)
		if err != nil {
			log.Fatal("Failed to create label archive", zap.Error(err))
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare label bucket", zap.Error(err))
		}
		waybillOpts = append(waybillOpts, fulfillmentapp.WithArchive(archive))
		log.Info("Waybill archive enabled", zap.String("bucket", archive.Bucket()))
	}

	// Application services
	accountService := accountapp.NewService(credentialRepo, tiktokClient, log)
	orderService := ordersapp.NewService(accountService, tiktokClient, orderRecordRepo, log)
	bulkShipService := fulfillmentapp.NewBulkShipService(accountService, tiktokClient, orderRecordRepo, guard, log,
		fulfillmentapp.WithShipInterval(cfg.TikTok.ShipInterval),
		fulfillmentapp.WithRecorder(marketplaceMetrics),
	)
	waybillService := fulfillmentapp.NewWaybillService(accountService, tiktokClient, log, waybillOpts...)
	packageService := fulfillmentapp.NewPackageService(accountService, tiktokClient)
	adsService := adsapp.NewService(credentialRepo, adsClient, orderRecordRepo, log)

	// Background renewal of expiring access tokens
	var tokenRefresher *scheduler.TokenRefreshScheduler
	if cfg.TikTok.TokenRefreshInterval > 0 {
		refreshConfig := scheduler.DefaultTokenRefreshConfig()
		refreshConfig.Interval = cfg.TikTok.TokenRefreshInterval
		refreshConfig.Window = cfg.TikTok.TokenRefreshWindow
		tokenRefresher, err = scheduler.NewTokenRefreshScheduler(refreshConfig, credentialRepo, accountService, log)
		if err != nil {
			log.Fatal("Failed to create token refresh scheduler", zap.Error(err))
		}
		if err := tokenRefresher.Start(ctx); err != nil {
			log.Fatal("Failed to start token refresh scheduler", zap.Error(err))
		}
	}

	// HTTP handlers
	accountHandler := handler.NewAccountHandler(accountService)
	orderHandler := handler.NewOrderHandler(orderService)
	fulfillmentHandler := handler.NewFulfillmentHandler(bulkShipService, waybillService, packageService)
	adsHandler := handler.NewAdsHandler(adsService)
	proxyHandler := handler.NewProxyHandler(dispatcher)

	healthHandler := handler.NewHealthHandler(db)
	if pinger, ok := guard.(interface{ Ping(context.Context) error }); ok {
		healthHandler.WithCheck("redis", handler.ContextPinger(2*time.Second, pinger.Ping))
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Global middleware, in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Tracing - Server span per request
	// 3. Metrics - Request count and latency per route
	// 4. Recovery - Catch panics
	// 5. Logger - Log requests
	// 6. Security - Add security headers
	// 7. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Enabled:       cfg.Telemetry.MetricsEnabled,
		Logger:        log,
	}))
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Dashboard API: configured origins, bearer token, per-user rate limit
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	apiMiddleware := []gin.HandlerFunc{
		middleware.CORSWithConfig(corsConfig),
		middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			Validator: auth.NewJWTService(cfg.JWT),
			Logger:    log,
		}),
		middleware.TracingAttributeInjector(),
	}
	var proxyMiddleware []gin.HandlerFunc
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		stopSweep := make(chan struct{})
		defer close(stopSweep)
		go rateLimiter.Run(stopSweep)

		apiMiddleware = append(apiMiddleware, middleware.RateLimit(rateLimiter))
		proxyMiddleware = append(proxyMiddleware, middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", middleware.CORSWithConfig(corsConfig), healthHandler.Check)

	// Signing proxy for browser clients
	router.RegisterProxy(engine, proxyHandler, proxyMiddleware...)

	r := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithMiddleware(apiMiddleware...),
		router.WithPreflight(),
	)
	r.Register(router.AccountRoutes(accountHandler)).
		Register(router.OrderRoutes(orderHandler)).
		Register(router.FulfillmentRoutes(fulfillmentHandler)).
		Register(router.AdsRoutes(adsHandler))
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if tokenRefresher != nil {
		if err := tokenRefresher.Stop(shutdownCtx); err != nil {
			log.Error("Token refresh scheduler did not stop cleanly", zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}
