package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcustomer "github.com/crm/backend/internal/application/customer"
	appemployee "github.com/crm/backend/internal/application/employee"
	appevent "github.com/crm/backend/internal/application/event"
	appvehicle "github.com/crm/backend/internal/application/vehicle"
	domaincustomer "github.com/crm/backend/internal/domain/customer"
	"github.com/crm/backend/internal/infrastructure/auth"
	"github.com/crm/backend/internal/infrastructure/cache"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/infrastructure/event"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/persistence"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"github.com/crm/backend/internal/interfaces/http/handler"
	"github.com/crm/backend/internal/interfaces/http/middleware"
	"github.com/crm/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/crm/backend/docs"
)

//	@title			CRM Backend API
//	@version		1.0
//	@description	Customer back-office API with deduplication and merge support

//	@contact.name	API Support
//	@contact.url	https://github.com/crm/backend

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

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

	// Bridge application logs to the OTLP collector alongside the configured
	// output when telemetry is on
	var logsShutdown func(context.Context) error
	if cfg.Telemetry.Enabled {
		logsProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
			Enabled:           true,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Warn("Failed to initialize OTEL logs provider", zap.Error(err))
		} else {
			logsShutdown = logsProvider.Shutdown
			bridgeLevel, levelErr := zapcore.ParseLevel(cfg.Log.Level)
			if levelErr != nil {
				bridgeLevel = zapcore.InfoLevel
			}
			otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
				ServiceName:    cfg.Telemetry.ServiceName,
				LoggerProvider: logsProvider,
				Level:          bridgeLevel,
			})
			log = telemetry.NewBridgedLogger(log.Core(), otelCore,
				zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
		}
	}

	log.Info("Starting CRM Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Continuous profiling via Pyroscope
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:             cfg.Profiling.Enabled,
		ServerAddress:       cfg.Profiling.ServerAddress,
		ApplicationName:     cfg.Profiling.ApplicationName,
		BasicAuthUser:       cfg.Profiling.BasicAuthUser,
		BasicAuthPassword:   cfg.Profiling.BasicAuthPassword,
		ProfileCPU:          true,
		ProfileAllocObjects: true,
		ProfileAllocSpace:   true,
		ProfileInuseObjects: true,
		ProfileInuseSpace:   true,
		ProfileGoroutines:   true,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

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

	// Initialize event serializers and register all event types. The write
	// side marshals whatever the domain produces; the read side is the
	// version-aware codec so outbox entries written before a schema bump
	// still deserialize.
	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)
	versionedSerializer := event.NewVersionedSerializer(log)
	if err := event.RegisterVersionedEvents(versionedSerializer); err != nil {
		log.Fatal("Failed to register versioned events", zap.Error(err))
	}

	// Outbox publisher stores domain events in the same transaction as
	// the aggregate that produced them
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Initialize repositories
	customerRepo := persistence.NewGormCustomerRepository(db.DB, outboxPublisher)
	employeeRepo := persistence.NewGormEmployeeRepository(db.DB)
	vehicleRepo := persistence.NewGormVehicleRepository(db.DB)
	idempotencyRepo := persistence.NewGormIdempotencyRepository(db.DB)
	transactor := persistence.NewGormTransactor(db.DB)

	// Domain services
	dedupService := domaincustomer.NewDedupService(customerRepo)
	mergeService := domaincustomer.NewMergeService(customerRepo, idempotencyRepo, transactor).
		WithIdempotencyTTL(cfg.Idempotency.TTL)

	// Projection cache for the customer read model. When Redis is reachable
	// the cache is tiered (in-process L1, Redis L2, Pub/Sub eviction across
	// instances); otherwise a process-local cache is used.
	var projectionCache appcustomer.ProjectionCache
	var redisClient *redis.Client
	l1Cache := cache.NewInMemoryProjectionCache(cache.WithProjectionCacheLogger(log))
	defer l1Cache.Close()
	if cfg.Cache.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pingErr := redisClient.Ping(pingCtx).Err()
		cancel()
		if pingErr != nil {
			log.Warn("Redis unavailable, using in-process projection cache only", zap.Error(pingErr))
			_ = redisClient.Close()
			redisClient = nil
			projectionCache = l1Cache
		} else {
			defer func() {
				_ = redisClient.Close()
			}()
			l2Cache := cache.NewRedisProjectionCache(redisClient, "crm:")
			invalidator := cache.NewRedisProjectionInvalidatorWithClient(redisClient,
				cache.WithInvalidatorLogger(log))
			tiered := cache.NewTieredProjectionCache(l1Cache, l2Cache, invalidator,
				cache.WithTieredLogger(log))
			if err := tiered.StartInvalidationSubscription(context.Background()); err != nil {
				log.Warn("Failed to start cache invalidation subscription", zap.Error(err))
			}
			defer func() {
				if err := invalidator.Close(); err != nil {
					log.Error("Error closing cache invalidator", zap.Error(err))
				}
			}()
			projectionCache = tiered
			log.Info("Tiered projection cache enabled", zap.String("redis", cfg.Redis.Addr()))
		}
	} else {
		projectionCache = l1Cache
	}

	// Application services
	readModel := appcustomer.NewCustomerReadModelService(customerRepo, projectionCache,
		appcustomer.WithProjectionTTL(cfg.Cache.ProjectionTTL))
	customerService := appcustomer.NewCustomerService(customerRepo, dedupService, mergeService, readModel)
	employeeService := appemployee.NewEmployeeService(employeeRepo)
	vehicleService := appvehicle.NewVehicleService(vehicleRepo)

	// JWT service
	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)

	// Event handlers are wrapped for idempotent delivery: the outbox
	// processor retries batches, so a handler can see the same event twice
	idempotencyStoreFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	idempotencyStore, err := idempotencyStoreFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	projectionHandler := appcustomer.NewCustomerProjectionHandler(readModel, log)
	eventBus.Subscribe(event.NewIdempotentHandler(projectionHandler, idempotencyStore, log))
	log.Info("Event handlers registered",
		zap.Strings("projection_eviction_events", projectionHandler.EventTypes()),
	)

	// Start event bus
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Initialize and start the outbox processor for guaranteed event delivery
	if cfg.Event.ProcessorEnabled {
		outboxProcessorConfig := event.DefaultOutboxProcessorConfig()
		outboxProcessorConfig.BatchSize = cfg.Event.BatchSize
		outboxProcessorConfig.PollInterval = cfg.Event.PollInterval
		outboxProcessorConfig.CleanupEnabled = cfg.Event.CleanupEnabled
		outboxProcessorConfig.CleanupRetention = cfg.Event.CleanupRetention
		outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, versionedSerializer, outboxProcessorConfig, log)
		if err := outboxProcessor.Start(context.Background()); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := outboxProcessor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", outboxProcessorConfig.BatchSize),
			zap.Duration("poll_interval", outboxProcessorConfig.PollInterval),
		)
	}

	// Purge expired merge idempotency records in the background
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go runIdempotencyCleanup(cleanupCtx, idempotencyRepo, cfg.Idempotency.CleanupInterval, log)

	// Telemetry (tracing, metrics) when enabled
	var meterShutdown, tracerShutdown func(context.Context) error
	var businessMetrics *telemetry.BusinessMetrics
	var httpMeterProvider *telemetry.MeterProvider
	if cfg.Telemetry.Enabled {
		tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
			Enabled:           cfg.Telemetry.Enabled,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			SamplingRatio:     cfg.Telemetry.SamplingRatio,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Warn("Failed to initialize tracer provider", zap.Error(err))
		} else {
			tracerShutdown = tracerProvider.Shutdown
			if cfg.Profiling.Enabled {
				if err := tracerProvider.EnableSpanProfiles(); err != nil {
					log.Warn("Failed to enable span profiles", zap.Error(err))
				}
			}
			if cfg.Telemetry.DBTraceEnabled {
				dbTracingCfg := telemetry.DefaultDBTracingConfig()
				dbTracingCfg.Enabled = true
				dbTracing := telemetry.NewDBTracingPlugin(dbTracingCfg, log)
				if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
					log.Warn("Failed to enable database tracing", zap.Error(err))
				}
			}
		}

		meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
			Enabled:           cfg.Telemetry.Enabled,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Warn("Failed to initialize meter provider", zap.Error(err))
		} else {
			meterShutdown = meterProvider.Shutdown
			httpMeterProvider = meterProvider

			dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider,
				telemetry.DefaultDBMetricsConfig(), log)
			if err != nil {
				log.Warn("Failed to register database metrics", zap.Error(err))
			} else if dbMetrics != nil {
				dbMetrics.StartPoolStatsCollection(context.Background())
				defer dbMetrics.Stop()
			}

			businessMetrics, err = telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
				Meter:            meterProvider.Meter("crm-backend"),
				Logger:           log,
				CustomerProvider: telemetry.NewGormCustomerMetricsProvider(db.DB),
			})
			if err != nil {
				log.Warn("Failed to initialize business metrics", zap.Error(err))
			} else {
				customerService.UseMetrics(businessMetrics)
				businessMetrics.StartPeriodicCollection(context.Background(),
					telemetry.NewGormTenantProvider(db.DB), 5*time.Minute)
				defer businessMetrics.Stop()
			}
		}
		log.Info("Telemetry enabled",
			zap.String("collector", cfg.Telemetry.CollectorEndpoint),
			zap.String("service", cfg.Telemetry.ServiceName),
		)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if tracerShutdown != nil {
			if err := tracerShutdown(shutdownCtx); err != nil {
				log.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}
		if meterShutdown != nil {
			if err := meterShutdown(shutdownCtx); err != nil {
				log.Error("Error shutting down meter provider", zap.Error(err))
			}
		}
		if logsShutdown != nil {
			if err := logsShutdown(shutdownCtx); err != nil {
				log.Error("Error shutting down logs provider", zap.Error(err))
			}
		}
	}()

	// Initialize HTTP handlers
	customerHandler := handler.NewCustomerHandler(customerService)
	employeeHandler := handler.NewEmployeeHandler(employeeService)
	vehicleHandler := handler.NewVehicleHandler(vehicleService)
	systemHandler := handler.NewSystemHandler()
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

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Request tracing and HTTP metrics when telemetry is on
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		metricsCfg := middleware.DefaultHTTPMetricsConfig()
		metricsCfg.MeterProvider = httpMeterProvider
		metricsCfg.ServiceName = cfg.Telemetry.ServiceName
		engine.Use(middleware.HTTPMetrics(metricsCfg))
	}

	// Tag profiles with route labels when profiling is on
	if cfg.Profiling.Enabled {
		engine.Use(middleware.Profiling())
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, redisClient))

	// Swagger documentation endpoint
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	// Configure skip paths for public endpoints
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	// Revoked tokens are tracked in Redis; without it revocation checks are skipped
	if redisClient != nil {
		jwtConfig.TokenBlacklist = auth.NewRedisTokenBlacklistWithClient(redisClient)
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Customer routes
	customerRoutes := router.NewDomainGroup("customers", "/customers")
	customerRoutes.POST("", customerHandler.Create)
	customerRoutes.GET("", customerHandler.List)
	customerRoutes.GET("/search", customerHandler.Search)
	customerRoutes.GET("/metrics", customerHandler.Metrics)
	customerRoutes.POST("/merge", middleware.RequireScopes(auth.ScopeCustomersMerge), customerHandler.Merge)
	customerRoutes.POST("/merge/preview", middleware.RequireScopes(auth.ScopeCustomersMerge), customerHandler.PreviewMerge)
	customerRoutes.GET("/document/:type/:number", customerHandler.GetByDocument)
	customerRoutes.GET("/:id", customerHandler.GetByID)
	customerRoutes.PUT("/:id", customerHandler.Update)
	customerRoutes.DELETE("/:id", customerHandler.Delete)
	customerRoutes.POST("/:id/restore", customerHandler.Restore)
	customerRoutes.PUT("/:id/status", customerHandler.ChangeStatus)
	customerRoutes.POST("/:id/blacklist", middleware.RequireScopes(auth.ScopeCustomersBlacklist), customerHandler.Blacklist)
	customerRoutes.DELETE("/:id/blacklist", middleware.RequireScopes(auth.ScopeCustomersBlacklist), customerHandler.Unblacklist)
	customerRoutes.GET("/:id/duplicates", customerHandler.FindDuplicates)

	// Employee routes
	employeeRoutes := router.NewDomainGroup("employees", "/employees")
	employeeRoutes.POST("", employeeHandler.Create)
	employeeRoutes.GET("", employeeHandler.List)
	employeeRoutes.GET("/:id", employeeHandler.GetByID)
	employeeRoutes.PUT("/:id", employeeHandler.Update)
	employeeRoutes.DELETE("/:id", employeeHandler.Delete)
	employeeRoutes.POST("/:id/activate", employeeHandler.Activate)
	employeeRoutes.POST("/:id/deactivate", employeeHandler.Deactivate)

	// Vehicle routes
	vehicleRoutes := router.NewDomainGroup("vehicles", "/vehicles")
	vehicleRoutes.POST("", vehicleHandler.Create)
	vehicleRoutes.GET("", vehicleHandler.List)
	vehicleRoutes.GET("/:id", vehicleHandler.GetByID)
	vehicleRoutes.PUT("/:id", vehicleHandler.Update)
	vehicleRoutes.DELETE("/:id", vehicleHandler.Delete)
	vehicleRoutes.POST("/:id/maintenance", vehicleHandler.ScheduleMaintenance)

	// System routes, including outbox monitoring for operators
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	systemRoutes.GET("/outbox/stats", outboxHandler.GetStats)
	systemRoutes.GET("/outbox/dead", outboxHandler.GetDeadLetterEntries)
	systemRoutes.POST("/outbox/dead/retry-all", outboxHandler.RetryAllDeadEntries)
	systemRoutes.GET("/outbox/:id", outboxHandler.GetEntry)
	systemRoutes.POST("/outbox/:id/retry", outboxHandler.RetryDeadEntry)

	r.Register(customerRoutes).
		Register(employeeRoutes).
		Register(vehicleRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

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

// runIdempotencyCleanup periodically deletes expired merge idempotency
// records until ctx is cancelled
func runIdempotencyCleanup(ctx context.Context, repo *persistence.GormIdempotencyRepository, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := repo.DeleteExpired(ctx)
			if err != nil {
				log.Error("Idempotency cleanup failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				log.Info("Expired idempotency records purged", zap.Int64("deleted", deleted))
			}
		}
	}
}

// healthHandler returns a handler for health check endpoints. Redis is
// reported but never fails the check; the API degrades without it.
func healthHandler(db *persistence.Database, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		status := gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		}

		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			status["status"] = "unhealthy"
			status["database"] = "error"
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "ok"

		if redisClient != nil {
			pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(pingCtx).Err(); err != nil {
				status["redis"] = fmt.Sprintf("error: %s", err)
			} else {
				status["redis"] = "ok"
			}
		}

		c.JSON(http.StatusOK, status)
	}
}
