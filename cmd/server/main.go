package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pcbuilder/internal/config"
	"pcbuilder/internal/database"
	"pcbuilder/internal/handlers"
	"pcbuilder/internal/jobs"
	"pcbuilder/internal/logging"
	"pcbuilder/internal/middleware"
	"pcbuilder/internal/preflight"
	"pcbuilder/internal/services"
	"pcbuilder/internal/store"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init(cfg.Environment, cfg.LogLevel)

	log.Println("🚀 Starting PC Builder Server...")
	log.Printf("📋 Configuration loaded (Port: %s, Environment: %s)", cfg.Port, cfg.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores := openStores(ctx, cfg)
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if err := stores.Close(closeCtx); err != nil {
			log.Printf("⚠️ Error closing %s store: %v", stores.Driver, err)
		}
	}()

	// Redis is optional: without it every instance runs its own sweep
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		log.Println("🔗 Connecting to Redis...")
		var err error
		redisService, err = services.NewRedisService(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (distributed sweep lock disabled)", err)
		} else {
			defer redisService.Close()
			log.Println("✅ Redis connected successfully")
		}
	} else {
		log.Println("⚠️ REDIS_URL not set - distributed sweep lock disabled")
	}

	// Run preflight checks
	checker := preflight.NewChecker(stores, stores.Driver, cfg)
	results := checker.RunAll(ctx)
	if preflight.HasFailures(results) {
		log.Println("❌ Pre-flight checks failed. Please fix the issues above before starting the server.")
		os.Exit(1)
	}
	log.Println("✅ All pre-flight checks passed")

	clock := clockwork.NewRealClock()

	// Initialize services
	queryCache := services.NewQueryCache(stores.Components, stores.Queries, cfg.QueryCacheTTL, clock)
	services.InitMetrics(queryCache)

	catalogService := services.NewCatalogService(stores.Components, queryCache)
	sessionService := services.NewSessionBuildService(stores.Sessions, cfg.BuildExpiry, clock)
	validationService := services.NewValidationService(stores.Components, sessionService)
	exportService := services.NewExportService(sessionService)
	recommendationService := services.NewRecommendationService(services.RecommendationConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		RPS:     cfg.RecommendRPS,
		Timeout: cfg.RecommendTimeout,
	})
	assembler := services.NewBuildAssembler(recommendationService, stores.Components, sessionService)

	if cfg.CatalogSeedFile != "" {
		result, err := services.SeedCatalog(ctx, stores.Components, cfg.CatalogSeedFile)
		if err != nil {
			log.Printf("⚠️ Catalog seed failed: %v", err)
		} else {
			log.Printf("🌱 Catalog seeded from %s (%d inserted, %d already present)", cfg.CatalogSeedFile, result.Inserted, result.Skipped)
		}
		if err := services.WatchSeedFile(ctx, stores.Components, cfg.CatalogSeedFile); err != nil {
			log.Printf("⚠️ Catalog seed watcher disabled: %v", err)
		}
	}

	// Background jobs
	jobScheduler, err := jobs.NewJobScheduler(clock)
	if err != nil {
		log.Fatalf("❌ Failed to create job scheduler: %v", err)
	}
	var locker jobs.Locker
	if redisService != nil {
		locker = redisService
	}
	sweeper := jobs.NewCleanupSweeper(stores.Sessions, stores.Queries, cfg.QueryCacheRetention, clock, locker)
	if err := jobScheduler.Register(jobs.CleanupJobName, cfg.CleanupSchedule, sweeper); err != nil {
		log.Fatalf("❌ Failed to register cleanup sweeper: %v", err)
	}
	jobScheduler.Start()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "PC Builder v1.0",
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second, // automatic builds wait on several upstream calls
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
		Immutable:    true, // params and queries outlive the request in the memory store and caches
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("pcbuilder")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	allowedOrigins := cfg.AllowedOrigins
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept",
		AllowCredentials: allowedOrigins != "*",
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", allowedOrigins)

	rateLimitConfig := middleware.NewRateLimitConfig(cfg)
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, AutoBuild=%d/min",
		rateLimitConfig.GlobalAPIMax, rateLimitConfig.AutoBuildMax)
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))

	app.Get("/health", handlers.NewHealthHandler(stores, stores.Driver).Handle)

	routes := &handlers.Routes{
		Components: handlers.NewComponentHandler(catalogService, validationService, recommendationService),
		Builds:     handlers.NewSessionBuildHandler(sessionService, validationService, exportService),
		AutoBuild:  handlers.NewAutoBuildHandler(assembler),
		AutoBuildGuards: []fiber.Handler{
			middleware.AutoBuildRateLimiter(rateLimitConfig),
			middleware.NewSessionLimiter(1).Handle,
		},
	}
	routes.Register(app.Group("/api"))

	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("🕐 Background jobs: cleanup sweeper (%s)", cfg.CleanupSchedule)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("🛑 Shutting down server...")

		// Stop the seed watcher and in-flight jobs
		cancel()
		jobScheduler.Stop()

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
	log.Println("👋 Server stopped")
}

// openStores connects MongoDB when configured and falls back to process
// memory otherwise. Production refuses to start without MongoDB.
func openStores(ctx context.Context, cfg *config.Config) *store.Stores {
	if cfg.MongoURI == "" {
		if cfg.IsProduction() {
			log.Fatal("❌ MONGODB_URI is required in production")
		}
		log.Println("⚠️ MONGODB_URI not set - using in-memory store (data is lost on restart)")
		return store.NewMemoryStores()
	}

	log.Println("🔗 Connecting to MongoDB...")
	mongoDB, err := database.NewMongoDB(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	if err := mongoDB.Initialize(ctx); err != nil {
		log.Fatalf("❌ Failed to initialize MongoDB: %v", err)
	}
	log.Printf("✅ MongoDB connected (database: %s)", mongoDB.Name())
	return store.NewMongoStores(mongoDB)
}
