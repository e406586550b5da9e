// Package main provides the main entry point for the Invitewave invitation dispatch service
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/invitewave/invitewave/app/handlers"
	"github.com/invitewave/invitewave/app/router"
	"github.com/invitewave/invitewave/app/services"
	"github.com/invitewave/invitewave/app/worker"
	businessflow "github.com/invitewave/invitewave/business_flow"
	"github.com/invitewave/invitewave/config"
	"github.com/invitewave/invitewave/repository"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/invitewave/invitewave/models"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Invitewave application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Site{},
		&models.Campaign{},
		&models.CampaignContent{},
		&models.Recipient{},
		&models.DispatchTask{},
		&models.CampaignStats{},
		&models.ActivityLog{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// startMetricsServer serves Prometheus metrics on a dedicated listener so the
// scrape endpoint never competes with API traffic. The returned stop function
// shuts the listener down.
func startMetricsServer(cfg config.MetricsConfig) func() {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	go func() {
		log.Printf("Metrics server starting on %s%s", srv.Addr, cfg.Path)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down metrics server: %v", err)
		}
	}
}

// initializeSMSService creates the SMS sender based on configuration
func initializeSMSService(cfg *config.ProductionConfig) services.SMSService {
	if cfg.SMS.ProviderDomain == "mock" {
		return services.NewMockSMSService()
	}
	return services.NewSMSService(&cfg.SMS)
}

// initializeEmailService creates the email sender based on configuration
func initializeEmailService(cfg *config.ProductionConfig) services.EmailService {
	if cfg.Email.APIKey == "" {
		return services.NewMockEmailService()
	}
	return services.NewEmailService(&cfg.Email)
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Seed the site catalog when empty so the API is usable out of the box
	if err := ensureSiteCatalog(db); err != nil {
		return nil, err
	}

	// Initialize repositories
	siteRepo := repository.NewSiteRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	contentRepo := repository.NewCampaignContentRepository(db)
	recipientRepo := repository.NewRecipientRepository(db)
	taskRepo := repository.NewDispatchTaskRepository(db)
	statsRepo := repository.NewCampaignStatsRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	// Initialize delivery services
	smsService := initializeSMSService(cfg)
	emailService := initializeEmailService(cfg)

	// Initialize flows
	campaignFlow := businessflow.NewCampaignFlow(
		campaignRepo,
		contentRepo,
		siteRepo,
		recipientRepo,
		activityRepo,
		db,
	)

	recipientFlow := businessflow.NewRecipientFlow(
		campaignRepo,
		siteRepo,
		recipientRepo,
		activityRepo,
		cfg.SMS,
		db,
	)

	importFlow := businessflow.NewImportFlow(
		campaignRepo,
		siteRepo,
		recipientRepo,
		activityRepo,
		rc,
		cfg.Import,
		cfg.SMS,
		db,
	)

	dispatchFlow := businessflow.NewDispatchFlow(
		campaignFlow,
		campaignRepo,
		siteRepo,
		recipientRepo,
		taskRepo,
		activityRepo,
		cfg.Dispatch,
		db,
	)

	analyticsFlow := businessflow.NewAnalyticsFlow(
		campaignRepo,
		siteRepo,
		recipientRepo,
		statsRepo,
		db,
	)

	activityFlow := businessflow.NewActivityFlow(
		campaignRepo,
		activityRepo,
		cfg.Retention,
		db,
	)

	// Initialize handlers
	campaignHandler := handlers.NewCampaignHandler(campaignFlow)
	recipientHandler := handlers.NewRecipientHandler(recipientFlow)
	importHandler := handlers.NewImportHandler(importFlow)
	dispatchHandler := handlers.NewDispatchHandler(dispatchFlow)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsFlow)
	activityHandler := handlers.NewActivityHandler(activityFlow)

	// Initialize router
	appRouter := router.NewFiberRouter(
		campaignHandler,
		recipientHandler,
		importHandler,
		dispatchHandler,
		analyticsHandler,
		activityHandler,
		cfg.Security,
		cfg.Metrics,
	)

	// Start the dispatch worker
	dispatchWorker := worker.NewDispatchWorker(
		taskRepo,
		recipientRepo,
		campaignRepo,
		activityRepo,
		analyticsFlow,
		activityFlow,
		smsService,
		emailService,
		db,
		cfg.Dispatch,
		cfg.Logging,
	)
	stopWorker := dispatchWorker.Start(context.Background())
	stopFuncs = append(stopFuncs, stopWorker)

	// Expose Prometheus metrics on a side listener
	if cfg.Metrics.Enabled {
		stopMetrics := startMetricsServer(cfg.Metrics)
		stopFuncs = append(stopFuncs, stopMetrics)
	}

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}

// ensureSiteCatalog seeds a minimal site catalog on first boot. Operators add
// further sites directly; the API only reads the catalog.
func ensureSiteCatalog(db *gorm.DB) error {
	siteRepo := repository.NewSiteRepository(db)

	sites, err := siteRepo.ListAll(context.Background())
	if err != nil {
		return err
	}
	if len(sites) > 0 {
		return nil
	}

	return siteRepo.Save(context.Background(), &models.Site{
		Handle:    "main",
		Name:      "Main Site",
		Language:  "en",
		IsPrimary: true,
	})
}
