// Package main provides the main entry point for the RBG event registration service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/festgo/rbg-registration/app/handlers"
	"github.com/festgo/rbg-registration/app/router"
	"github.com/festgo/rbg-registration/app/services"
	businessflow "github.com/festgo/rbg-registration/business_flow"
	"github.com/festgo/rbg-registration/config"
	"github.com/festgo/rbg-registration/repository"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	db        *repository.LazyDB
	stopFuncs []func()
}

func main() {
	log.Println("Starting RBG registration service...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	_, closeLogs := config.InitLogging(cfg.Logging)
	defer func() { _ = closeLogs() }()

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
		if err := app.router.Start(address); err != nil {
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

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.router.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	if err := app.db.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase returns the open function used by the lazy connection; nothing is
// dialed until the first request needs the store.
func initializeDatabase(cfg config.DatabaseConfig, logCfg config.LoggingConfig) repository.OpenFunc {
	return func(ctx context.Context) (*gorm.DB, error) {
		db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
			Logger: config.GormLogger(logCfg, cfg.SlowQueryTime),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
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
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}

		log.Printf("Database connection established with %d max open connections, %d max idle connections",
			cfg.MaxOpenConns, cfg.MaxIdleConns)

		return db, nil
	}
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
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

	log.Printf("Redis connection established (db=%d)", cfg.RedisDB)
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

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	if cfg.Database.AutoMigrate {
		if err := repository.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationsDir); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Println("Database migrations applied")
	}

	// Initialize database lazily
	db := repository.NewLazyDB(initializeDatabase(cfg.Database, cfg.Logging))

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	health := map[string]router.HealthReporter{
		"database": func() string {
			if db.Connected() {
				return "connected"
			}
			return "not_connected"
		},
	}

	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, cfg.Cache.CleanupInterval)
		stopFuncs = append(stopFuncs, cancel, func() { _ = rc.Close() })
		health["cache"] = func() string {
			ctx, c := context.WithTimeout(context.Background(), time.Second)
			defer c()
			if err := rc.Ping(ctx).Err(); err != nil {
				return "unreachable"
			}
			return "connected"
		}
	}

	// Initialize repositories
	submissionRepo := repository.NewSubmissionRepository(db)

	// Initialize services
	smsGateway := services.NewSMSGateway(&cfg.SMS)
	log.Printf("SMS gateway initialized with provider: %s", cfg.SMS.Provider)

	// Initialize flows
	registrationFlow := businessflow.NewRegistrationFlow(
		submissionRepo,
		smsGateway,
		rc,
		cfg.SMS,
		cfg.Registration,
		cfg.Cache,
	)

	// Initialize handlers
	registrationHandler := handlers.NewRegistrationHandler(registrationFlow)

	return &Application{
		router:    router.NewFiberRouter(cfg, registrationHandler, health),
		config:    cfg,
		db:        db,
		stopFuncs: stopFuncs,
	}, nil
}
