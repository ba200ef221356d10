// Package app assembles and runs the service: config, database,
// tracing, the dependency container, workers, and the HTTP server.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aurum-service/aurum_service/internal/api/routes"
	"github.com/aurum-service/aurum_service/internal/infrastructure/config"
	"github.com/aurum-service/aurum_service/internal/infrastructure/database"
	"github.com/aurum-service/aurum_service/internal/infrastructure/di"
	"github.com/aurum-service/aurum_service/internal/workers/settlement"
	"github.com/aurum-service/aurum_service/pkg/logger"
	"github.com/aurum-service/aurum_service/pkg/metrics"
	"github.com/aurum-service/aurum_service/pkg/tracing"
)

// Application is the running service
type Application struct {
	cfg       *config.Config
	log       *logger.Logger
	server    *http.Server
	container *di.Container

	settlementWorker *settlement.Worker
	tracingShutdown  func(context.Context) error
}

func NewApplication() *Application {
	return &Application{}
}

// Initialize loads configuration and builds every component. Nothing
// serves traffic until Start.
func (app *Application) Initialize() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.cfg = cfg

	app.log = logger.New(cfg.LogLevel, cfg.Environment)

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.RunMigrations(cfg.Database.URL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := app.initializeTracing(); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	container, err := di.NewContainer(cfg, db, app.log)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	app.container = container

	if cfg.Settlement.Enabled {
		app.settlementWorker = settlement.NewWorker(
			cfg.Settlement,
			container.WalletService,
			container.KYCService,
			container.TransactionRepo,
			app.log.Zap(),
		)
	}

	app.initializeServer()
	return nil
}

func (app *Application) initializeTracing() error {
	tracingConfig := tracing.Config{
		Enabled:      app.cfg.Tracing.Enabled && app.cfg.Environment != "test",
		CollectorURL: app.cfg.Tracing.CollectorURL,
		Environment:  app.cfg.Environment,
		SampleRate:   getSampleRate(app.cfg.Environment),
	}

	shutdown, err := tracing.InitTracer(context.Background(), tracingConfig, app.log.Zap())
	if err != nil {
		return err
	}
	app.tracingShutdown = shutdown

	if tracingConfig.Enabled {
		app.log.Info("tracing initialized", "collector_url", tracingConfig.CollectorURL)
	}
	return nil
}

func (app *Application) initializeServer() {
	if app.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := routes.Setup(routes.Handlers{
		Wallet: app.container.WalletHandlers,
		KYC:    app.container.KYCHandlers,
		Admin:  app.container.AdminHandlers,
	}, app.container.Auth, 30*time.Second)

	app.server = &http.Server{
		Addr:           fmt.Sprintf(":%d", app.cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(app.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(app.cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
}

// Start begins serving and launches the workers
func (app *Application) Start() error {
	go func() {
		app.log.Info("starting server",
			"port", app.cfg.Server.Port,
			"environment", app.cfg.Environment,
		)
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.Fatal("failed to start server", "error", err)
		}
	}()

	if app.settlementWorker != nil {
		if err := app.settlementWorker.Start(); err != nil {
			return fmt.Errorf("failed to start settlement worker: %w", err)
		}
	}

	go app.collectPoolMetrics()
	return nil
}

// collectPoolMetrics publishes database pool stats every 30s
func (app *Application) collectPoolMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		stats := app.container.DB.Stats()
		metrics.DatabaseConnectionsGauge.WithLabelValues("open").Set(float64(stats.OpenConnections))
		metrics.DatabaseConnectionsGauge.WithLabelValues("idle").Set(float64(stats.Idle))
		metrics.DatabaseConnectionsGauge.WithLabelValues("in_use").Set(float64(stats.InUse))
	}
}

// WaitForShutdown blocks until SIGINT or SIGTERM
func (app *Application) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

// Shutdown drains in-flight requests and stops the workers
func (app *Application) Shutdown() error {
	app.log.Info("shutting down")

	if app.settlementWorker != nil {
		app.settlementWorker.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	if app.tracingShutdown != nil {
		if err := app.tracingShutdown(context.Background()); err != nil {
			app.log.Warn("error shutting down tracing", "error", err)
		}
	}

	if err := app.container.Close(); err != nil {
		app.log.Warn("error closing connections", "error", err)
	}

	app.log.Info("server exited gracefully")
	return nil
}

func getSampleRate(env string) float64 {
	switch env {
	case "production":
		return 0.1
	case "staging":
		return 0.5
	default:
		return 1.0
	}
}
