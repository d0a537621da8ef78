// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "escpos-bridge/docs"
	"escpos-bridge/internal/bus"
	"escpos-bridge/internal/config"
	"escpos-bridge/internal/database"
	"escpos-bridge/internal/discovery"
	"escpos-bridge/internal/discovery/serial"
	"escpos-bridge/internal/discovery/snmp"
	"escpos-bridge/internal/handler"
	"escpos-bridge/internal/metrics"
	"escpos-bridge/internal/profile"
	"escpos-bridge/internal/protocol"
	"escpos-bridge/internal/registry"
	"escpos-bridge/internal/repository"
	"escpos-bridge/internal/routes"
	"escpos-bridge/internal/service"
	"escpos-bridge/internal/session"
	"escpos-bridge/internal/utils"
)

// Application represents the main application
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	database *database.DB
	bus      bus.Client

	metrics  *metrics.Metrics
	eventBus *handler.EventBus
	registry *registry.Registry
	profiles *profile.Database
	factory  *protocol.Factory
	sessions *session.Manager
	jobRepo  repository.JobRepository

	// Services
	dispatcher       *service.Dispatcher
	printerService   *service.PrinterService
	jobService       *service.JobService
	discoveryService *service.DiscoveryService

	wsHandler *handler.WebSocketHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// @title ESC/POS Bridge API
// @version 1.0.0
// @description Message bus to ESC/POS receipt printer bridge

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8084
// @BasePath /
func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Error("Failed to start application", zap.Error(err))
		app.shutdown()
		os.Exit(1)
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "escpos-bridge")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg.App)

	ctx, cancel := context.WithCancel(context.Background())
	app := &Application{
		config: cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := app.initializeDatabase(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.initializeCore()
	app.initializeServices()

	if err := app.initializeBus(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize message bus: %w", err)
	}

	app.initializeServer()

	return app, nil
}

// initializeDatabase opens the job journal. Without a database the journal
// lives in memory.
func (app *Application) initializeDatabase() error {
	if !app.config.Database.Enabled {
		app.jobRepo = repository.NewMemoryJobRepository(app.config.Journal.Capacity, app.logger)
		app.logger.Info("Job journal kept in memory", zap.Int("capacity", app.config.Journal.Capacity))
		return nil
	}

	db, err := database.Connect(app.ctx, app.config, app.logger)
	if err != nil {
		return err
	}
	app.database = db

	migrator := database.NewMigrator(db, app.logger)
	if err := migrator.Up(); err != nil {
		db.Close()
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	app.jobRepo = repository.NewJobRepository(db, app.logger)
	app.logger.Info("Database initialized successfully")
	return nil
}

// initializeCore creates the registry, transports and session manager
func (app *Application) initializeCore() {
	app.metrics = metrics.New()
	app.eventBus = handler.NewEventBus(app.logger)
	app.registry = registry.New(app.logger)
	app.profiles = profile.NewDatabase()
	app.factory = protocol.NewFactory(service.TransportOptions(app.config), app.logger)

	hooks := app.metrics.SessionHooks(service.SessionEventHooks(app.eventBus))
	app.sessions = session.NewManager(service.SessionConfig(app.config), app.factory, app.registry, hooks, app.logger)

	app.logger.Info("Printer core initialized",
		zap.Int("profiles", len(app.profiles.Models())),
		zap.Int("queue_size", app.config.Session.QueueSize),
		zap.Int("max_attempts", app.config.Session.MaxAttempts),
	)
}

// initializeServices creates service instances
func (app *Application) initializeServices() {
	app.dispatcher = service.NewDispatcher(
		app.registry,
		app.profiles,
		app.sessions,
		app.jobRepo,
		app.eventBus,
		app.metrics,
		app.logger,
	)

	app.printerService = service.NewPrinterService(
		app.registry,
		app.sessions,
		app.profiles,
		app.factory,
		app.config.Session.ConnectTimeout,
		app.logger,
	)

	app.jobService = service.NewJobService(app.jobRepo, app.logger)

	var identifier discovery.Identifier = snmp.NewIdentifier(service.SNMPConfig(app.config), app.logger)
	scanners := service.NewScannerManager(app.config, identifier, app.logger)
	app.discoveryService = service.NewDiscoveryService(
		app.config,
		scanners,
		identifier,
		app.registry,
		app.profiles,
		app.factory,
		app.eventBus,
		app.metrics,
		app.logger,
	)

	app.logger.Info("Services initialized successfully")
}

// initializeBus creates the bus client. An empty URL disables the bus.
func (app *Application) initializeBus() error {
	if app.config.Bus.URL == "" {
		app.logger.Warn("No bus URL configured, programs are only accepted over HTTP")
		return nil
	}

	client, err := bus.New(app.config.Bus, app.dispatcher, app.registry, app.logger)
	if err != nil {
		return err
	}
	app.bus = client
	return nil
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() {
	if !app.config.Server.Enabled {
		app.logger.Info("HTTP server disabled")
		return
	}

	app.wsHandler = handler.NewWebSocketHandler(app.eventBus, app.printerService, app.logger)

	// typed nils must not reach the health handler's interfaces
	var db handler.DatabaseChecker
	if app.database != nil {
		db = app.database
	}
	var busStatus handler.BusStatus
	if app.bus != nil {
		busStatus = app.bus
	}

	routerManager := routes.NewRouter(app.config, app.logger, routes.Handlers{
		Health:    handler.NewHealthHandler(db, busStatus, app.registry, app.config, app.logger),
		Printer:   handler.NewPrinterHandler(app.printerService, app.dispatcher, app.logger),
		Job:       handler.NewJobHandler(app.jobService, app.logger),
		Discovery: handler.NewDiscoveryHandler(app.discoveryService, serial.NewLister(nil, app.logger), app.logger),
		DSL:       handler.NewDSLHandler(),
		WebSocket: app.wsHandler,
		Metrics:   app.metrics.Handler(),
	})

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      routerManager.SetupRouter(),
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized", zap.String("address", app.config.GetServerAddr()))
}

// Start registers printers, connects the bus and serves until a shutdown
// signal arrives
func (app *Application) Start() error {
	app.startBackgroundServices()

	if _, err := app.discoveryService.RegisterManual(app.ctx); err != nil {
		app.logger.Error("Manual printer not registered", zap.Error(err))
	}

	if app.bus != nil {
		if err := app.bus.Start(app.ctx); err != nil {
			return fmt.Errorf("bus %s: %w", app.bus.Kind(), err)
		}
		app.logger.Info("Message bus connected", zap.String("kind", app.bus.Kind()))
	}

	if app.server != nil {
		go func() {
			app.logger.Info("Starting HTTP server", zap.String("address", app.server.Addr))
			if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				app.logger.Error("HTTP server failed", zap.Error(err))
				app.cancel()
			}
		}()
	}

	app.waitForShutdown()
	return nil
}

// startBackgroundServices starts background services
func (app *Application) startBackgroundServices() {
	app.goBackground(func(ctx context.Context) { app.eventBus.Start(ctx) })

	events, unsubscribe := app.registry.Subscribe(64)
	app.goBackground(func(ctx context.Context) {
		defer unsubscribe()
		service.ForwardRegistryEvents(ctx, events, app.eventBus)
	})

	if app.wsHandler != nil {
		app.goBackground(app.wsHandler.Run)
	}

	app.goBackground(app.discoveryService.Run)
	app.goBackground(app.startJournalPruning)

	app.logger.Info("Background services started")
}

func (app *Application) goBackground(run func(ctx context.Context)) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		run(app.ctx)
	}()
}

// startJournalPruning drops journal entries older than the retention
func (app *Application) startJournalPruning(ctx context.Context) {
	interval := app.config.Journal.PruneInterval
	if interval <= 0 || app.config.Journal.Retention <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	app.logger.Info("Journal pruning started",
		zap.Duration("interval", interval),
		zap.Duration("retention", app.config.Journal.Retention),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneCtx, cancel := context.WithTimeout(ctx, time.Minute)
			removed, err := app.jobService.Prune(pruneCtx, app.config.Journal.Retention)
			cancel()
			if err != nil {
				app.logger.Error("Failed to prune job journal", zap.Error(err))
			} else if removed > 0 {
				app.logger.Info("Pruned job journal", zap.Int64("deleted", removed))
			}
		}
	}
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case <-app.ctx.Done():
		app.logger.Info("Background failure, shutting down")
	}

	app.shutdown()
}

// shutdown stops intake first, then waits for in-flight deliveries
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "escpos-bridge")
	serviceLogger.LogServiceStop("shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if app.server != nil {
		if err := app.server.Shutdown(ctx); err != nil {
			app.logger.Error("HTTP server shutdown error", zap.Error(err))
		} else {
			app.logger.Info("HTTP server stopped")
		}
	}

	if app.bus != nil {
		if err := app.bus.Close(); err != nil {
			app.logger.Error("Message bus close error", zap.Error(err))
		} else {
			app.logger.Info("Message bus disconnected")
		}
	}

	app.cancel()
	app.sessions.Close()
	app.wg.Wait()

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Error("Database close error", zap.Error(err))
		} else {
			app.logger.Info("Database connection closed")
		}
	}

	app.logger.Info("Application shutdown completed")
	utils.CloseLogger(app.logger)
}
