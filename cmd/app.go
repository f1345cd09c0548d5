package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"revshare/app/handler"
	"revshare/internal/coordinator"
	"revshare/internal/formula"
	"revshare/internal/jobs"
	"revshare/internal/processor"
	"revshare/internal/service"
	"revshare/pkg/config"
	"revshare/pkg/logger"
	queue "revshare/pkg/queue/asynq"
	mysqlstore "revshare/pkg/store/mysql"
	redisstore "revshare/pkg/store/redis"

	"github.com/gin-gonic/gin"
)

// Application manages the lifecycle of the entire application
type Application struct {
	// Infrastructure components
	config      *config.Config
	mysqlRepo   *mysqlstore.Repository
	redisClient *redisstore.RedisClient
	queueMgr    *queue.Manager

	// Core pipeline
	engine    *formula.Engine
	processor *processor.Processor
	coord     *coordinator.Coordinator

	// Service layer
	fetchService   *service.FetchService
	dataService    *service.DataService
	formulaService *service.FormulaService
	shareService   *service.ShareService
	userService    *service.UserService

	// Handler layer
	healthHandler  *handler.HealthHandler
	dataHandler    *handler.DataHandler
	formulaHandler *handler.FormulaHandler
	shareHandler   *handler.ShareHandler
	userHandler    *handler.UserHandler
	crawlHandler   *handler.CrawlHandler

	// Background
	scheduler *jobs.Scheduler

	// HTTP server
	httpServer *http.Server
	ginEngine  *gin.Engine

	// Context management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Background task cleanup functions
	cleanupFuncs []func()
}

// NewApplication creates a new Application instance
func NewApplication() *Application {
	ctx, cancel := context.WithCancel(context.Background())
	return &Application{
		ctx:          ctx,
		cancel:       cancel,
		cleanupFuncs: make([]func(), 0),
	}
}

// Initialize initializes all application components
func (app *Application) Initialize() error {
	var err error

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Configuration", app.initConfig},
		{"Logging", app.initLogger},
		{"MySQL", app.initMySQL},
		{"Redis", app.initRedis},
		{"Queue", app.initQueue},
		{"Pipeline", app.initPipeline},
		{"Service Layer", app.initServices},
		{"Workers", app.initWorkers},
		{"Handler Layer", app.initHandlers},
		{"HTTP Server", app.initHTTPServer},
	}

	for _, step := range steps {
		logger.InfoCtx(app.ctx, "Initializing %s...", step.name)
		if err = step.fn(); err != nil {
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		logger.InfoCtx(app.ctx, "%s initialized successfully", step.name)
	}

	logger.InfoCtx(app.ctx, "Application initialization completed")
	return nil
}

// Start starts all application components
func (app *Application) Start() error {
	logger.InfoCtx(app.ctx, "Starting application components...")

	// 1. Start queue worker
	if err := app.queueMgr.Start(); err != nil {
		return fmt.Errorf("failed to start queue worker: %w", err)
	}

	// 2. Start daily fetch scheduler
	if app.scheduler != nil {
		if err := app.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	// 3. Start HTTP server
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		addr := fmt.Sprintf(":%d", app.config.Server.Port)
		logger.InfoCtx(app.ctx, "HTTP server listening on: %s", addr)
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalCtx(app.ctx, "HTTP server error: %v", err)
		}
	}()

	logger.InfoCtx(app.ctx, "All components started successfully")
	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown(timeout time.Duration) error {
	logger.InfoCtx(app.ctx, "Starting graceful shutdown (timeout: %v)...", timeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// 1. Stop scheduling new cycles
	app.cancel()
	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	// 2. Stop the queue worker; a running cycle finishes first
	app.queueMgr.Stop()

	// 3. Stop HTTP server (stop accepting new requests)
	logger.InfoCtx(app.ctx, "Shutting down HTTP server...")
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(app.ctx, "HTTP server shutdown error: %v", err)
	}

	// 4. Wait for background tasks
	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.InfoCtx(app.ctx, "All background tasks completed")
	case <-shutdownCtx.Done():
		logger.WarnCtx(app.ctx, "Shutdown timeout, some tasks may not have completed")
	}

	// 5. Execute all cleanup functions (in reverse registration order)
	for i := len(app.cleanupFuncs) - 1; i >= 0; i-- {
		app.cleanupFuncs[i]()
	}

	// 6. Sync logs
	logger.Sync()

	logger.InfoCtx(app.ctx, "Graceful shutdown completed")
	return nil
}

// registerCleanup registers cleanup function
func (app *Application) registerCleanup(cleanup func()) {
	app.cleanupFuncs = append(app.cleanupFuncs, cleanup)
}
