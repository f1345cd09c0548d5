package main

import (
	"fmt"
	"net/http"

	"revshare/app/handler"
	"revshare/app/router"
	"revshare/internal/collector"
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
	"github.com/shopspring/decimal"
)

// initConfig initializes configuration
func (app *Application) initConfig() error {
	if err := config.Init(); err != nil {
		return err
	}
	app.config = config.GlobalConfig

	// Monetary values serialize as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
	return nil
}

// initLogger initializes logging
func (app *Application) initLogger() error {
	if err := logger.Init(); err != nil {
		return err
	}
	app.registerCleanup(func() {
		logger.Sync()
	})
	return nil
}

// initMySQL initializes MySQL
func (app *Application) initMySQL() error {
	dsn := mysqlstore.DSN(
		app.config.MySQL.User,
		app.config.MySQL.Password,
		app.config.MySQL.Host,
		app.config.MySQL.Port,
		app.config.MySQL.Database,
	)

	repo, err := mysqlstore.NewRepository(dsn)
	if err != nil {
		return err
	}
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	app.mysqlRepo = repo
	app.registerCleanup(func() {
		repo.Close()
		logger.InfoCtx(app.ctx, "MySQL connection has been closed")
	})

	return nil
}

// initRedis initializes Redis
func (app *Application) initRedis() error {
	client, err := redisstore.NewRedisClient(app.config)
	if err != nil {
		return err
	}

	app.redisClient = client
	app.registerCleanup(func() {
		client.Close()
		logger.InfoCtx(app.ctx, "Redis connection has been closed")
	})

	return nil
}

// initQueue initializes the task queue
func (app *Application) initQueue() error {
	mgr, err := queue.NewManager(app.config)
	if err != nil {
		return err
	}

	app.queueMgr = mgr
	app.registerCleanup(func() {
		mgr.Close()
		logger.InfoCtx(app.ctx, "Queue client has been closed")
	})

	return nil
}

// initPipeline initializes the compute pipeline components
func (app *Application) initPipeline() error {
	app.engine = formula.NewEngine(app.mysqlRepo.RawRevenue, app.mysqlRepo.Formula, app.mysqlRepo.Metric)
	app.processor = processor.NewProcessor(app.mysqlRepo.RawRevenue, app.mysqlRepo.RevenueShare, app.mysqlRepo.ProcessedRevenue)
	app.coord = coordinator.NewCoordinator(app.mysqlRepo.CrawlRun)
	return nil
}

// initServices initializes service layer
func (app *Application) initServices() error {
	scraperCfg := &app.config.Scraper
	newCollector := func() (collector.Collector, error) {
		return collector.NewDashboardCollector(scraperCfg)
	}

	app.fetchService = service.NewFetchService(
		app.coord,
		app.mysqlRepo.RawRevenue,
		app.mysqlRepo.FetchLog,
		app.engine,
		app.processor,
		newCollector,
	)
	app.dataService = service.NewDataService(app.mysqlRepo)
	app.formulaService = service.NewFormulaService(app.mysqlRepo.Formula, app.engine)
	app.shareService = service.NewShareService(app.mysqlRepo.RevenueShare)
	app.userService = service.NewUserService(app.mysqlRepo.User)
	return nil
}

// initWorkers registers queue handlers and the daily scheduler
func (app *Application) initWorkers() error {
	fetchHandler := jobs.NewFetchCycleHandler(app.fetchService, app.coord)
	app.queueMgr.RegisterHandler(queue.TypeFetchCycle, fetchHandler)

	if app.config.Scheduler.Enabled {
		app.scheduler = jobs.NewScheduler(&app.config.Scheduler, app.queueMgr)
	} else {
		logger.InfoCtx(app.ctx, "Daily fetch scheduler disabled by config")
	}
	return nil
}

// initHandlers initializes handler layer
func (app *Application) initHandlers() error {
	app.healthHandler = handler.NewHealthHandler(app.mysqlRepo, app.redisClient)
	app.dataHandler = handler.NewDataHandler(app.dataService)
	app.formulaHandler = handler.NewFormulaHandler(app.formulaService)
	app.shareHandler = handler.NewShareHandler(app.shareService)
	app.userHandler = handler.NewUserHandler(app.userService)
	app.crawlHandler = handler.NewCrawlHandler(app.queueMgr, app.coord)
	return nil
}

// initHTTPServer initializes the HTTP server
func (app *Application) initHTTPServer() error {
	r := router.NewRouter(
		app.healthHandler,
		app.dataHandler,
		app.formulaHandler,
		app.shareHandler,
		app.userHandler,
		app.crawlHandler,
		app.userService,
	)

	gin.SetMode(app.config.Server.Mode)

	app.ginEngine = gin.New()
	app.ginEngine.Use(gin.Recovery())

	r.Setup(app.ginEngine)

	app.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.ginEngine,
	}

	return nil
}
