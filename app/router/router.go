package router

import (
	"revshare/app/handler"
	"revshare/app/middleware"
	"revshare/internal/service"

	"github.com/gin-gonic/gin"
)

// Router Router
type Router struct {
	healthHandler  *handler.HealthHandler
	dataHandler    *handler.DataHandler
	formulaHandler *handler.FormulaHandler
	shareHandler   *handler.ShareHandler
	userHandler    *handler.UserHandler
	crawlHandler   *handler.CrawlHandler
	userService    *service.UserService
}

// NewRouter creates a new Router
func NewRouter(healthHandler *handler.HealthHandler, dataHandler *handler.DataHandler,
	formulaHandler *handler.FormulaHandler, shareHandler *handler.ShareHandler,
	userHandler *handler.UserHandler, crawlHandler *handler.CrawlHandler,
	userService *service.UserService) *Router {
	return &Router{
		healthHandler:  healthHandler,
		dataHandler:    dataHandler,
		formulaHandler: formulaHandler,
		shareHandler:   shareHandler,
		userHandler:    userHandler,
		crawlHandler:   crawlHandler,
		userService:    userService,
	}
}

// Setup sets up routes
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	engine.GET("/health", r.healthHandler.Check)

	api := engine.Group("/api")
	api.Use(middleware.APIKeyAuth(r.userService))
	{
		// Processed summaries: any authenticated caller with read access;
		// the response shape depends on the caller's role.
		api.GET("/data", middleware.RequireRead(), r.dataHandler.GetProcessedData)
		api.GET("/computed-metrics", middleware.RequireRead(), r.dataHandler.GetComputedMetrics)
		api.GET("/aggregated-metrics", middleware.RequireRead(), r.dataHandler.GetAggregatedMetrics)
		api.GET("/formulas", middleware.RequireRead(), r.formulaHandler.List)
		api.GET("/formulas/:id", middleware.RequireRead(), r.formulaHandler.Get)
		api.GET("/shares", middleware.RequireRead(), r.shareHandler.List)
		api.GET("/crawl-status", middleware.RequireRead(), r.crawlHandler.Status)

		admin := api.Group("")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/raw-data", r.dataHandler.GetRawData)
			admin.GET("/fetch-logs", r.dataHandler.GetFetchLogs)

			admin.POST("/formulas", r.formulaHandler.Create)
			admin.PUT("/formulas/:id", r.formulaHandler.Update)
			admin.DELETE("/formulas/:id", r.formulaHandler.Deactivate)
			admin.POST("/formulas/:id/compute", r.formulaHandler.Compute)
			admin.POST("/formulas/compute-all", r.formulaHandler.ComputeAll)

			admin.POST("/shares", r.shareHandler.Create)

			admin.GET("/users", r.userHandler.List)
			admin.POST("/users", r.userHandler.Create)
			admin.POST("/users/:id/rotate-key", r.userHandler.RotateKey)
			admin.PUT("/users/:id/active", r.userHandler.SetActive)

			admin.POST("/trigger-crawl", r.crawlHandler.Trigger)
		}
	}
}
