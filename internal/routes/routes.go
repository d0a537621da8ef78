// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"escpos-bridge/internal/config"
	"escpos-bridge/internal/handler"
	"escpos-bridge/internal/middleware"
	"escpos-bridge/internal/utils"
)

// Handlers groups the HTTP handlers mounted by the router. Metrics may be
// nil.
type Handlers struct {
	Health    *handler.HealthHandler
	Printer   *handler.PrinterHandler
	Job       *handler.JobHandler
	Discovery *handler.DiscoveryHandler
	DSL       *handler.DSLHandler
	WebSocket *handler.WebSocketHandler
	Metrics   http.Handler
}

// Router holds all dependencies for routing
type Router struct {
	config   *config.Config
	logger   *zap.Logger
	handlers Handlers
}

// NewRouter creates a new router instance
func NewRouter(config *config.Config, logger *zap.Logger, handlers Handlers) *Router {
	return &Router{
		config:   config,
		logger:   logger,
		handlers: handlers,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RecoveryMiddleware(r.logger))

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Server))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	h := r.handlers

	r.addHealthRoutes(router, h.Health)

	apiV1 := router.Group("/api/v1")
	r.addPrinterRoutes(apiV1, h.Printer)
	r.addJobRoutes(apiV1, h.Job)
	r.addDiscoveryRoutes(apiV1, h.Discovery)
	r.addDSLRoutes(apiV1, h.DSL)

	if h.WebSocket != nil {
		apiV1.GET("/ws/stats", h.WebSocket.GetConnectionStats)
		r.addWebSocketRoutes(router, h.WebSocket)
	}

	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addHealthRoutes sets up health check routes
func (r *Router) addHealthRoutes(router *gin.Engine, handler *handler.HealthHandler) {
	health := router.Group("")
	{
		health.GET("/health", handler.HealthCheck)
		health.GET("/ready", handler.ReadinessCheck)
		health.GET("/live", handler.LivenessCheck)
	}
}

// addPrinterRoutes sets up printer and print routes
func (r *Router) addPrinterRoutes(api *gin.RouterGroup, handler *handler.PrinterHandler) {
	printers := api.Group("/printers")
	{
		printers.GET("", handler.ListPrinters)

		printer := printers.Group("/:printer_id")
		{
			printer.GET("", handler.GetPrinter)
			printer.POST("/test", handler.TestPrinter)
			printer.POST("/print", handler.Print)
			printer.POST("/validate", handler.Validate)
		}
	}

	api.GET("/sessions", handler.ListSessions)
	api.GET("/profiles", handler.ListProfiles)
}

// addJobRoutes sets up print journal routes
func (r *Router) addJobRoutes(api *gin.RouterGroup, handler *handler.JobHandler) {
	jobs := api.Group("/jobs")
	{
		jobs.GET("", handler.ListJobs)
		jobs.GET("/stats", handler.GetStats)
		jobs.GET("/:job_id", handler.GetJob)
	}
}

// addDiscoveryRoutes sets up printer discovery routes
func (r *Router) addDiscoveryRoutes(api *gin.RouterGroup, handler *handler.DiscoveryHandler) {
	discovery := api.Group("/discovery")
	{
		discovery.POST("/scan", handler.Scan)
		discovery.GET("/last", handler.LastReport)
		discovery.GET("/scanners", handler.GetScanners)
		discovery.GET("/serial-ports", handler.SerialPorts)
	}
}

// addDSLRoutes serves the print language reference
func (r *Router) addDSLRoutes(api *gin.RouterGroup, handler *handler.DSLHandler) {
	api.GET("/dsl", handler.Reference)
	api.GET("/dsl/commands", handler.Commands)
}

// addWebSocketRoutes sets up WebSocket routes
func (r *Router) addWebSocketRoutes(router *gin.Engine, handler *handler.WebSocketHandler) {
	ws := router.Group("/ws")
	{
		ws.GET("/events", handler.HandleEventConnection)
		ws.GET("/printers/:printer_id", handler.HandlePrinterConnection)
	}
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
