package router

import (
	"workpulse/app/handler"
	"workpulse/app/middleware"
	"workpulse/pkg/config"

	"github.com/gin-gonic/gin"
)

// Router Router
type Router struct {
	workerHandler *handler.WorkerHandler
	logHandler    *handler.LogHandler
	healthHandler *handler.HealthHandler
}

// NewRouter creates a new Router
func NewRouter(workerHandler *handler.WorkerHandler, logHandler *handler.LogHandler, healthHandler *handler.HealthHandler) *Router {
	return &Router{
		workerHandler: workerHandler,
		logHandler:    logHandler,
		healthHandler: healthHandler,
	}
}

// Setup sets up routes
func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery())
	engine.Use(middleware.Logger())

	var origins []string
	if config.GlobalConfig != nil {
		origins = config.GlobalConfig.CORS.AllowedOrigins
	}
	engine.Use(middleware.CORS(origins))

	// Health check (no auth)
	engine.GET("/health", r.healthHandler.Health)

	// V1 API - worker control interface
	v1 := engine.Group("/v1")
	v1.Use(middleware.AuthMiddleware())
	{
		v1.GET("/workers", r.workerHandler.List)
		v1.POST("/workers/:name/start", r.workerHandler.Start)
		v1.POST("/workers/:name/stop", r.workerHandler.Stop)

		v1.GET("/logs", r.logHandler.ListRecent)
	}
}
