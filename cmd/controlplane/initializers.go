package main

import (
	"fmt"
	"net/http"
	"time"

	"workpulse/app/handler"
	"workpulse/app/router"
	"workpulse/internal/registry"
	"workpulse/internal/service"
	"workpulse/pkg/config"
	"workpulse/pkg/logger"
	mysqlstore "workpulse/pkg/store/mysql"
	redisstore "workpulse/pkg/store/redis"

	"github.com/gin-gonic/gin"
)

// initConfig initializes configuration
func (app *Application) initConfig() error {
	if err := config.Init(); err != nil {
		return err
	}
	app.config = config.GlobalConfig

	if len(app.config.Workers.Names) == 0 {
		return fmt.Errorf("no worker names configured")
	}
	return nil
}

// initLogger initializes logging
func (app *Application) initLogger() error {
	if err := logger.Init(); err != nil {
		return err
	}
	app.registerCleanup(func() {
		logger.Sync()
		logger.InfoCtx(app.ctx, "Logging system has been closed")
	})
	return nil
}

// initMySQL initializes MySQL
func (app *Application) initMySQL() error {
	dsn := mysqlstore.BuildDSN(app.config.MySQL)

	repo, err := mysqlstore.NewRepository(dsn)
	if err != nil {
		return err
	}

	app.mysqlRepo = repo
	app.registerCleanup(func() {
		repo.Close()
		logger.InfoCtx(app.ctx, "MySQL connection has been closed")
	})

	return nil
}

// initRedis initializes Redis. Redis is optional: without Addr the
// background jobs run without leader election.
func (app *Application) initRedis() error {
	if app.config.Redis.Addr == "" {
		logger.InfoCtx(app.ctx, "Redis not configured, background jobs run in single-instance mode")
		return nil
	}

	client, err := redisstore.NewRedisClient(app.config.Redis)
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

// initServices initializes service layer
func (app *Application) initServices() error {
	app.registry = registry.NewRegistry()

	logInterval := time.Duration(app.config.Workers.LogIntervalMs) * time.Millisecond
	heartbeatInterval := time.Duration(app.config.Workers.HeartbeatIntervalMs) * time.Millisecond

	app.lifecycleService = service.NewLifecycleService(
		app.registry,
		app.mysqlRepo.WorkerStatus,
		app.mysqlRepo.ScriptLog,
		app.config.Workers.Names,
		logInterval,
		heartbeatInterval,
	)

	logger.InfoCtx(app.ctx, "Lifecycle service managing %d workers (log every %v, heartbeat every %v)",
		len(app.config.Workers.Names), logInterval, heartbeatInterval)

	return nil
}

// initHandlers initializes handler layer
func (app *Application) initHandlers() error {
	app.workerHandler = handler.NewWorkerHandler(app.lifecycleService)
	app.logHandler = handler.NewLogHandler(app.lifecycleService)
	app.healthHandler = handler.NewHealthHandler(app.lifecycleService.WorkerNames())
	return nil
}

// initHTTPServer initializes HTTP server
func (app *Application) initHTTPServer() error {
	// Initialize router
	r := router.NewRouter(app.workerHandler, app.logHandler, app.healthHandler)

	// Set Gin mode
	gin.SetMode(app.config.Server.Mode)

	// Create Gin engine
	app.ginEngine = gin.New()
	app.ginEngine.Use(gin.Recovery())

	// Setup routes
	r.Setup(app.ginEngine)

	// Create HTTP server
	app.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.ginEngine,
	}

	return nil
}
