package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"workpulse/internal/jobs"
	"workpulse/internal/service"
	"workpulse/pkg/lock"
	"workpulse/pkg/logger"
)

func (app *Application) initJobs() error {
	if app.lifecycleService == nil {
		logger.WarnCtx(app.ctx, "Service layer not initialized yet, skipping background task registration")
		return nil
	}

	manager := jobs.NewManager(app.ctx)

	// Distributed lock keeps multiple replicas from reporting the same lag.
	// Without Redis it downgrades to single-instance mode.
	var redisClient *redis.Client
	if app.redisClient != nil {
		redisClient = app.redisClient.GetClient()
	}

	heartbeatLagLock := lock.NewRedisDistributedLock(redisClient, "jobs:heartbeat-lag-lock")
	manager.Register(newHeartbeatLagJob(time.Minute, app.lifecycleService, heartbeatLagLock))

	app.jobsManager = manager
	return nil
}

// heartbeatLagJob periodically flags status rows whose heartbeat stalled.
type heartbeatLagJob struct {
	interval         time.Duration
	lifecycleService *service.LifecycleService
	distributedLock  lock.DistributedLock
}

func newHeartbeatLagJob(interval time.Duration, svc *service.LifecycleService, distLock lock.DistributedLock) jobs.Job {
	return &heartbeatLagJob{
		interval:         interval,
		lifecycleService: svc,
		distributedLock:  distLock,
	}
}

func (j *heartbeatLagJob) Name() string {
	return "heartbeat-lag-report"
}

func (j *heartbeatLagJob) Interval() time.Duration {
	return j.interval
}

func (j *heartbeatLagJob) Run(ctx context.Context) error {
	if j.lifecycleService == nil {
		return fmt.Errorf("lifecycle service not configured")
	}

	// Try to acquire distributed lock
	if j.distributedLock != nil {
		acquired, err := j.distributedLock.TryLock(ctx)
		if err != nil || !acquired {
			logger.DebugCtx(ctx, "another instance is reporting heartbeat lag, skipping this cycle")
			return nil
		}
		defer j.distributedLock.Unlock(ctx)
	}

	logger.DebugCtx(ctx, "running heartbeat lag report job")
	return j.lifecycleService.ReportHeartbeatLag(ctx)
}
