package service

import (
	"context"
	"time"

	"workpulse/pkg/store/mysql"
	storemodel "workpulse/pkg/store/mysql/model"
)

type statusRepository interface {
	Upsert(ctx context.Context, status *storemodel.WorkerStatus) error
	UpsertHeartbeat(ctx context.Context, status *storemodel.WorkerStatus) error
	List(ctx context.Context) ([]*storemodel.WorkerStatus, error)
	ListStale(ctx context.Context, status string, heartbeatBefore time.Time) ([]*storemodel.WorkerStatus, error)
}

type logRepository interface {
	Insert(ctx context.Context, entry *storemodel.ScriptLog) error
	ListRecent(ctx context.Context, scriptName string, limit int) ([]*storemodel.ScriptLog, error)
}

// compile-time assertions

var (
	_ statusRepository = (*mysql.WorkerStatusRepository)(nil)
	_ logRepository    = (*mysql.ScriptLogRepository)(nil)
)
