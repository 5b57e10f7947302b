package mysql

import (
	"context"
	"fmt"
	"time"

	"workpulse/pkg/store/mysql/model"

	"gorm.io/gorm/clause"
)

// WorkerStatusRepository handles worker status persistence in MySQL
type WorkerStatusRepository struct {
	ds *Datastore
}

// NewWorkerStatusRepository creates a new worker status repository
func NewWorkerStatusRepository(ds *Datastore) *WorkerStatusRepository {
	return &WorkerStatusRepository{ds: ds}
}

// Upsert writes a lifecycle transition row, keyed by worker name. On
// conflict it updates the transition columns only; last_heartbeat keeps
// whatever the periodic activities last wrote.
func (r *WorkerStatusRepository) Upsert(ctx context.Context, status *model.WorkerStatus) error {
	return r.ds.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "worker_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "message", "last_started_at", "last_stopped_at", "updated_at",
		}),
	}).Create(status).Error
}

// UpsertHeartbeat writes an activity row (log tick or heartbeat), keyed by
// worker name. On conflict it refreshes status, message, last_heartbeat and
// updated_at while preserving last_started_at/last_stopped_at.
func (r *WorkerStatusRepository) UpsertHeartbeat(ctx context.Context, status *model.WorkerStatus) error {
	return r.ds.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "worker_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "message", "last_heartbeat", "updated_at",
		}),
	}).Create(status).Error
}

// List retrieves all worker status rows ordered by name
func (r *WorkerStatusRepository) List(ctx context.Context) ([]*model.WorkerStatus, error) {
	var statuses []*model.WorkerStatus
	err := r.ds.DB(ctx).Order("worker_name ASC").Find(&statuses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list worker statuses: %w", err)
	}
	return statuses, nil
}

// ListStale retrieves rows marked running whose heartbeat is older than the
// given cutoff. Used by the heartbeat lag reporter.
func (r *WorkerStatusRepository) ListStale(ctx context.Context, status string, heartbeatBefore time.Time) ([]*model.WorkerStatus, error) {
	var statuses []*model.WorkerStatus
	err := r.ds.DB(ctx).
		Where("status = ? AND (last_heartbeat IS NULL OR last_heartbeat < ?)", status, heartbeatBefore).
		Order("worker_name ASC").
		Find(&statuses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale worker statuses: %w", err)
	}
	return statuses, nil
}
