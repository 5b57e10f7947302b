package mysql

import (
	"context"
	"fmt"

	"workpulse/pkg/store/mysql/model"
)

// ScriptLogRepository handles script log persistence in MySQL
type ScriptLogRepository struct {
	ds *Datastore
}

// NewScriptLogRepository creates a new script log repository
func NewScriptLogRepository(ds *Datastore) *ScriptLogRepository {
	return &ScriptLogRepository{ds: ds}
}

// Insert appends a single log entry
func (r *ScriptLogRepository) Insert(ctx context.Context, entry *model.ScriptLog) error {
	return r.ds.DB(ctx).Create(entry).Error
}

// ListRecent retrieves the newest entries first, optionally filtered by
// script name. A non-positive limit falls back to 100.
func (r *ScriptLogRepository) ListRecent(ctx context.Context, scriptName string, limit int) ([]*model.ScriptLog, error) {
	if limit <= 0 {
		limit = 100
	}

	query := r.ds.DB(ctx).Order("created_at DESC, id DESC").Limit(limit)
	if scriptName != "" {
		query = query.Where("script_name = ?", scriptName)
	}

	var entries []*model.ScriptLog
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list script logs: %w", err)
	}
	return entries, nil
}
