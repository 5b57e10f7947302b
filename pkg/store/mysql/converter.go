package mysql

import (
	"workpulse/internal/model"
	storemodel "workpulse/pkg/store/mysql/model"
)

// ToWorkerStatusDomain converts a MySQL worker status row to the API model
func ToWorkerStatusDomain(rec *storemodel.WorkerStatus) *model.WorkerStatusRow {
	if rec == nil {
		return nil
	}

	return &model.WorkerStatusRow{
		WorkerName:    rec.WorkerName,
		Status:        rec.Status,
		Message:       rec.Message,
		LastHeartbeat: rec.LastHeartbeat,
		LastStartedAt: rec.LastStartedAt,
		LastStoppedAt: rec.LastStoppedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

// ToScriptLogDomain converts a MySQL script log row to the API model
func ToScriptLogDomain(entry *storemodel.ScriptLog) *model.ScriptLogEntry {
	if entry == nil {
		return nil
	}

	return &model.ScriptLogEntry{
		ID:         entry.ID,
		ScriptName: entry.ScriptName,
		Level:      entry.Level,
		Message:    entry.Message,
		Metadata:   map[string]interface{}(entry.Metadata),
		CreatedAt:  entry.CreatedAt,
	}
}
