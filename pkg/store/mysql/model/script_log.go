package model

import "time"

// ScriptLog represents one append-only log entry emitted by a worker or
// script run. Rows are immutable once stored.
type ScriptLog struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ScriptName string    `gorm:"column:script_name;not null;index"`
	Level      string    `gorm:"column:level;not null"`
	Message    string    `gorm:"column:message;type:text"`
	Metadata   JSONMap   `gorm:"column:metadata;type:json"` // free-form run context (sequence, run_id, ...)
	CreatedAt  time.Time `gorm:"column:created_at;not null;index"`
}

func (ScriptLog) TableName() string {
	return "script_logs"
}
