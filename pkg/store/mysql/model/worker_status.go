package model

import "time"

// WorkerStatus represents the persisted status row for one worker.
// Exactly one row exists per worker name; writers converge via upsert.
type WorkerStatus struct {
	WorkerName    string     `gorm:"column:worker_name;primaryKey;size:128"`
	Status        string     `gorm:"column:status;not null;default:stopped"`
	Message       string     `gorm:"column:message"`
	LastHeartbeat *time.Time `gorm:"column:last_heartbeat"`
	LastStartedAt *time.Time `gorm:"column:last_started_at"`
	LastStoppedAt *time.Time `gorm:"column:last_stopped_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;not null"`
}

func (WorkerStatus) TableName() string {
	return "worker_status"
}
