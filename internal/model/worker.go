package model

import "time"

// WorkerStatusRow is the API representation of one worker's persisted status.
type WorkerStatusRow struct {
	WorkerName    string     `json:"worker_name"`
	Status        string     `json:"status"`
	Message       string     `json:"message"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
	LastStartedAt *time.Time `json:"last_started_at,omitempty"`
	LastStoppedAt *time.Time `json:"last_stopped_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ScriptLogEntry is the API representation of one append-only log row.
type ScriptLogEntry struct {
	ID         int64                  `json:"id"`
	ScriptName string                 `json:"script_name"`
	Level      string                 `json:"level"`
	Message    string                 `json:"message"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// HealthResponse is returned by the unauthenticated liveness endpoint.
type HealthResponse struct {
	Status  string    `json:"status"`
	Time    time.Time `json:"time"`
	Workers []string  `json:"workers"`
}
