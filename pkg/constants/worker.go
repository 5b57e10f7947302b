package constants

// Worker status constants
type WorkerStatus string

const (
	WorkerStatusStopped WorkerStatus = "stopped" // No active timers
	WorkerStatusRunning WorkerStatus = "running" // Log-tick and heartbeat timers active
)

func (s WorkerStatus) String() string {
	return string(s)
}

// Log level constants for script log entries
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

func (l LogLevel) String() string {
	return string(l)
}

// Status messages written to the worker status row
const (
	StatusMessageRunning        = "Running"
	StatusMessageStopped        = "Stopped"
	StatusMessageAlreadyRunning = "Already running."
	StatusMessageAlreadyStopped = "Already stopped."
)

// Default periodic intervals
const (
	DefaultLogIntervalMs       = 6000
	DefaultHeartbeatIntervalMs = 12000
)

// tickLevelCycle is the deterministic level rotation for log ticks,
// indexed by sequence mod 3. Sequence 1 lands on warning.
var tickLevelCycle = [3]LogLevel{LogLevelInfo, LogLevelWarning, LogLevelError}

// TickLevel returns the log level for the given tick sequence number.
func TickLevel(sequence int64) LogLevel {
	if sequence < 0 {
		sequence = -sequence
	}
	return tickLevelCycle[sequence%3]
}
