package registry

import (
	"context"
	"sync"
	"time"

	"workpulse/pkg/constants"
)

// Runtime holds the in-process state for one worker. A runtime is created
// lazily on first reference and lives for the rest of the process; restarts
// reset every runtime to stopped regardless of what the status store says.
type Runtime struct {
	name string

	mu            sync.Mutex
	status        constants.WorkerStatus
	sequence      int64
	lastStartedAt *time.Time
	lastStoppedAt *time.Time

	// Schedule handles for the two periodic activities. At most one active
	// pair exists at a time; the previous pair is always canceled before a
	// new one is installed.
	logCancel       context.CancelFunc
	heartbeatCancel context.CancelFunc

	// tickMu is held only while a single log tick's store writes are in
	// flight. Overlapping firings skip instead of queueing.
	tickMu sync.Mutex

	// opMu serializes whole start/stop transitions for this worker so
	// overlapping calls for the same name cannot leave dangling timers.
	opMu sync.Mutex
}

func newRuntime(name string) *Runtime {
	return &Runtime{
		name:   name,
		status: constants.WorkerStatusStopped,
	}
}

// Name returns the worker name. Immutable after creation.
func (r *Runtime) Name() string {
	return r.name
}

// BeginTransition takes the per-worker transition lock. Start/stop for the
// same name serialize here; different names proceed independently.
func (r *Runtime) BeginTransition() {
	r.opMu.Lock()
}

// EndTransition releases the per-worker transition lock.
func (r *Runtime) EndTransition() {
	r.opMu.Unlock()
}

// MarkStarted transitions to running, resets the sequence and stamps
// lastStartedAt. When the runtime is already running nothing changes and
// alreadyRunning is true.
func (r *Runtime) MarkStarted(now time.Time) (alreadyRunning bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status == constants.WorkerStatusRunning {
		return true
	}

	r.status = constants.WorkerStatusRunning
	r.sequence = 0
	started := now
	r.lastStartedAt = &started
	r.lastStoppedAt = nil
	return false
}

// MarkStopped transitions to stopped and stamps lastStoppedAt regardless of
// prior state. It reports whether the runtime was running before the call.
func (r *Runtime) MarkStopped(now time.Time) (wasRunning bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wasRunning = r.status == constants.WorkerStatusRunning
	r.status = constants.WorkerStatusStopped
	stopped := now
	r.lastStoppedAt = &stopped
	return wasRunning
}

// IsRunning reports whether the periodic activities should be active.
func (r *Runtime) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status == constants.WorkerStatusRunning
}

// NextSequence increments the tick counter and returns the new value.
func (r *Runtime) NextSequence() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sequence++
	return r.sequence
}

// TryBeginTick engages the tick reentrancy guard. It returns false while a
// previous tick's writes are still in flight; that firing must be skipped.
func (r *Runtime) TryBeginTick() bool {
	return r.tickMu.TryLock()
}

// EndTick releases the tick reentrancy guard.
func (r *Runtime) EndTick() {
	r.tickMu.Unlock()
}

// SetSchedules installs a new pair of schedule handles, canceling any
// previous pair first.
func (r *Runtime) SetSchedules(logCancel, heartbeatCancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.logCancel != nil {
		r.logCancel()
	}
	if r.heartbeatCancel != nil {
		r.heartbeatCancel()
	}
	r.logCancel = logCancel
	r.heartbeatCancel = heartbeatCancel
}

// CancelSchedules cancels both periodic activities. Idempotent.
func (r *Runtime) CancelSchedules() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.logCancel != nil {
		r.logCancel()
		r.logCancel = nil
	}
	if r.heartbeatCancel != nil {
		r.heartbeatCancel()
		r.heartbeatCancel = nil
	}
}

// Snapshot is a point-in-time copy of a runtime's observable state.
type Snapshot struct {
	Name          string
	Status        constants.WorkerStatus
	Sequence      int64
	LastStartedAt *time.Time
	LastStoppedAt *time.Time
}

// Snapshot returns a consistent copy of the runtime's observable state.
func (r *Runtime) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		Name:          r.name,
		Status:        r.status,
		Sequence:      r.sequence,
		LastStartedAt: copyTime(r.lastStartedAt),
		LastStoppedAt: copyTime(r.lastStoppedAt),
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
