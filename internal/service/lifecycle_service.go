package service

import (
	"context"
	"fmt"
	"time"

	"workpulse/internal/model"
	"workpulse/internal/registry"
	"workpulse/pkg/constants"
	"workpulse/pkg/logger"
	"workpulse/pkg/store/mysql"
	storemodel "workpulse/pkg/store/mysql/model"
)

// LifecycleService is the control plane for the configured worker fleet.
// It owns start/stop transitions, schedules the two periodic activities of
// each running worker and writes state through to the status store and the
// log sink. The in-memory registry is authoritative; the store only trails
// it and is never read back to reconcile.
type LifecycleService struct {
	registry *registry.Registry
	statuses statusRepository
	logs     logRepository

	allowed map[string]struct{} // configured worker names
	names   []string            // configuration order, for listings

	logInterval       time.Duration
	heartbeatInterval time.Duration
}

// NewLifecycleService creates the lifecycle controller for the given worker
// names and intervals.
func NewLifecycleService(reg *registry.Registry, statuses statusRepository, logs logRepository, names []string, logInterval, heartbeatInterval time.Duration) *LifecycleService {
	allowed := make(map[string]struct{}, len(names))
	for _, name := range names {
		allowed[name] = struct{}{}
	}

	return &LifecycleService{
		registry:          reg,
		statuses:          statuses,
		logs:              logs,
		allowed:           allowed,
		names:             append([]string(nil), names...),
		logInterval:       logInterval,
		heartbeatInterval: heartbeatInterval,
	}
}

// WorkerNames returns the configured allow-list in configuration order.
func (s *LifecycleService) WorkerNames() []string {
	return append([]string(nil), s.names...)
}

// Start transitions a worker to running and schedules its periodic
// activities. Starting a running worker changes nothing in the runtime but
// still writes an "Already running." status row. The transition holds the
// per-worker lock so overlapping start/stop calls for the same name
// serialize; different names proceed independently.
func (s *LifecycleService) Start(ctx context.Context, name string) (*model.WorkerStatusRow, error) {
	if !s.isConfigured(name) {
		return nil, ErrUnknownWorker
	}

	rt := s.registry.GetOrCreate(name)
	rt.BeginTransition()
	defer rt.EndTransition()

	now := time.Now().UTC()
	if alreadyRunning := rt.MarkStarted(now); alreadyRunning {
		logger.InfoCtx(ctx, "start requested for already running worker: %s", name)

		record := s.transitionRecord(rt.Snapshot(), constants.StatusMessageAlreadyRunning)
		if err := s.statuses.Upsert(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to upsert worker status: %w", err)
		}
		return mysql.ToWorkerStatusDomain(record), nil
	}

	// Timers come up before the synchronous writes. If a write below fails
	// the worker stays running with timers active; the caller sees the
	// error but the runtime is not rolled back.
	s.scheduleActivities(rt)

	logger.InfoCtx(ctx, "worker started: %s", name)

	entry := &storemodel.ScriptLog{
		ScriptName: name,
		Level:      constants.LogLevelInfo.String(),
		Message:    fmt.Sprintf("Worker %s started.", name),
		Metadata:   storemodel.JSONMap{"event": "started"},
		CreatedAt:  now,
	}
	if err := s.logs.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to insert start log entry: %w", err)
	}

	record := s.transitionRecord(rt.Snapshot(), constants.StatusMessageRunning)
	if err := s.statuses.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to upsert worker status: %w", err)
	}
	return mysql.ToWorkerStatusDomain(record), nil
}

// Stop cancels a worker's periodic activities and transitions it to
// stopped. Stopping an already stopped worker still stamps lastStoppedAt
// and writes an "Already stopped." status row, but emits no log entry.
func (s *LifecycleService) Stop(ctx context.Context, name string) (*model.WorkerStatusRow, error) {
	if !s.isConfigured(name) {
		return nil, ErrUnknownWorker
	}

	rt := s.registry.GetOrCreate(name)
	rt.BeginTransition()
	defer rt.EndTransition()

	// Cancel both periodic activities unconditionally; cancellation is
	// idempotent and never fails toward the caller.
	rt.CancelSchedules()

	now := time.Now().UTC()
	wasRunning := rt.MarkStopped(now)

	if !wasRunning {
		logger.InfoCtx(ctx, "stop requested for already stopped worker: %s", name)

		record := s.transitionRecord(rt.Snapshot(), constants.StatusMessageAlreadyStopped)
		if err := s.statuses.Upsert(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to upsert worker status: %w", err)
		}
		return mysql.ToWorkerStatusDomain(record), nil
	}

	logger.InfoCtx(ctx, "worker stopped: %s", name)

	entry := &storemodel.ScriptLog{
		ScriptName: name,
		Level:      constants.LogLevelWarning.String(),
		Message:    fmt.Sprintf("Worker %s stopped.", name),
		Metadata:   storemodel.JSONMap{"event": "stopped"},
		CreatedAt:  now,
	}
	if err := s.logs.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to insert stop log entry: %w", err)
	}

	record := s.transitionRecord(rt.Snapshot(), constants.StatusMessageStopped)
	if err := s.statuses.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to upsert worker status: %w", err)
	}
	return mysql.ToWorkerStatusDomain(record), nil
}

// ListStatuses returns every persisted status row ordered by worker name.
func (s *LifecycleService) ListStatuses(ctx context.Context) ([]*model.WorkerStatusRow, error) {
	records, err := s.statuses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list worker statuses: %w", err)
	}

	rows := make([]*model.WorkerStatusRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, mysql.ToWorkerStatusDomain(record))
	}
	return rows, nil
}

// ListRecentLogs returns the newest log entries, optionally filtered by
// script name.
func (s *LifecycleService) ListRecentLogs(ctx context.Context, scriptName string, limit int) ([]*model.ScriptLogEntry, error) {
	records, err := s.logs.ListRecent(ctx, scriptName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent logs: %w", err)
	}

	entries := make([]*model.ScriptLogEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, mysql.ToScriptLogDomain(record))
	}
	return entries, nil
}

// StopAllSchedules cancels the periodic activities of every runtime
// without writing any state. Used during process shutdown; persisted
// rows deliberately keep saying running, which the heartbeat-lag
// reporter surfaces after the next startup.
func (s *LifecycleService) StopAllSchedules() {
	for _, rt := range s.registry.All() {
		rt.CancelSchedules()
	}
}

// ReportHeartbeatLag warns about rows marked running whose heartbeat is
// older than three heartbeat intervals. Observational only: the registry
// stays authoritative and no row is corrected.
func (s *LifecycleService) ReportHeartbeatLag(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-3 * s.heartbeatInterval)
	stale, err := s.statuses.ListStale(ctx, constants.WorkerStatusRunning.String(), cutoff)
	if err != nil {
		return fmt.Errorf("failed to list stale worker statuses: %w", err)
	}

	for _, record := range stale {
		if record.LastHeartbeat == nil {
			logger.WarnCtx(ctx, "worker %s is marked running but has never heartbeated", record.WorkerName)
			continue
		}
		logger.WarnCtx(ctx, "worker %s heartbeat lagging, last seen %s",
			record.WorkerName, record.LastHeartbeat.UTC().Format(time.RFC3339))
	}
	return nil
}

func (s *LifecycleService) isConfigured(name string) bool {
	_, ok := s.allowed[name]
	return ok
}

// scheduleActivities brings up the log-tick and heartbeat loops for rt.
// The schedule contexts control loop lifetime only; each firing runs on a
// background context so a write already in flight when the worker stops is
// allowed to land.
func (s *LifecycleService) scheduleActivities(rt *registry.Runtime) {
	logCtx, logCancel := context.WithCancel(context.Background())
	heartbeatCtx, heartbeatCancel := context.WithCancel(context.Background())
	rt.SetSchedules(logCancel, heartbeatCancel)

	go s.runSchedule(logCtx, s.logInterval, func() {
		s.runLogTick(context.Background(), rt)
	})
	go s.runSchedule(heartbeatCtx, s.heartbeatInterval, func() {
		s.runHeartbeat(context.Background(), rt)
	})
}

// runSchedule fires fn on every tick until the schedule context is
// canceled. The first firing lands one full interval after start.
func (s *LifecycleService) runSchedule(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// runLogTick performs one log-tick firing: advance the sequence, append a
// log entry, then write the status row through. A firing that arrives while
// a previous tick's writes are still in flight is skipped entirely.
func (s *LifecycleService) runLogTick(ctx context.Context, rt *registry.Runtime) {
	if !rt.TryBeginTick() {
		logger.DebugCtx(ctx, "log tick still in flight for worker %s, skipping firing", rt.Name())
		return
	}
	defer rt.EndTick()

	sequence := rt.NextSequence()
	level := constants.TickLevel(sequence)
	message := fmt.Sprintf("Worker %s emitted log #%d.", rt.Name(), sequence)
	now := time.Now().UTC()

	entry := &storemodel.ScriptLog{
		ScriptName: rt.Name(),
		Level:      level.String(),
		Message:    message,
		Metadata:   storemodel.JSONMap{"sequence": sequence, "sample": true},
		CreatedAt:  now,
	}
	if err := s.logs.Insert(ctx, entry); err != nil {
		logger.ErrorCtx(ctx, "failed to insert tick log for worker %s: %v", rt.Name(), err)
		return
	}

	// A tick counts as a heartbeat too.
	record := s.activityRecord(rt.Snapshot(), message, now)
	if err := s.statuses.UpsertHeartbeat(ctx, record); err != nil {
		logger.ErrorCtx(ctx, "failed to upsert tick status for worker %s: %v", rt.Name(), err)
	}
}

// runHeartbeat performs one heartbeat firing. A stale timer firing after
// stop is a no-op. Heartbeats never touch the tick sequence.
func (s *LifecycleService) runHeartbeat(ctx context.Context, rt *registry.Runtime) {
	if !rt.IsRunning() {
		return
	}

	now := time.Now().UTC()
	message := fmt.Sprintf("Heartbeat at %s", now.Format(time.RFC3339))

	record := s.activityRecord(rt.Snapshot(), message, now)
	if err := s.statuses.UpsertHeartbeat(ctx, record); err != nil {
		logger.ErrorCtx(ctx, "failed to upsert heartbeat for worker %s: %v", rt.Name(), err)
	}
}

// transitionRecord builds the status row a start/stop transition writes.
// last_heartbeat is not part of a transition update.
func (s *LifecycleService) transitionRecord(snap registry.Snapshot, message string) *storemodel.WorkerStatus {
	return &storemodel.WorkerStatus{
		WorkerName:    snap.Name,
		Status:        snap.Status.String(),
		Message:       message,
		LastStartedAt: snap.LastStartedAt,
		LastStoppedAt: snap.LastStoppedAt,
		UpdatedAt:     time.Now().UTC(),
	}
}

// activityRecord builds the status row a periodic activity writes. The
// started/stopped stamps ride along for the first insert but are preserved
// on conflict.
func (s *LifecycleService) activityRecord(snap registry.Snapshot, message string, heartbeat time.Time) *storemodel.WorkerStatus {
	hb := heartbeat
	return &storemodel.WorkerStatus{
		WorkerName:    snap.Name,
		Status:        snap.Status.String(),
		Message:       message,
		LastHeartbeat: &hb,
		LastStartedAt: snap.LastStartedAt,
		LastStoppedAt: snap.LastStoppedAt,
		UpdatedAt:     time.Now().UTC(),
	}
}
