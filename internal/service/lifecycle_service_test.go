package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workpulse/internal/registry"
	"workpulse/pkg/constants"
	storemodel "workpulse/pkg/store/mysql/model"
)

func newTestService(names ...string) (*LifecycleService, *registry.Registry, *fakeStatusRepo, *fakeLogRepo) {
	reg := registry.NewRegistry()
	statuses := newFakeStatusRepo()
	logs := newFakeLogRepo()
	// Hour-long intervals so scheduled timers never fire inside a test;
	// tick behavior is exercised by calling the activity bodies directly.
	svc := NewLifecycleService(reg, statuses, logs, names, time.Hour, time.Hour)
	return svc, reg, statuses, logs
}

func TestStartThenStop(t *testing.T) {
	svc, _, statuses, logs := newTestService("alpha")
	ctx := context.Background()

	started, err := svc.Start(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", started.WorkerName)
	assert.Equal(t, constants.WorkerStatusRunning.String(), started.Status)
	assert.Equal(t, constants.StatusMessageRunning, started.Message)
	require.NotNil(t, started.LastStartedAt)
	assert.Nil(t, started.LastStoppedAt)

	stopped, err := svc.Stop(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, constants.WorkerStatusStopped.String(), stopped.Status)
	assert.Equal(t, constants.StatusMessageStopped, stopped.Message)
	require.NotNil(t, stopped.LastStartedAt)
	require.NotNil(t, stopped.LastStoppedAt)
	assert.False(t, stopped.LastStoppedAt.Before(*stopped.LastStartedAt))

	assert.Equal(t, 1, logs.countByMessage("Worker alpha started."))
	assert.Equal(t, 1, logs.countByMessage("Worker alpha stopped."))
	assert.Len(t, logs.all(), 2)

	row := statuses.row("alpha")
	require.NotNil(t, row)
	assert.Equal(t, constants.WorkerStatusStopped.String(), row.Status)
}

func TestStartStopLogLevelsAndMetadata(t *testing.T) {
	svc, _, _, logs := newTestService("alpha")
	ctx := context.Background()

	_, err := svc.Start(ctx, "alpha")
	require.NoError(t, err)
	_, err = svc.Stop(ctx, "alpha")
	require.NoError(t, err)

	entries := logs.all()
	require.Len(t, entries, 2)

	assert.Equal(t, constants.LogLevelInfo.String(), entries[0].Level)
	assert.Equal(t, storemodel.JSONMap{"event": "started"}, entries[0].Metadata)

	assert.Equal(t, constants.LogLevelWarning.String(), entries[1].Level)
	assert.Equal(t, storemodel.JSONMap{"event": "stopped"}, entries[1].Metadata)
}

func TestStartTwiceIsIdempotent(t *testing.T) {
	svc, reg, statuses, logs := newTestService("alpha")
	ctx := context.Background()

	_, err := svc.Start(ctx, "alpha")
	require.NoError(t, err)

	rt := reg.GetOrCreate("alpha")
	svc.runLogTick(ctx, rt)
	require.Equal(t, int64(1), rt.Snapshot().Sequence)

	again, err := svc.Start(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusMessageAlreadyRunning, again.Message)
	assert.Equal(t, constants.WorkerStatusRunning.String(), again.Status)

	// The second call performed no transition: one started entry, and the
	// sequence keeps counting rather than resetting.
	assert.Equal(t, 1, logs.countByMessage("Worker alpha started."))
	svc.runLogTick(ctx, rt)
	assert.Equal(t, int64(2), rt.Snapshot().Sequence)

	// The idempotent upsert still landed.
	row := statuses.row("alpha")
	require.NotNil(t, row)
	assert.Equal(t, constants.StatusMessageAlreadyRunning, row.Message)
}

func TestStopOnNeverStartedWorker(t *testing.T) {
	svc, _, statuses, logs := newTestService("alpha")
	ctx := context.Background()

	row, err := svc.Stop(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, constants.WorkerStatusStopped.String(), row.Status)
	assert.Equal(t, constants.StatusMessageAlreadyStopped, row.Message)
	require.NotNil(t, row.LastStoppedAt, "stop always stamps lastStoppedAt")
	assert.Nil(t, row.LastStartedAt)

	assert.Empty(t, logs.all(), "no stopped log entry for a worker that never ran")
	require.NotNil(t, statuses.row("alpha"))
}

func TestUnknownWorkerNeverTouchesRegistryOrStore(t *testing.T) {
	svc, reg, statuses, logs := newTestService("alpha")
	ctx := context.Background()

	_, err := svc.Start(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUnknownWorker)

	_, err = svc.Stop(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUnknownWorker)

	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, statuses.rows)
	assert.Empty(t, logs.all())
}

func TestStartStoreFailureLeavesWorkerRunning(t *testing.T) {
	svc, reg, _, logs := newTestService("alpha")
	ctx := context.Background()

	logs.failInsert = true
	_, err := svc.Start(ctx, "alpha")
	require.Error(t, err)

	// At-least-started semantics: the runtime is running with timers
	// active even though the synchronous write failed.
	assert.True(t, reg.GetOrCreate("alpha").IsRunning())
}

func TestLogTickSequenceAndLevels(t *testing.T) {
	svc, reg, statuses, logs := newTestService("alpha")
	ctx := context.Background()

	_, err := svc.Start(ctx, "alpha")
	require.NoError(t, err)
	rt := reg.GetOrCreate("alpha")

	expectedLevels := []string{"warning", "error", "info", "warning", "error", "info"}
	for i := 0; i < len(expectedLevels); i++ {
		svc.runLogTick(ctx, rt)
	}

	entries := logs.entriesWithPrefix("Worker alpha emitted log #")
	require.Len(t, entries, len(expectedLevels))
	for i, entry := range entries {
		assert.Equal(t, expectedLevels[i], entry.Level, "level for sequence %d", i+1)
		assert.Equal(t, storemodel.JSONMap{"sequence": int64(i + 1), "sample": true}, entry.Metadata)
	}

	assert.Equal(t, "Worker alpha emitted log #3.", entries[2].Message)
	assert.Equal(t, int64(len(expectedLevels)), rt.Snapshot().Sequence)

	// The tick writes through to the status row: tick message plus a
	// heartbeat stamp.
	row := statuses.row("alpha")
	require.NotNil(t, row)
	assert.Equal(t, "Worker alpha emitted log #6.", row.Message)
	require.NotNil(t, row.LastHeartbeat)
}

func TestLogTickSkipsWhileGuardEngaged(t *testing.T) {
	svc, reg, _, logs := newTestService("alpha")
	ctx := context.Background()

	_, err := svc.Start(ctx, "alpha")
	require.NoError(t, err)
	rt := reg.GetOrCreate("alpha")

	require.True(t, rt.TryBeginTick())
	svc.runLogTick(ctx, rt)
	svc.runLogTick(ctx, rt)
	rt.EndTick()

	assert.Equal(t, int64(0), rt.Snapshot().Sequence, "suppressed firings never advance the sequence")
	assert.Empty(t, logs.entriesWithPrefix("Worker alpha emitted log #"))

	svc.runLogTick(ctx, rt)
	assert.Equal(t, int64(1), rt.Snapshot().Sequence, "guard releases after the in-flight tick")
}

func TestLogTickSwallowsStoreErrors(t *testing.T) {
	svc, reg, statuses, logs := newTestService("alpha")
	ctx := context.Background()

	_, err := svc.Start(ctx, "alpha")
	require.NoError(t, err)
	rt := reg.GetOrCreate("alpha")

	logs.failInsert = true
	svc.runLogTick(ctx, rt)
	assert.Equal(t, int64(1), rt.Snapshot().Sequence, "sequence advances even when the write fails")
	assert.Equal(t, 0, statuses.activityUpserts, "status upsert is skipped when the log insert fails")

	logs.failInsert = false
	svc.runLogTick(ctx, rt)
	assert.Equal(t, int64(2), rt.Snapshot().Sequence)
	assert.Equal(t, 1, statuses.activityUpserts)

	require.True(t, rt.TryBeginTick(), "guard must be released after a failed tick")
	rt.EndTick()
}

func TestHeartbeatUpdatesOnlyHeartbeatColumns(t *testing.T) {
	svc, reg, statuses, _ := newTestService("alpha")
	ctx := context.Background()

	started, err := svc.Start(ctx, "alpha")
	require.NoError(t, err)
	rt := reg.GetOrCreate("alpha")

	svc.runHeartbeat(ctx, rt)

	assert.Equal(t, int64(0), rt.Snapshot().Sequence, "heartbeats never touch the sequence")

	row := statuses.row("alpha")
	require.NotNil(t, row)
	assert.Contains(t, row.Message, "Heartbeat at ")
	require.NotNil(t, row.LastHeartbeat)
	require.NotNil(t, row.LastStartedAt)
	assert.Equal(t, started.LastStartedAt.Unix(), row.LastStartedAt.Unix(), "heartbeat preserves last_started_at")
	assert.Equal(t, constants.WorkerStatusRunning.String(), row.Status)
}

func TestHeartbeatNoOpWhenStopped(t *testing.T) {
	svc, reg, statuses, _ := newTestService("alpha")
	ctx := context.Background()

	rt := reg.GetOrCreate("alpha")
	svc.runHeartbeat(ctx, rt)

	assert.Equal(t, 0, statuses.activityUpserts, "stale heartbeat firing after stop writes nothing")
	assert.Nil(t, statuses.row("alpha"))
}

func TestTransitionUpsertPreservesHeartbeat(t *testing.T) {
	svc, reg, statuses, _ := newTestService("alpha")
	ctx := context.Background()

	_, err := svc.Start(ctx, "alpha")
	require.NoError(t, err)
	rt := reg.GetOrCreate("alpha")
	svc.runHeartbeat(ctx, rt)

	row := statuses.row("alpha")
	require.NotNil(t, row.LastHeartbeat)
	heartbeatAt := *row.LastHeartbeat

	// The idempotent start writes a transition row; the stored heartbeat
	// must survive it.
	_, err = svc.Start(ctx, "alpha")
	require.NoError(t, err)

	row = statuses.row("alpha")
	require.NotNil(t, row.LastHeartbeat)
	assert.Equal(t, heartbeatAt, *row.LastHeartbeat)
	assert.Equal(t, constants.StatusMessageAlreadyRunning, row.Message)
}

func TestConcurrentStartStopDistinctNames(t *testing.T) {
	svc, _, _, _ := newTestService("alpha", "beta", "gamma", "delta")
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for _, name := range []string{"alpha", "beta", "gamma", "delta"} {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			if _, err := svc.Start(ctx, n); err != nil {
				errs <- err
			}
			if _, err := svc.Stop(ctx, n); err != nil {
				errs <- err
			}
		}(name)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConcurrentSameNameSerializes(t *testing.T) {
	svc, reg, _, logs := newTestService("alpha")
	ctx := context.Background()

	const rounds = 16
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = svc.Start(ctx, "alpha")
		}()
		go func() {
			defer wg.Done()
			_, _ = svc.Stop(ctx, "alpha")
		}()
	}
	wg.Wait()

	// Whatever the interleaving, the final stop leaves a clean state.
	_, err := svc.Stop(ctx, "alpha")
	require.NoError(t, err)
	rt := reg.GetOrCreate("alpha")
	assert.False(t, rt.IsRunning())

	// Started and stopped entries pair up: every real transition logged
	// exactly once, so counts differ by at most the final stop.
	startedCount := logs.countByMessage("Worker alpha started.")
	stoppedCount := logs.countByMessage("Worker alpha stopped.")
	assert.Equal(t, startedCount, stoppedCount)
}

func TestStopAllSchedulesWritesNothing(t *testing.T) {
	svc, reg, statuses, logs := newTestService("alpha", "beta")
	ctx := context.Background()

	_, err := svc.Start(ctx, "alpha")
	require.NoError(t, err)
	_, err = svc.Start(ctx, "beta")
	require.NoError(t, err)

	logsBefore := len(logs.all())
	svc.StopAllSchedules()

	// Schedules are gone but no state transition happened: the runtimes
	// still say running and no stop entry or status row was written.
	assert.True(t, reg.GetOrCreate("alpha").IsRunning())
	assert.True(t, reg.GetOrCreate("beta").IsRunning())
	assert.Len(t, logs.all(), logsBefore)
	assert.Equal(t, "running", statuses.row("alpha").Status)
	assert.Equal(t, "running", statuses.row("beta").Status)
}

func TestRunScheduleFiresAndStops(t *testing.T) {
	svc, _, _, _ := newTestService("alpha")

	var fires atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.runSchedule(ctx, 5*time.Millisecond, func() { fires.Add(1) })
		close(done)
	}()

	require.Eventually(t, func() bool { return fires.Load() >= 2 },
		2*time.Second, 5*time.Millisecond, "schedule should fire repeatedly")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("schedule loop did not stop after cancel")
	}
}

func TestListStatuses(t *testing.T) {
	svc, _, _, _ := newTestService("alpha", "beta")
	ctx := context.Background()

	_, err := svc.Start(ctx, "beta")
	require.NoError(t, err)
	_, err = svc.Stop(ctx, "alpha")
	require.NoError(t, err)

	rows, err := svc.ListStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "alpha", rows[0].WorkerName)
	assert.Equal(t, "beta", rows[1].WorkerName)
	assert.Equal(t, constants.WorkerStatusStopped.String(), rows[0].Status)
	assert.Equal(t, constants.WorkerStatusRunning.String(), rows[1].Status)
}

func TestListRecentLogs(t *testing.T) {
	svc, _, _, _ := newTestService("alpha")
	ctx := context.Background()

	_, err := svc.Start(ctx, "alpha")
	require.NoError(t, err)
	_, err = svc.Stop(ctx, "alpha")
	require.NoError(t, err)

	entries, err := svc.ListRecentLogs(ctx, "alpha", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Newest first
	assert.Equal(t, "Worker alpha stopped.", entries[0].Message)
	assert.Equal(t, "Worker alpha started.", entries[1].Message)
}

func TestWorkerNamesReturnsConfigurationOrder(t *testing.T) {
	svc, _, _, _ := newTestService("gamma", "alpha", "beta")
	assert.Equal(t, []string{"gamma", "alpha", "beta"}, svc.WorkerNames())
}

func TestReportHeartbeatLag(t *testing.T) {
	svc, _, statuses, _ := newTestService("alpha")
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	statuses.staleRows = []*storemodel.WorkerStatus{
		{WorkerName: "alpha", Status: "running", LastHeartbeat: &past},
		{WorkerName: "beta", Status: "running"},
	}

	require.NoError(t, svc.ReportHeartbeatLag(ctx))

	statuses.failStale = true
	assert.Error(t, svc.ReportHeartbeatLag(ctx))
}

// --- Fakes ---

type fakeStatusRepo struct {
	mu              sync.Mutex
	rows            map[string]*storemodel.WorkerStatus
	activityUpserts int
	failUpsert      bool
	staleRows       []*storemodel.WorkerStatus
	failStale       bool
}

func newFakeStatusRepo() *fakeStatusRepo {
	return &fakeStatusRepo{rows: make(map[string]*storemodel.WorkerStatus)}
}

func (f *fakeStatusRepo) row(name string) *storemodel.WorkerStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rows[name]; ok {
		cp := *r
		return &cp
	}
	return nil
}

// Upsert mirrors the transition flavor: heartbeat column untouched.
func (f *fakeStatusRepo) Upsert(ctx context.Context, status *storemodel.WorkerStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpsert {
		return errors.New("status store unavailable")
	}
	existing, ok := f.rows[status.WorkerName]
	if !ok {
		cp := *status
		f.rows[status.WorkerName] = &cp
		return nil
	}
	existing.Status = status.Status
	existing.Message = status.Message
	existing.LastStartedAt = status.LastStartedAt
	existing.LastStoppedAt = status.LastStoppedAt
	existing.UpdatedAt = status.UpdatedAt
	return nil
}

// UpsertHeartbeat mirrors the activity flavor: started/stopped preserved.
func (f *fakeStatusRepo) UpsertHeartbeat(ctx context.Context, status *storemodel.WorkerStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpsert {
		return errors.New("status store unavailable")
	}
	f.activityUpserts++
	existing, ok := f.rows[status.WorkerName]
	if !ok {
		cp := *status
		f.rows[status.WorkerName] = &cp
		return nil
	}
	existing.Status = status.Status
	existing.Message = status.Message
	existing.LastHeartbeat = status.LastHeartbeat
	existing.UpdatedAt = status.UpdatedAt
	return nil
}

func (f *fakeStatusRepo) List(ctx context.Context) ([]*storemodel.WorkerStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.rows))
	for name := range f.rows {
		names = append(names, name)
	}
	sort.Strings(names)
	result := make([]*storemodel.WorkerStatus, 0, len(names))
	for _, name := range names {
		cp := *f.rows[name]
		result = append(result, &cp)
	}
	return result, nil
}

func (f *fakeStatusRepo) ListStale(ctx context.Context, status string, heartbeatBefore time.Time) ([]*storemodel.WorkerStatus, error) {
	if f.failStale {
		return nil, errors.New("status store unavailable")
	}
	return f.staleRows, nil
}

type fakeLogRepo struct {
	mu         sync.Mutex
	entries    []*storemodel.ScriptLog
	failInsert bool
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{}
}

func (f *fakeLogRepo) Insert(ctx context.Context, entry *storemodel.ScriptLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert {
		return errors.New("log sink unavailable")
	}
	cp := *entry
	cp.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, &cp)
	return nil
}

func (f *fakeLogRepo) ListRecent(ctx context.Context, scriptName string, limit int) ([]*storemodel.ScriptLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	result := make([]*storemodel.ScriptLog, 0, limit)
	for i := len(f.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if scriptName != "" && f.entries[i].ScriptName != scriptName {
			continue
		}
		cp := *f.entries[i]
		result = append(result, &cp)
	}
	return result, nil
}

func (f *fakeLogRepo) all() []*storemodel.ScriptLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*storemodel.ScriptLog(nil), f.entries...)
}

func (f *fakeLogRepo) countByMessage(message string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, entry := range f.entries {
		if entry.Message == message {
			count++
		}
	}
	return count
}

func (f *fakeLogRepo) entriesWithPrefix(prefix string) []*storemodel.ScriptLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*storemodel.ScriptLog
	for _, entry := range f.entries {
		if len(entry.Message) >= len(prefix) && entry.Message[:len(prefix)] == prefix {
			cp := *entry
			result = append(result, &cp)
		}
	}
	return result
}

