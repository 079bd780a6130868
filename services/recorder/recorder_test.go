package recorder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/audit-trail/internal/observability"
	"github.com/upb/audit-trail/internal/shared"
	"github.com/upb/audit-trail/models"
	"go.uber.org/zap"
)

// MockSink is a mock implementation of Sink
type MockSink struct {
	mock.Mock
	mu      sync.Mutex
	entries []*models.AuditEntry
}

func (m *MockSink) Create(ctx context.Context, entry *models.AuditEntry) error {
	args := m.Called(ctx, entry)
	m.mu.Lock()
	defer m.mu.Unlock()
	if args.Error(0) == nil {
		m.entries = append(m.entries, entry)
	}
	return args.Error(0)
}

func (m *MockSink) Entries() []*models.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.AuditEntry(nil), m.entries...)
}

func TestRecorder_StartStop(t *testing.T) {
	sink := new(MockSink)
	r := New(sink, nil, zap.NewNop(), Config{BufferSize: 10, WorkerCount: 2})

	require.NoError(t, r.Start())

	stats := r.GetStats()
	assert.True(t, stats.Started)
	assert.Equal(t, 2, stats.WorkerCount)
	assert.Equal(t, 10, stats.BufferSize)

	assert.Error(t, r.Start())

	require.NoError(t, r.Stop(5*time.Second))
	assert.False(t, r.GetStats().Started)
	assert.ErrorIs(t, r.Stop(time.Second), ErrNotStarted)
}

func TestRecorder_RecordRequiresStart(t *testing.T) {
	r := New(new(MockSink), nil, zap.NewNop(), DefaultConfig())

	err := r.Record(models.NewAuditEntry("u1", models.ActionCreate, time.Now()))
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, r.Start())
	require.NoError(t, r.Stop(time.Second))

	err = r.Record(models.NewAuditEntry("u1", models.ActionCreate, time.Now()))
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestRecorder_StopDrainsBuffer(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	sink := new(MockSink)
	sink.On("Create", mock.Anything, mock.Anything).Return(nil)

	r := New(sink, metrics, zap.NewNop(), Config{BufferSize: 100, WorkerCount: 3})
	require.NoError(t, r.Start())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				assert.NoError(t, r.Record(models.NewAuditEntry("u1", models.ActionQuery, time.Now())))
			}
		}()
	}
	wg.Wait()

	require.NoError(t, r.Stop(5*time.Second))

	assert.Len(t, sink.Entries(), 50)
	assert.Equal(t, 50.0, testutil.ToFloat64(metrics.AuditEntriesLogged.WithLabelValues("QUERY")))
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	sink := new(MockSink)

	// no workers, so the buffer is never drained
	r := New(sink, metrics, zap.NewNop(), Config{BufferSize: 1, WorkerCount: 0})
	require.NoError(t, r.Start())

	require.NoError(t, r.Record(models.NewAuditEntry("u1", models.ActionCreate, time.Now())))
	err := r.Record(models.NewAuditEntry("u1", models.ActionCreate, time.Now()))
	assert.ErrorIs(t, err, ErrBufferFull)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecorderDropped))
	assert.Equal(t, 1, r.GetStats().PendingEvents)

	require.NoError(t, r.Stop(time.Second))
	sink.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRecorder_SinkFailureIsLogged(t *testing.T) {
	sink := new(MockSink)
	sink.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	r := New(sink, nil, zap.NewNop(), Config{BufferSize: 4, WorkerCount: 1})
	require.NoError(t, r.Start())
	require.NoError(t, r.Record(models.NewAuditEntry("u1", models.ActionCreate, time.Now())))
	require.NoError(t, r.Stop(5*time.Second))

	sink.AssertNumberOfCalls(t, "Create", 1)
	assert.Empty(t, sink.Entries())
}

func TestRecorder_UserLifecycleEntries(t *testing.T) {
	sink := new(MockSink)
	sink.On("Create", mock.Anything, mock.Anything).Return(nil)

	r := New(sink, nil, zap.NewNop(), Config{BufferSize: 10, WorkerCount: 1})
	fixed := time.UnixMilli(1_700_000_000_000)
	r.now = func() time.Time { return fixed }
	require.NoError(t, r.Start())

	user := &models.User{ID: "user-1", Username: "alice", Role: models.RoleAuditor, Organization: "Org1"}
	adminCtx := shared.WithRequestID(shared.WithActor(context.Background(), "admin-7"), "req-1")

	r.UserRegistered(context.Background(), user)
	r.UserRoleChanged(adminCtx, user, models.RoleUser)
	r.UserDeactivated(adminCtx, user)
	require.NoError(t, r.Stop(5*time.Second))

	entries := sink.Entries()
	require.Len(t, entries, 3)

	byAction := make(map[models.AuditAction]*models.AuditEntry)
	for _, e := range entries {
		byAction[e.Action] = e
	}

	created := byAction[models.ActionCreate]
	require.NotNil(t, created)
	assert.Equal(t, shared.SystemActor, created.UserID)
	assert.Equal(t, "SYSTEM", created.UserRole)
	assert.Equal(t, "USER", created.ResourceType)
	assert.Equal(t, "user-1", created.ResourceID)
	assert.Equal(t, fixed.UnixMilli(), created.Timestamp)
	assert.JSONEq(t, `{"username":"alice","role":"AUDITOR","organization":"Org1"}`, string(created.NewValue))

	updated := byAction[models.ActionUpdate]
	require.NotNil(t, updated)
	assert.Equal(t, "admin-7", updated.UserID)
	assert.Equal(t, "req-1", updated.SessionID)
	assert.JSONEq(t, `{"role":"USER"}`, string(updated.OldValue))
	assert.JSONEq(t, `{"role":"AUDITOR"}`, string(updated.NewValue))

	deleted := byAction[models.ActionDelete]
	require.NotNil(t, deleted)
	assert.JSONEq(t, `{"active":false}`, string(deleted.NewValue))
	assert.Equal(t, models.StatusSuccess, deleted.Status)
}
