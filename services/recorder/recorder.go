package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/upb/audit-trail/internal/observability"
	"github.com/upb/audit-trail/internal/shared"
	"github.com/upb/audit-trail/models"
	"go.uber.org/zap"
)

var (
	// ErrNotStarted is returned when events are recorded before Start or after Stop
	ErrNotStarted = errors.New("recorder not started")

	// ErrBufferFull is returned when the event buffer cannot take another entry
	ErrBufferFull = errors.New("recorder buffer full")
)

// Sink persists audit entries
type Sink interface {
	Create(ctx context.Context, entry *models.AuditEntry) error
}

// Recorder writes the service's own audit entries in the background.
// Record never blocks the request path; a full buffer drops the entry.
type Recorder struct {
	sink         Sink
	metrics      *observability.Metrics
	logger       *zap.Logger
	now          func() time.Time
	events       chan *models.AuditEntry
	workerCount  int
	bufferSize   int
	writeTimeout time.Duration
	wg           sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool
}

// Config holds configuration for the Recorder
type Config struct {
	BufferSize   int           // Size of the event buffer channel
	WorkerCount  int           // Number of concurrent workers
	WriteTimeout time.Duration // Per-entry persistence timeout
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:   256,
		WorkerCount:  2,
		WriteTimeout: 5 * time.Second,
	}
}

// New creates a Recorder. Call Start before recording.
func New(sink Sink, metrics *observability.Metrics, logger *zap.Logger, cfg Config) *Recorder {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}
	return &Recorder{
		sink:         sink,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
		events:       make(chan *models.AuditEntry, cfg.BufferSize),
		workerCount:  cfg.WorkerCount,
		bufferSize:   cfg.BufferSize,
		writeTimeout: cfg.WriteTimeout,
	}
}

// Start starts the background workers
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("recorder already started")
	}

	for i := 0; i < r.workerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.started = true
	r.logger.Info("started audit recorder",
		zap.Int("worker_count", r.workerCount),
		zap.Int("buffer_size", r.bufferSize))

	return nil
}

// Stop stops accepting entries and waits for the buffered ones to be written
func (r *Recorder) Stop(timeout time.Duration) error {
	r.mu.Lock()
	if !r.started || r.stopped {
		r.mu.Unlock()
		return ErrNotStarted
	}
	r.stopped = true
	pending := len(r.events)
	close(r.events)
	r.mu.Unlock()

	r.logger.Info("stopping audit recorder", zap.Int("pending_events", pending))

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("audit recorder stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("audit recorder stop timeout after %v", timeout)
	}
}

// Record queues an entry without blocking
func (r *Recorder) Record(entry *models.AuditEntry) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.started || r.stopped {
		return ErrNotStarted
	}

	select {
	case r.events <- entry:
		return nil
	default:
		r.metrics.IncrementRecorderDropped()
		r.logger.Warn("audit recorder buffer full, dropping entry",
			zap.String("action", string(entry.Action)),
			zap.String("resource_id", entry.ResourceID))
		return ErrBufferFull
	}
}

func (r *Recorder) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("audit recorder worker started", zap.Int("worker_id", id))

	for entry := range r.events {
		if err := r.write(entry); err != nil {
			r.logger.Error("failed to record audit entry",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(entry.Action)),
				zap.String("resource_id", entry.ResourceID))
		}
	}

	r.logger.Debug("audit recorder worker stopped", zap.Int("worker_id", id))
}

func (r *Recorder) write(entry *models.AuditEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	if err := r.sink.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to persist audit entry: %w", err)
	}
	r.metrics.IncrementAuditLogged(string(entry.Action))
	return nil
}

// GetStats returns statistics about the recorder
func (r *Recorder) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{
		BufferSize:    r.bufferSize,
		PendingEvents: len(r.events),
		WorkerCount:   r.workerCount,
		Started:       r.started && !r.stopped,
	}
}

// Stats represents recorder statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
}

// Convenience methods for the user lifecycle

// UserRegistered records the creation of a user
func (r *Recorder) UserRegistered(ctx context.Context, user *models.User) {
	entry := r.newEntry(ctx, models.ActionCreate, user).
		WithValues(nil, map[string]interface{}{
			"username":     user.Username,
			"role":         user.Role,
			"organization": user.Organization,
		})
	r.submit(entry)
}

// UserRoleChanged records a role update
func (r *Recorder) UserRoleChanged(ctx context.Context, user *models.User, previous models.UserRole) {
	entry := r.newEntry(ctx, models.ActionUpdate, user).
		WithValues(map[string]interface{}{"role": previous}, map[string]interface{}{"role": user.Role})
	r.submit(entry)
}

// UserDeactivated records a soft delete
func (r *Recorder) UserDeactivated(ctx context.Context, user *models.User) {
	entry := r.newEntry(ctx, models.ActionDelete, user).
		WithValues(map[string]interface{}{"active": true}, map[string]interface{}{"active": false})
	r.submit(entry)
}

func (r *Recorder) newEntry(ctx context.Context, action models.AuditAction, user *models.User) *models.AuditEntry {
	actor := shared.Actor(ctx)
	entry := models.NewAuditEntry(actor, action, r.now()).WithResource("USER", user.ID)
	entry.Status = models.StatusSuccess
	if actor == shared.SystemActor {
		entry.UserRole = "SYSTEM"
	}
	if id := shared.RequestID(ctx); id != "" {
		entry.SessionID = id
	}
	return entry
}

func (r *Recorder) submit(entry *models.AuditEntry) {
	if err := r.Record(entry); err != nil && !errors.Is(err, ErrBufferFull) {
		r.logger.Debug("audit entry not recorded", zap.Error(err), zap.String("action", string(entry.Action)))
	}
}
