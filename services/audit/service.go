package audit

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/upb/audit-trail/internal/observability"
	"github.com/upb/audit-trail/models"
	"github.com/upb/audit-trail/repositories"
	"github.com/upb/audit-trail/services"
	"go.uber.org/zap"
)

var notFoundMessage = services.ErrAuditNotFound.Message

// LogRequest represents a request to append an audit entry
type LogRequest struct {
	ID            string
	UserID        string
	UserRole      string
	Action        models.AuditAction
	ResourceType  string
	ResourceID    string
	Status        string
	ComplianceTag string
	IPAddress     string
	SessionID     string
	OldValue      json.RawMessage
	NewValue      json.RawMessage
	Metadata      json.RawMessage
}

// Window is an optional time window; nil bounds are unbounded
type Window struct {
	Start *int64
	End   *int64
}

// AuditService appends audit entries and answers queries over them
type AuditService struct {
	repo    repositories.AuditRepository
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewAuditService creates a new AuditService
func NewAuditService(repo repositories.AuditRepository, metrics *observability.Metrics, logger *zap.Logger) *AuditService {
	return &AuditService{
		repo:    repo,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Log appends a new audit entry stamped with the current time
func (s *AuditService) Log(ctx context.Context, req LogRequest) (*models.AuditEntry, error) {
	if err := validateLog(req); err != nil {
		return nil, err
	}

	entry := models.NewAuditEntry(req.UserID, req.Action, s.now())
	if req.ID != "" {
		entry.ID = req.ID
	}
	entry.UserRole = req.UserRole
	entry.WithResource(req.ResourceType, req.ResourceID)
	entry.WithRequest(req.IPAddress, req.SessionID)
	entry.Status = req.Status
	if entry.Status == "" {
		entry.Status = models.StatusSuccess
	}
	entry.ComplianceTag = req.ComplianceTag
	entry.OldValue = req.OldValue
	entry.NewValue = req.NewValue
	entry.Metadata = req.Metadata

	if err := s.create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Get returns an audit entry by ID
func (s *AuditService) Get(ctx context.Context, id string) (*models.AuditEntry, error) {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, services.FromRepository(err, notFoundMessage)
	}
	return entry, nil
}

// List returns every entry in storage order
func (s *AuditService) List(ctx context.Context) ([]*models.AuditEntry, error) {
	entries, err := s.repo.List(ctx)
	return s.result(entries, err)
}

// ListByUser returns the entries recorded for userID
func (s *AuditService) ListByUser(ctx context.Context, userID string) ([]*models.AuditEntry, error) {
	entries, err := s.repo.ListByUser(ctx, userID)
	return s.result(entries, err)
}

// ListByAction returns the entries with the given action.
// An action outside the known set simply matches nothing.
func (s *AuditService) ListByAction(ctx context.Context, action models.AuditAction) ([]*models.AuditEntry, error) {
	entries, err := s.repo.ListByAction(ctx, models.AuditAction(strings.ToUpper(string(action))))
	return s.result(entries, err)
}

// ListByDateRange returns entries with start <= timestamp <= end.
// An inverted window yields no entries.
func (s *AuditService) ListByDateRange(ctx context.Context, start, end int64) ([]*models.AuditEntry, error) {
	if err := services.CheckWindow(start, end); err != nil {
		return nil, err
	}
	if start > end {
		return []*models.AuditEntry{}, nil
	}
	entries, err := s.repo.ListByDateRange(ctx, start, end)
	return s.result(entries, err)
}

// Exists reports whether an audit entry exists
func (s *AuditService) Exists(ctx context.Context, id string) (bool, error) {
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return false, services.FromRepository(err, notFoundMessage)
	}
	return exists, nil
}

// Stats aggregates the entries of the window. Absent bounds are reported as 0.
func (s *AuditService) Stats(ctx context.Context, w Window) (*models.AuditStats, error) {
	start, end := int64(0), int64(math.MaxInt64)
	if w.Start != nil {
		start = *w.Start
	}
	if w.End != nil {
		end = *w.End
	}

	var (
		entries []*models.AuditEntry
		err     error
	)
	if w.Start == nil && w.End == nil {
		entries, err = s.List(ctx)
	} else {
		entries, err = s.ListByDateRange(ctx, start, end)
	}
	if err != nil {
		return nil, err
	}

	stats := models.ComputeStats(entries, start, end)
	if w.End == nil {
		stats.EndDate = 0
	}
	return stats, nil
}

// Seed appends fixture entries, skipping IDs that already exist.
// It returns the number of entries written.
func (s *AuditService) Seed(ctx context.Context, entries []*models.AuditEntry) (int, error) {
	written := 0
	for _, e := range entries {
		entry := *e
		if entry.Timestamp == 0 {
			entry.Timestamp = s.now().UnixMilli()
		}
		if entry.Status == "" {
			entry.Status = models.StatusSuccess
		}
		if err := s.create(ctx, &entry); err != nil {
			if services.IsConflictError(err) {
				s.logger.Debug("seed entry already present", zap.String("audit_id", entry.ID))
				continue
			}
			return written, err
		}
		written++
	}
	return written, nil
}

func (s *AuditService) create(ctx context.Context, entry *models.AuditEntry) error {
	if err := s.repo.Create(ctx, entry); err != nil {
		return services.FromRepository(err, notFoundMessage)
	}

	s.metrics.IncrementAuditLogged(string(entry.Action))
	s.logger.Info("audit entry logged",
		zap.String("audit_id", entry.ID),
		zap.String("user_id", entry.UserID),
		zap.String("action", string(entry.Action)))
	return nil
}

func (s *AuditService) result(entries []*models.AuditEntry, err error) ([]*models.AuditEntry, error) {
	if err != nil {
		return nil, services.FromRepository(err, notFoundMessage)
	}
	if entries == nil {
		entries = []*models.AuditEntry{}
	}
	return entries, nil
}

func validateLog(req LogRequest) error {
	missing := make([]string, 0, 2)
	if strings.TrimSpace(req.UserID) == "" {
		missing = append(missing, "userId")
	}
	if req.Action == "" {
		missing = append(missing, "action")
	}
	if len(missing) > 0 {
		return services.NewDomainError(services.ErrorTypeValidation, "missing required fields", nil).
			WithDetail("fields", missing)
	}
	if !req.Action.Valid() {
		return services.NewDomainError(services.ErrorTypeValidation, services.ErrInvalidAction.Message, nil).
			WithDetail("action", string(req.Action))
	}
	if len(req.ID) > 64 {
		return services.Validation("id must be at most 64 characters")
	}
	for field, raw := range map[string]json.RawMessage{"oldValue": req.OldValue, "newValue": req.NewValue, "metadata": req.Metadata} {
		if len(raw) > 0 && !json.Valid(raw) {
			return services.NewDomainError(services.ErrorTypeValidation, "invalid JSON value", nil).
				WithDetail("field", field)
		}
	}
	return nil
}
