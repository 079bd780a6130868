package jsonfile

import (
	"context"
	"fmt"

	"github.com/upb/audit-trail/models"
	"github.com/upb/audit-trail/repositories"
	"go.uber.org/zap"
)

// AuditRepository implements repositories.AuditRepository on the audits collection.
// Queries are linear scans in storage order.
type AuditRepository struct {
	store  *Store
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(store *Store, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		store:  store,
		logger: logger,
	}
}

// Create appends a new audit entry
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	err := Mutate(ctx, r.store, AuditsCollection, func(entries []models.AuditEntry) ([]models.AuditEntry, error) {
		for i := range entries {
			if entries[i].ID == entry.ID {
				return nil, fmt.Errorf("audit entry %s: %w", entry.ID, repositories.ErrAlreadyExists)
			}
		}
		return append(entries, *entry), nil
	})
	if err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	r.logger.Debug("audit entry created",
		zap.String("id", entry.ID),
		zap.String("user_id", entry.UserID),
		zap.String("action", string(entry.Action)),
	)
	return nil
}

// GetByID retrieves the first audit entry with the given ID
func (r *AuditRepository) GetByID(ctx context.Context, id string) (*models.AuditEntry, error) {
	entries, err := r.filter(ctx, func(e *models.AuditEntry) bool { return e.ID == id })
	if err != nil {
		return nil, fmt.Errorf("failed to get audit entry: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("audit entry %s: %w", id, repositories.ErrNotFound)
	}
	return entries[0], nil
}

// List returns all entries in insertion order
func (r *AuditRepository) List(ctx context.Context) ([]*models.AuditEntry, error) {
	return r.filter(ctx, func(*models.AuditEntry) bool { return true })
}

// ListByUser returns entries recorded for userID
func (r *AuditRepository) ListByUser(ctx context.Context, userID string) ([]*models.AuditEntry, error) {
	return r.filter(ctx, func(e *models.AuditEntry) bool { return e.UserID == userID })
}

// ListByAction returns entries with the given action
func (r *AuditRepository) ListByAction(ctx context.Context, action models.AuditAction) ([]*models.AuditEntry, error) {
	return r.filter(ctx, func(e *models.AuditEntry) bool { return e.Action == action })
}

// ListByDateRange returns entries with start <= timestamp <= end.
// An inverted window matches nothing.
func (r *AuditRepository) ListByDateRange(ctx context.Context, start, end int64) ([]*models.AuditEntry, error) {
	return r.filter(ctx, func(e *models.AuditEntry) bool { return e.InRange(start, end) })
}

// Exists reports whether an entry with the given ID is present
func (r *AuditRepository) Exists(ctx context.Context, id string) (bool, error) {
	entries, err := r.filter(ctx, func(e *models.AuditEntry) bool { return e.ID == id })
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}

func (r *AuditRepository) filter(ctx context.Context, keep func(*models.AuditEntry) bool) ([]*models.AuditEntry, error) {
	entries, err := Load[models.AuditEntry](ctx, r.store, AuditsCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	result := make([]*models.AuditEntry, 0)
	for i := range entries {
		if keep(&entries[i]) {
			result = append(result, &entries[i])
		}
	}
	return result, nil
}
