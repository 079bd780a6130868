package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/upb/audit-trail/models"
	"github.com/upb/audit-trail/repositories"
	"go.uber.org/zap"
)

// AuditRepository implements repositories.AuditRepository on the audit chaincode
type AuditRepository struct {
	contract Contract
	logger   *zap.Logger
}

// NewAuditRepository creates a ledger-backed audit repository
func NewAuditRepository(contract Contract, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		contract: contract,
		logger:   logger,
	}
}

// Create submits LogAudit and refreshes entry with the committed record,
// which carries the ledger timestamp and transaction ID.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	_, txID, err := r.contract.Submit(ctx, "LogAudit", logAuditArgs(entry)...)
	if err != nil {
		if isAlreadyExists(err) {
			return fmt.Errorf("audit entry %s: %w", entry.ID, repositories.ErrAlreadyExists)
		}
		return upstream("LogAudit", err)
	}

	stored, err := r.GetByID(ctx, entry.ID)
	if err != nil {
		return err
	}
	if stored.TxID == "" {
		stored.TxID = txID
	}
	*entry = *stored

	r.logger.Debug("audit entry committed", zap.String("id", entry.ID), zap.String("tx_id", txID))
	return nil
}

// GetByID evaluates GetAudit
func (r *AuditRepository) GetByID(ctx context.Context, id string) (*models.AuditEntry, error) {
	data, err := r.contract.Evaluate(ctx, "GetAudit", id)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("audit entry %s: %w", id, repositories.ErrNotFound)
		}
		return nil, upstream("GetAudit", err)
	}

	var entry chainAuditEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, upstream("GetAudit", fmt.Errorf("invalid response: %w", err))
	}
	return entry.toModel(), nil
}

// List evaluates GetAllAudits
func (r *AuditRepository) List(ctx context.Context) ([]*models.AuditEntry, error) {
	return r.evaluateList(ctx, "GetAllAudits")
}

// ListByUser evaluates QueryAuditsByUser
func (r *AuditRepository) ListByUser(ctx context.Context, userID string) ([]*models.AuditEntry, error) {
	return r.evaluateList(ctx, "QueryAuditsByUser", userID)
}

// ListByAction evaluates QueryAuditsByAction
func (r *AuditRepository) ListByAction(ctx context.Context, action models.AuditAction) ([]*models.AuditEntry, error) {
	return r.evaluateList(ctx, "QueryAuditsByAction", string(action))
}

// ListByDateRange evaluates QueryAuditsByDateRange. The chaincode rejects an
// inverted window, so that case is answered locally with no entries.
func (r *AuditRepository) ListByDateRange(ctx context.Context, start, end int64) ([]*models.AuditEntry, error) {
	if start > end {
		return []*models.AuditEntry{}, nil
	}
	return r.evaluateList(ctx, "QueryAuditsByDateRange", formatMillis(start), formatMillis(end))
}

// Exists evaluates AuditExists
func (r *AuditRepository) Exists(ctx context.Context, id string) (bool, error) {
	data, err := r.contract.Evaluate(ctx, "AuditExists", id)
	if err != nil {
		return false, upstream("AuditExists", err)
	}
	exists, err := strconv.ParseBool(string(data))
	if err != nil {
		return false, upstream("AuditExists", fmt.Errorf("invalid response %q", data))
	}
	return exists, nil
}

func (r *AuditRepository) evaluateList(ctx context.Context, fn string, args ...string) ([]*models.AuditEntry, error) {
	data, err := r.contract.Evaluate(ctx, fn, args...)
	if err != nil {
		return nil, upstream(fn, err)
	}

	var chain []*chainAuditEntry
	if len(data) > 0 {
		if err := json.Unmarshal(data, &chain); err != nil {
			return nil, upstream(fn, fmt.Errorf("invalid response: %w", err))
		}
	}

	entries := make([]*models.AuditEntry, 0, len(chain))
	for _, c := range chain {
		if c == nil {
			continue
		}
		entries = append(entries, c.toModel())
	}
	return entries, nil
}
