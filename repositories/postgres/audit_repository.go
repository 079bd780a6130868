package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/upb/audit-trail/models"
	"github.com/upb/audit-trail/repositories"
	"go.uber.org/zap"
)

const auditColumns = `id, timestamp, user_id, user_role, action, resource_type, resource_id,
		status, compliance_tag, ip_address, session_id, metadata, old_value, new_value, tx_id`

// AuditRepository implements the repositories.AuditRepository interface.
// Rows are returned in insertion order (seq).
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new audit entry
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	query := `
		INSERT INTO audit_entries (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		entry.ID,
		entry.Timestamp,
		entry.UserID,
		nullString(entry.UserRole),
		entry.Action,
		nullString(entry.ResourceType),
		nullString(entry.ResourceID),
		nullString(entry.Status),
		nullString(entry.ComplianceTag),
		nullString(entry.IPAddress),
		nullString(entry.SessionID),
		nullJSON(entry.Metadata),
		nullJSON(entry.OldValue),
		nullJSON(entry.NewValue),
		nullString(entry.TxID),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("audit entry %s: %w", entry.ID, repositories.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	r.logger.Debug("audit entry inserted", zap.String("id", entry.ID), zap.String("action", string(entry.Action)))
	return nil
}

// GetByID retrieves an audit entry by ID
func (r *AuditRepository) GetByID(ctx context.Context, id string) (*models.AuditEntry, error) {
	entries, err := r.query(ctx, `SELECT `+auditColumns+` FROM audit_entries WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("audit entry %s: %w", id, repositories.ErrNotFound)
	}
	return entries[0], nil
}

// List returns all entries
func (r *AuditRepository) List(ctx context.Context) ([]*models.AuditEntry, error) {
	return r.query(ctx, `SELECT `+auditColumns+` FROM audit_entries ORDER BY seq`)
}

// ListByUser returns entries for a user
func (r *AuditRepository) ListByUser(ctx context.Context, userID string) ([]*models.AuditEntry, error) {
	return r.query(ctx, `SELECT `+auditColumns+` FROM audit_entries WHERE user_id = $1 ORDER BY seq`, userID)
}

// ListByAction returns entries for an action
func (r *AuditRepository) ListByAction(ctx context.Context, action models.AuditAction) ([]*models.AuditEntry, error) {
	return r.query(ctx, `SELECT `+auditColumns+` FROM audit_entries WHERE action = $1 ORDER BY seq`, action)
}

// ListByDateRange returns entries with start <= timestamp <= end
func (r *AuditRepository) ListByDateRange(ctx context.Context, start, end int64) ([]*models.AuditEntry, error) {
	if start > end {
		return []*models.AuditEntry{}, nil
	}
	return r.query(ctx,
		`SELECT `+auditColumns+` FROM audit_entries WHERE timestamp >= $1 AND timestamp <= $2 ORDER BY seq`,
		start, end)
}

// Exists reports whether the entry is present
func (r *AuditRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := GetExecutor(ctx, r.db).
		QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM audit_entries WHERE id = $1)`, id).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check audit entry: %w", err)
	}
	return exists, nil
}

func (r *AuditRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.AuditEntry, error) {
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.AuditEntry, 0)
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}

func scanAuditEntry(rows *sql.Rows) (*models.AuditEntry, error) {
	var (
		entry                              models.AuditEntry
		userRole, resourceType, resourceID sql.NullString
		status, complianceTag, ipAddress   sql.NullString
		sessionID, txID                    sql.NullString
		metadata, oldValue, newValue       []byte
	)
	err := rows.Scan(
		&entry.ID,
		&entry.Timestamp,
		&entry.UserID,
		&userRole,
		&entry.Action,
		&resourceType,
		&resourceID,
		&status,
		&complianceTag,
		&ipAddress,
		&sessionID,
		&metadata,
		&oldValue,
		&newValue,
		&txID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit entry: %w", err)
	}

	entry.UserRole = userRole.String
	entry.ResourceType = resourceType.String
	entry.ResourceID = resourceID.String
	entry.Status = status.String
	entry.ComplianceTag = complianceTag.String
	entry.IPAddress = ipAddress.String
	entry.SessionID = sessionID.String
	entry.TxID = txID.String
	entry.Metadata = rawJSON(metadata)
	entry.OldValue = rawJSON(oldValue)
	entry.NewValue = rawJSON(newValue)
	return &entry, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullJSON maps an absent opaque value to SQL NULL
func nullJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}
