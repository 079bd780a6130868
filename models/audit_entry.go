package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	ActionCreate AuditAction = "CREATE"
	ActionQuery  AuditAction = "QUERY"
	ActionUpdate AuditAction = "UPDATE"
	ActionDelete AuditAction = "DELETE"
	ActionVerify AuditAction = "VERIFY"
	ActionRevoke AuditAction = "REVOKE"
	ActionIssue  AuditAction = "ISSUE"
)

// Valid reports whether the action is one of the known actions
func (a AuditAction) Valid() bool {
	switch a {
	case ActionCreate, ActionQuery, ActionUpdate, ActionDelete, ActionVerify, ActionRevoke, ActionIssue:
		return true
	}
	return false
}

// Audit entry outcomes
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// AuditEntry is a single immutable audit trail record
type AuditEntry struct {
	ID            string          `json:"id" db:"id" yaml:"id"`
	Timestamp     int64           `json:"timestamp" db:"timestamp" yaml:"timestamp"` // ms since epoch
	UserID        string          `json:"userId" db:"user_id" yaml:"userId"`
	UserRole      string          `json:"userRole" db:"user_role" yaml:"userRole"`
	Action        AuditAction     `json:"action" db:"action" yaml:"action"`
	ResourceType  string          `json:"resourceType" db:"resource_type" yaml:"resourceType"`
	ResourceID    string          `json:"resourceId" db:"resource_id" yaml:"resourceId"`
	Status        string          `json:"status" db:"status" yaml:"status"`
	ComplianceTag string          `json:"complianceTag,omitempty" db:"compliance_tag" yaml:"complianceTag"`
	IPAddress     string          `json:"ipAddress,omitempty" db:"ip_address" yaml:"ipAddress"`
	SessionID     string          `json:"sessionId,omitempty" db:"session_id" yaml:"sessionId"`
	Metadata      json.RawMessage `json:"metadata,omitempty" db:"metadata" yaml:"-"`
	OldValue      json.RawMessage `json:"oldValue,omitempty" db:"old_value" yaml:"-"`
	NewValue      json.RawMessage `json:"newValue,omitempty" db:"new_value" yaml:"-"`
	TxID          string          `json:"txId,omitempty" db:"tx_id" yaml:"-"` // set by the ledger backend only
}

// TableName returns the table name for the AuditEntry model
func (AuditEntry) TableName() string {
	return "audit_entries"
}

// NewAuditEntry creates a new AuditEntry stamped with the given time
func NewAuditEntry(userID string, action AuditAction, now time.Time) *AuditEntry {
	return &AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: now.UnixMilli(),
		UserID:    userID,
		Action:    action,
	}
}

// WithResource sets the affected resource
func (a *AuditEntry) WithResource(resourceType, resourceID string) *AuditEntry {
	a.ResourceType = resourceType
	a.ResourceID = resourceID
	return a
}

// WithValues sets the before/after values
func (a *AuditEntry) WithValues(oldValue, newValue interface{}) *AuditEntry {
	if data, err := marshalOptional(oldValue); err == nil {
		a.OldValue = data
	}
	if data, err := marshalOptional(newValue); err == nil {
		a.NewValue = data
	}
	return a
}

// WithRequest sets request metadata
func (a *AuditEntry) WithRequest(ipAddress, sessionID string) *AuditEntry {
	a.IPAddress = ipAddress
	a.SessionID = sessionID
	return a
}

// InRange reports whether the entry timestamp lies in [start, end]
func (a *AuditEntry) InRange(start, end int64) bool {
	return a.Timestamp >= start && a.Timestamp <= end
}

// Succeeded reports whether the entry recorded a successful action.
// An empty status counts as success.
func (a *AuditEntry) Succeeded() bool {
	return a.Status != StatusFailure
}

func marshalOptional(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
