package ledger

import (
	"encoding/json"
	"strconv"

	"github.com/upb/audit-trail/models"
)

// chainAuditEntry is the chaincode's JSON shape. Opaque values travel as
// JSON-encoded strings.
type chainAuditEntry struct {
	ID            string `json:"id"`
	Timestamp     int64  `json:"timestamp"`
	UserID        string `json:"userId"`
	UserRole      string `json:"userRole"`
	Action        string `json:"action"`
	ResourceType  string `json:"resourceType"`
	ResourceID    string `json:"resourceId"`
	OldValue      string `json:"oldValue"`
	NewValue      string `json:"newValue"`
	Status        string `json:"status"`
	IPAddress     string `json:"ipAddress"`
	SessionID     string `json:"sessionId"`
	Metadata      string `json:"metadata"`
	ComplianceTag string `json:"complianceTag"`
	TxID          string `json:"txId"`
}

func (c *chainAuditEntry) toModel() *models.AuditEntry {
	return &models.AuditEntry{
		ID:            c.ID,
		Timestamp:     c.Timestamp,
		UserID:        c.UserID,
		UserRole:      c.UserRole,
		Action:        models.AuditAction(c.Action),
		ResourceType:  c.ResourceType,
		ResourceID:    c.ResourceID,
		Status:        c.Status,
		ComplianceTag: c.ComplianceTag,
		IPAddress:     c.IPAddress,
		SessionID:     c.SessionID,
		Metadata:      toRaw(c.Metadata),
		OldValue:      toRaw(c.OldValue),
		NewValue:      toRaw(c.NewValue),
		TxID:          c.TxID,
	}
}

// logAuditArgs builds the 13 positional arguments of LogAudit
func logAuditArgs(e *models.AuditEntry) []string {
	status := e.Status
	if status == "" {
		status = models.StatusSuccess
	}
	metadata := string(e.Metadata)
	if metadata == "" {
		metadata = "{}"
	}
	return []string{
		e.ID,
		e.UserID,
		e.UserRole,
		string(e.Action),
		e.ResourceType,
		e.ResourceID,
		string(e.OldValue),
		string(e.NewValue),
		status,
		e.IPAddress,
		e.SessionID,
		metadata,
		e.ComplianceTag,
	}
}

// chainUser is the chaincode's user record
type chainUser struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	Role         string   `json:"role"`
	Organization string   `json:"organization"`
	Permissions  []string `json:"permissions"`
	Active       bool     `json:"active"`
	CreatedAt    int64    `json:"createdAt"`
	UpdatedAt    int64    `json:"updatedAt"`
	CreatedBy    string   `json:"createdBy"`
}

func (c *chainUser) toModel() *models.User {
	permissions := c.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	updatedAt := c.UpdatedAt
	if updatedAt == 0 {
		updatedAt = c.CreatedAt
	}
	return &models.User{
		ID:           c.ID,
		Username:     c.Username,
		Email:        c.Email,
		Role:         models.UserRole(c.Role),
		Organization: c.Organization,
		Permissions:  permissions,
		Active:       c.Active,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    updatedAt,
	}
}

// toRaw keeps valid JSON as-is and quotes anything else
func toRaw(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	quoted, _ := json.Marshal(s)
	return quoted
}

func formatMillis(ms int64) string {
	return strconv.FormatInt(ms, 10)
}
