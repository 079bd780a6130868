package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/audit-trail/internal/shared"
	"github.com/upb/audit-trail/models"
	"github.com/upb/audit-trail/services/audit"
	"github.com/upb/audit-trail/utils"
	"go.uber.org/zap"
)

// LogAuditRequest represents a request to append an audit entry
type LogAuditRequest struct {
	UserID        string          `json:"userId" validate:"required"`
	UserRole      string          `json:"userRole"`
	Action        string          `json:"action" validate:"required,oneof=CREATE QUERY UPDATE DELETE VERIFY REVOKE ISSUE"`
	ResourceType  string          `json:"resourceType"`
	ResourceID    string          `json:"resourceId"`
	Status        string          `json:"status"`
	ComplianceTag string          `json:"complianceTag"`
	IPAddress     string          `json:"ipAddress"`
	SessionID     string          `json:"sessionId"`
	OldValue      json.RawMessage `json:"oldValue"`
	NewValue      json.RawMessage `json:"newValue"`
	Metadata      json.RawMessage `json:"metadata"`
}

// AuditService defines the audit operations the handler needs
type AuditService interface {
	Log(ctx context.Context, req audit.LogRequest) (*models.AuditEntry, error)
	Get(ctx context.Context, id string) (*models.AuditEntry, error)
	List(ctx context.Context) ([]*models.AuditEntry, error)
	ListByUser(ctx context.Context, userID string) ([]*models.AuditEntry, error)
	ListByAction(ctx context.Context, action models.AuditAction) ([]*models.AuditEntry, error)
	ListByDateRange(ctx context.Context, start, end int64) ([]*models.AuditEntry, error)
	Exists(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context, w audit.Window) (*models.AuditStats, error)
}

// AuditHandler handles audit-related HTTP requests
type AuditHandler struct {
	service AuditService
	logger  *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(service AuditService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		service: service,
		logger:  logger,
	}
}

// HandleLogAudit handles POST /api/audit
func (h *AuditHandler) HandleLogAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := shared.RequestID(ctx)

	var req LogAuditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	ip := req.IPAddress
	if ip == "" {
		ip = clientIP(r)
	}

	entry, err := h.service.Log(ctx, audit.LogRequest{
		UserID:        req.UserID,
		UserRole:      req.UserRole,
		Action:        models.AuditAction(req.Action),
		ResourceType:  req.ResourceType,
		ResourceID:    req.ResourceID,
		Status:        req.Status,
		ComplianceTag: req.ComplianceTag,
		IPAddress:     ip,
		SessionID:     req.SessionID,
		OldValue:      optionalJSON(req.OldValue),
		NewValue:      optionalJSON(req.NewValue),
		Metadata:      optionalJSON(req.Metadata),
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	writeCreated(w, utils.Envelope{"audit": entry}, h.logger)
}

// HandleListAudits handles GET /api/audit
func (h *AuditHandler) HandleListAudits(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context())
	h.writeList(w, entries, err)
}

// HandleGetAudit handles GET /api/audit/{auditId}
func (h *AuditHandler) HandleGetAudit(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Get(r.Context(), chi.URLParam(r, "auditId"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	writeOK(w, utils.Envelope{"audit": entry}, h.logger)
}

// HandleListByUser handles GET /api/audit/user/{userId}
func (h *AuditHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListByUser(r.Context(), chi.URLParam(r, "userId"))
	h.writeList(w, entries, err)
}

// HandleListByAction handles GET /api/audit/action/{action}
func (h *AuditHandler) HandleListByAction(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListByAction(r.Context(), models.AuditAction(chi.URLParam(r, "action")))
	h.writeList(w, entries, err)
}

// HandleListByDateRange handles GET /api/audit/daterange?start=&end=
func (h *AuditHandler) HandleListByDateRange(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	start, err := utils.ParseMillis(query.Get("start"), "start")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	end, err := utils.ParseMillis(query.Get("end"), "end")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	entries, err := h.service.ListByDateRange(r.Context(), start, end)
	h.writeList(w, entries, err)
}

// HandleAuditExists handles GET /api/audit/exists/{auditId}
func (h *AuditHandler) HandleAuditExists(w http.ResponseWriter, r *http.Request) {
	exists, err := h.service.Exists(r.Context(), chi.URLParam(r, "auditId"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	writeOK(w, utils.Envelope{"exists": exists}, h.logger)
}

// HandleStats handles GET /api/audit/stats?start=&end=. Both bounds are optional.
func (h *AuditHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	start, err := utils.ParseOptionalMillis(query.Get("start"), "start")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	end, err := utils.ParseOptionalMillis(query.Get("end"), "end")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	stats, err := h.service.Stats(r.Context(), audit.Window{Start: start, End: end})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	writeOK(w, utils.Envelope{"stats": stats}, h.logger)
}

func (h *AuditHandler) writeList(w http.ResponseWriter, entries []*models.AuditEntry, err error) {
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeOK(w, utils.Envelope{"audits": entries}, h.logger)
}

// optionalJSON treats an explicit null like an absent value
func optionalJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return raw
}

// clientIP returns the host part of RemoteAddr, which chi's RealIP has
// already replaced with X-Forwarded-For / X-Real-IP when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
