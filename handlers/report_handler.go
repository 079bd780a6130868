package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/audit-trail/internal/shared"
	"github.com/upb/audit-trail/models"
	"github.com/upb/audit-trail/services/report"
	"github.com/upb/audit-trail/utils"
	"go.uber.org/zap"
)

// GenerateReportRequest represents a report generation request
type GenerateReportRequest struct {
	ReportType  string `json:"reportType" validate:"required,oneof=SOC2 HIPAA GDPR"`
	StartDate   *int64 `json:"startDate" validate:"required"`
	EndDate     *int64 `json:"endDate" validate:"required"`
	GeneratedBy string `json:"generatedBy"`
}

// ReportService defines the report operations the handler needs
type ReportService interface {
	Generate(ctx context.Context, req report.GenerateRequest) (*models.Report, error)
	Get(ctx context.Context, id string) (*models.Report, error)
	List(ctx context.Context) ([]*models.Report, error)
}

// ReportHandler handles report-related HTTP requests
type ReportHandler struct {
	service ReportService
	logger  *zap.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(service ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger,
	}
}

// HandleGenerateReport handles POST /api/reports
func (h *ReportHandler) HandleGenerateReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req GenerateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", shared.RequestID(ctx)),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	generatedBy := req.GeneratedBy
	if generatedBy == "" {
		generatedBy = shared.Actor(ctx)
	}

	generated, err := h.service.Generate(ctx, report.GenerateRequest{
		ReportType:  models.ReportType(req.ReportType),
		StartDate:   *req.StartDate,
		EndDate:     *req.EndDate,
		GeneratedBy: generatedBy,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	writeCreated(w, utils.Envelope{"report": generated}, h.logger)
}

// HandleListReports handles GET /api/reports
func (h *ReportHandler) HandleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.service.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	writeOK(w, utils.Envelope{"reports": reports}, h.logger)
}

// HandleGetReport handles GET /api/reports/{reportId}
func (h *ReportHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	found, err := h.service.Get(r.Context(), chi.URLParam(r, "reportId"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	writeOK(w, utils.Envelope{"report": found}, h.logger)
}
