package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/audit-trail/internal/shared"
	"github.com/upb/audit-trail/models"
	"github.com/upb/audit-trail/services/user"
	"github.com/upb/audit-trail/utils"
	"go.uber.org/zap"
)

// CreateUserRequest represents a request to register a user
type CreateUserRequest struct {
	Username     string   `json:"username" validate:"required"`
	Email        string   `json:"email" validate:"required"`
	Role         string   `json:"role" validate:"required,oneof=USER AUDITOR ADMIN"`
	Organization string   `json:"organization"`
	Permissions  []string `json:"permissions"`
}

// UpdateRoleRequest represents a request to change a user's role
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=USER AUDITOR ADMIN"`
}

// UserService defines the user operations the handler needs
type UserService interface {
	Register(ctx context.Context, req user.RegisterRequest) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	UpdateRole(ctx context.Context, id string, role models.UserRole) (*models.User, error)
	Deactivate(ctx context.Context, id string) (*models.User, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	service UserService
	logger  *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger,
	}
}

// HandleCreateUser handles POST /api/users
func (h *UserHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := shared.RequestID(ctx)

	var req CreateUserRequest
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

	created, err := h.service.Register(ctx, user.RegisterRequest{
		Username:     req.Username,
		Email:        req.Email,
		Role:         models.UserRole(req.Role),
		Organization: req.Organization,
		Permissions:  req.Permissions,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	writeCreated(w, utils.Envelope{"user": created}, h.logger)
}

// HandleGetUser handles GET /api/users/{userId}
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.Get(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	writeOK(w, utils.Envelope{"user": u}, h.logger)
}

// HandleUpdateRole handles PUT /api/users/{userId}/role
func (h *UserHandler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userId")

	var req UpdateRoleRequest
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

	updated, err := h.service.UpdateRole(ctx, userID, models.UserRole(req.Role))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	writeOK(w, utils.Envelope{"user": updated}, h.logger)
}

// HandleDeactivateUser handles DELETE /api/users/{userId}.
// Users are never removed; the record is marked inactive.
func (h *UserHandler) HandleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	deactivated, err := h.service.Deactivate(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	writeOK(w, utils.Envelope{"user": deactivated}, h.logger)
}

// HandleUserExists handles GET /api/users/exists/{userId}
func (h *UserHandler) HandleUserExists(w http.ResponseWriter, r *http.Request) {
	exists, err := h.service.Exists(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	writeOK(w, utils.Envelope{"exists": exists}, h.logger)
}
