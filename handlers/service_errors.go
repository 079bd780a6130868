package handlers

import (
	"net/http"

	"github.com/upb/audit-trail/services"
	"github.com/upb/audit-trail/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)
	if len(details) == 0 {
		details = nil
	}
	message := services.PublicMessage(err)

	var writeErr error
	switch {
	case services.IsNotFoundError(err):
		writeErr = utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse{
			Error:   message,
			Code:    string(services.ErrorTypeNotFound),
			Details: details,
		})

	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, message, details)

	case services.IsConflictError(err):
		writeErr = utils.WriteConflict(w, message, details)

	case services.IsExternalError(err):
		// ledger failures echo the peer's message
		logger.Warn("ledger call failed", zap.Error(err))
		writeErr = utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse{
			Error: message,
			Code:  string(services.ErrorTypeExternal),
		})

	case services.IsInternalError(err):
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, message)

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w, message)
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}

// writeOK writes a 200 answer, logging encoder failures
func writeOK(w http.ResponseWriter, body utils.Envelope, logger *zap.Logger) {
	if err := utils.WriteOK(w, body); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

// writeCreated writes a 201 answer, logging encoder failures
func writeCreated(w http.ResponseWriter, body utils.Envelope, logger *zap.Logger) {
	if err := utils.WriteCreated(w, body); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}
