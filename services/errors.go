package services

import (
	"errors"
	"fmt"

	"github.com/upb/audit-trail/repositories"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeExternal   ErrorType = "external"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Not Found Errors
	ErrUserNotFound   = NewDomainError(ErrorTypeNotFound, "user not found", nil)
	ErrAuditNotFound  = NewDomainError(ErrorTypeNotFound, "audit entry not found", nil)
	ErrReportNotFound = NewDomainError(ErrorTypeNotFound, "report not found", nil)

	// Validation Errors
	ErrInvalidRole       = NewDomainError(ErrorTypeValidation, "invalid role", nil)
	ErrInvalidAction     = NewDomainError(ErrorTypeValidation, "invalid audit action", nil)
	ErrInvalidReportType = NewDomainError(ErrorTypeValidation, "invalid report type", nil)

	// Conflict Errors
	ErrDuplicateID = NewDomainError(ErrorTypeConflict, "id already exists", nil)

	// Internal Errors
	ErrInternal     = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrStorageError = NewDomainError(ErrorTypeInternal, "storage error", nil)

	// External Errors
	ErrLedgerError = NewDomainError(ErrorTypeExternal, "ledger error", nil)
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return GetErrorType(err) == ErrorTypeConflict
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// IsExternalError checks if an error came from the ledger backend
func IsExternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeExternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// PublicMessage returns the message safe to show a client. External errors
// echo the upstream message; internal errors never leak their cause.
func PublicMessage(err error) string {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return "An unexpected error occurred"
	}
	switch domainErr.Type {
	case ErrorTypeInternal:
		return "An internal error occurred"
	case ErrorTypeExternal:
		if domainErr.Err != nil {
			return domainErr.Err.Error()
		}
	}
	return domainErr.Message
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapExternal wraps an error as an external backend error
func WrapExternal(message string, err error) error {
	return NewDomainError(ErrorTypeExternal, message, err)
}

// Validation builds a validation error
func Validation(message string) error {
	return NewDomainError(ErrorTypeValidation, message, nil)
}

// CheckWindow rejects windows with a bound before the epoch
func CheckWindow(start, end int64) error {
	if start >= 0 && end >= 0 {
		return nil
	}
	return NewDomainError(ErrorTypeValidation, "timestamps must not be negative", nil).
		WithDetail("start", start).
		WithDetail("end", end)
}

// FromRepository translates repository sentinels into domain errors.
// notFound is the message used when the record is missing.
func FromRepository(err error, notFound string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return NewDomainError(ErrorTypeNotFound, notFound, err)
	case errors.Is(err, repositories.ErrAlreadyExists):
		return NewDomainError(ErrorTypeConflict, ErrDuplicateID.Message, err)
	case errors.Is(err, repositories.ErrUpstream):
		return WrapExternal(ErrLedgerError.Message, err)
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return WrapInternal(ErrStorageError.Message, err)
}
