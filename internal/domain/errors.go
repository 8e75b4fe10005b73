package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared across packages.
var (
	ErrNoSnapshot     = errors.New("no snapshot loaded")
	ErrMissingRoster  = errors.New("provider roster path is required")
	ErrInvalidWeights = errors.New("invalid scoring weights")
	ErrUnknownIntent  = errors.New("unknown intent")
	ErrNotFound       = errors.New("not found")
)

// EngineError represents a standardized error response
type EngineError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeLoadFailed    = "LOAD_FAILED"
	ErrCodeNoSnapshot    = "NO_SNAPSHOT"
	ErrCodeRateLimit     = "RATE_LIMIT_EXCEEDED"
	ErrCodeExportFailed  = "EXPORT_FAILED"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_SERVER_ERROR"
)

// ValidationError represents configuration validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewEngineError creates a new EngineError with timestamp
func NewEngineError(code, message, details, requestID string) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
