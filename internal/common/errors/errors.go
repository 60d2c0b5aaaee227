// Package errors provides standardized error handling for the generation pipeline.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeEmptyInput         ErrorCode = "EMPTY_INPUT"
	ErrCodeIO                 ErrorCode = "IO_ERROR"
	ErrCodeDefinitionConflict ErrorCode = "DEFINITION_CONFLICT"
	ErrCodeJobFailed          ErrorCode = "JOB_FAILED"
	ErrCodePollTimeout        ErrorCode = "POLL_TIMEOUT"
	ErrCodeRelocationFailed   ErrorCode = "RELOCATION_FAILED"

	ErrCodeAuthentication  ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeRunLocked       ErrorCode = "RUN_LOCKED"
	ErrCodeValidation      ErrorCode = "VALIDATION_FAILED"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewNotFoundError marks a referenced revision or resource as absent.
func NewNotFoundError(resource, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmptyInputError signals that a revision has no placements to draw.
func NewEmptyInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyInput,
		Message:   "No placements found for revision",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewIOError wraps a storage read/write/signing failure. The step name
// identifies the failing upload or URL mint for diagnosability.
func NewIOError(step string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeIO,
		Message:   fmt.Sprintf("Storage operation '%s' failed", step),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDefinitionConflictError signals that the remote activity already exists.
func NewDefinitionConflictError(activityID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDefinitionConflict,
		Message:   "Remote job definition already exists",
		Details:   fmt.Sprintf("activityId: %s", activityID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewJobFailedError carries the terminal status plus a bounded report excerpt.
func NewJobFailedError(status, reportExcerpt string) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobFailed,
		Message:   fmt.Sprintf("Remote job finished with status '%s'", status),
		Details:   reportExcerpt,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPollTimeoutError signals exhausted polling attempts.
func NewPollTimeoutError(attempts int, elapsed time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodePollTimeout,
		Message:   "Remote job polling attempts exhausted",
		Details:   fmt.Sprintf("attempts: %d, elapsed: %s", attempts, elapsed.Round(time.Second)),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRelocationFailedError is non-fatal: the artifact still exists in the
// bucket, only the long-term copy is missing.
func NewRelocationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRelocationFailed,
		Message:   "Long-term storage upload failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRunLockedError signals another generation run holds the engine lock.
func NewRunLockedError(account string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRunLocked,
		Message:   "Another generation run is in flight for this engine account",
		Details:   fmt.Sprintf("account: %s", account),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   "Request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalService,
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthentication,
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// Normalize ensures we always have a StandardError. Nil passes through.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// CodeOf extracts the error code, or INTERNAL_ERROR for plain errors.
// A nil error has no code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return Normalize(err).Code
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsFatal reports whether the error must fail the whole run. Only
// relocation failures degrade instead of failing.
func IsFatal(err error) bool {
	return CodeOf(err) != ErrCodeRelocationFailed
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "NOT_FOUND") || strings.Contains(codeStr, "EMPTY"):
		return "INPUT"
	case strings.Contains(codeStr, "IO") || strings.Contains(codeStr, "RELOCATION"):
		return "STORAGE"
	case strings.Contains(codeStr, "JOB") || strings.Contains(codeStr, "POLL") || strings.Contains(codeStr, "DEFINITION"):
		return "ENGINE"
	case strings.Contains(codeStr, "AUTH"):
		return "AUTH"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
