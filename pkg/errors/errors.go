package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error codes
const (
	CodeValidationError        = "VALIDATION_ERROR"
	CodeNotFound               = "RESOURCE_NOT_FOUND"
	CodeConflict               = "CONFLICT"
	CodeInternalError          = "INTERNAL_ERROR"
	CodeBadRequest             = "BAD_REQUEST"
	CodeServiceUnavailable     = "SERVICE_UNAVAILABLE"
	CodeTimeout                = "TIMEOUT"
	CodePreconditionFailed     = "PRECONDITION_FAILED"
	CodeRemoteRejected         = "REMOTE_REJECTED"
	CodePollTimeout            = "POLL_TIMEOUT"
	CodeNoOptionAvailable      = "NO_OPTION_AVAILABLE"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
)

// RemoteProblem is one problem reported by an upstream system, passed through to
// callers so they can decide whether to fix input or retry.
type RemoteProblem struct {
	Code           string   `json:"code,omitempty"`
	Message        string   `json:"message"`
	Severity       string   `json:"severity,omitempty"`
	SKU            string   `json:"sku,omitempty"`
	AcceptedValues []string `json:"acceptedValues,omitempty"`
}

// AppError represents an application error with HTTP status and error code
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Remote     []RemoteProblem   `json:"remote,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithRemote attaches upstream problems to the error
func (e *AppError) WithRemote(problems ...RemoteProblem) *AppError {
	e.Remote = append(e.Remote, problems...)
	return e
}

// Wrap wraps an existing error
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// Retryable reports whether repeating the same call unchanged may succeed.
func (e *AppError) Retryable() bool {
	switch e.Code {
	case CodePollTimeout, CodeConcurrentModification, CodeServiceUnavailable, CodeTimeout, CodeConflict:
		return true
	}
	return false
}

// NewAppError creates a new AppError
func NewAppError(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// ErrValidation creates a validation error
func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

// ErrValidationWithFields creates a validation error with field details
func ErrValidationWithFields(message string, fields map[string]string) *AppError {
	return ErrValidation(message).WithDetails(fields)
}

// ErrNotFound creates a not found error
func ErrNotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ErrNotFoundWithID creates a not found error with ID
func ErrNotFoundWithID(resource, id string) *AppError {
	return ErrNotFound(resource).WithDetail("id", id)
}

// ErrConflict creates a conflict error
func ErrConflict(message string) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict)
}

// ErrInternal creates an internal error
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalError, message, http.StatusInternalServerError)
}

// ErrBadRequest creates a bad request error
func ErrBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest)
}

// ErrServiceUnavailable creates a service unavailable error
func ErrServiceUnavailable(service string) *AppError {
	return NewAppError(CodeServiceUnavailable, fmt.Sprintf("%s is temporarily unavailable", service), http.StatusServiceUnavailable)
}

// ErrTimeout creates a timeout error
func ErrTimeout(operation string) *AppError {
	return NewAppError(CodeTimeout, fmt.Sprintf("%s timed out", operation), http.StatusGatewayTimeout)
}

// ErrPreconditionFailed is returned before any remote call when local data is incomplete.
func ErrPreconditionFailed(message string) *AppError {
	return NewAppError(CodePreconditionFailed, message, http.StatusUnprocessableEntity)
}

// ErrRemoteRejected is returned when an upstream operation finished in a failed state.
func ErrRemoteRejected(message string) *AppError {
	return NewAppError(CodeRemoteRejected, message, http.StatusBadGateway)
}

// ErrPollTimeout is returned when an upstream operation was still pending at the deadline.
func ErrPollTimeout(operationID string) *AppError {
	return NewAppError(CodePollTimeout, "remote operation still pending", http.StatusGatewayTimeout).
		WithDetail("operationId", operationID)
}

// ErrNoOptionAvailable is returned when upstream offered nothing to choose from.
func ErrNoOptionAvailable(message string) *AppError {
	return NewAppError(CodeNoOptionAvailable, message, http.StatusUnprocessableEntity)
}

// ErrConcurrentModification is returned when a conditional write lost a race.
func ErrConcurrentModification(resource string) *AppError {
	return NewAppError(CodeConcurrentModification, fmt.Sprintf("%s was modified concurrently", resource), http.StatusConflict)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromError converts a standard error to an AppError
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	return ErrInternal("").Wrap(err)
}
