package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents different types of application errors
type ErrorType string

const (
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeInternal    ErrorType = "internal"
	ErrorTypeRateLimited ErrorType = "rate_limited"

	// Login flow
	ErrorTypeInvalidState            ErrorType = "invalid_state"
	ErrorTypeMissingCode             ErrorType = "missing_code"
	ErrorTypeExchangeFailed          ErrorType = "exchange_failed"
	ErrorTypeProfileResolutionFailed ErrorType = "profile_resolution_failed"
)

// Sentinels for errors.Is matching. Any *AppError with the same Type matches.
var (
	ErrInvalidState            = &AppError{Type: ErrorTypeInvalidState, Message: "invalid oauth state", StatusCode: http.StatusBadRequest}
	ErrMissingCode             = &AppError{Type: ErrorTypeMissingCode, Message: "missing authorization code", StatusCode: http.StatusBadRequest}
	ErrExchangeFailed          = &AppError{Type: ErrorTypeExchangeFailed, Message: "code exchange failed", StatusCode: http.StatusBadGateway}
	ErrProfileResolutionFailed = &AppError{Type: ErrorTypeProfileResolutionFailed, Message: "profile resolution failed", StatusCode: http.StatusBadGateway}
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Internal   error                  `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Is reports whether target is an AppError of the same type
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail returns a copy of the error carrying an extra detail
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value

	cp := *e
	cp.Details = details
	return &cp
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or ErrorTypeInternal.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// NewRateLimitError is returned when a client sends too many requests
func NewRateLimitError(retryAfter time.Duration) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimited,
		Message:    "too many requests",
		StatusCode: http.StatusTooManyRequests,
		Details:    map[string]interface{}{"retry_after_seconds": int(retryAfter.Seconds())},
	}
}

// NewInvalidStateError is returned when the anti-forgery state is absent or does not match
func NewInvalidStateError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidState,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewMissingCodeError is returned when the redirect carries no authorization code
func NewMissingCodeError() *AppError {
	return &AppError{
		Type:       ErrorTypeMissingCode,
		Message:    "missing authorization code",
		StatusCode: http.StatusBadRequest,
	}
}

// NewExchangeFailedError wraps a rejected or failed code exchange.
// status is the backend HTTP status, 0 when the request never completed.
func NewExchangeFailedError(message string, status int, internal error) *AppError {
	e := &AppError{
		Type:       ErrorTypeExchangeFailed,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Internal:   internal,
	}
	if status != 0 {
		e.Details = map[string]interface{}{"status": status}
	}
	return e
}

// NewProfileResolutionError wraps a failed profile lookup
func NewProfileResolutionError(source string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeProfileResolutionFailed,
		Message:    "profile lookup failed",
		StatusCode: http.StatusBadGateway,
		Internal:   internal,
		Details:    map[string]interface{}{"source": source},
	}
}

// ErrorResponse represents the JSON error response
type ErrorResponse struct {
	Success bool `json:"success"`
	Error   struct {
		Type      ErrorType              `json:"type"`
		Message   string                 `json:"message"`
		Details   map[string]interface{} `json:"details,omitempty"`
		RequestID string                 `json:"request_id,omitempty"`
		Timestamp string                 `json:"timestamp"`
	} `json:"error"`
}
