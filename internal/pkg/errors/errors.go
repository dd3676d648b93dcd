// Package errors provides the error body every API response failure is
// written as.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes carried in the "code" field of an error body.
const (
	CodeUnauthenticated = "unauthenticated"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeBadRequest      = "bad_request"
	CodeValidation      = "validation_error"
	CodeRateLimited     = "rate_limited"
	CodeInternal        = "internal_error"
)

// APIError is an error that can be shown to API clients as is.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"error"`
	StatusCode int    `json:"-"`
	Details    any    `json:"details,omitempty"`
}

// New creates an APIError.
func New(status int, code, message string) *APIError {
	return &APIError{Code: code, Message: message, StatusCode: status}
}

func (e *APIError) Error() string {
	return e.Message
}

// Is matches any APIError with the same code, so copies made by WithMessage
// still satisfy errors.Is against the shared values below.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// WithMessage returns a copy of the error with a custom message.
func (e *APIError) WithMessage(message string) *APIError {
	c := *e
	c.Message = message
	return &c
}

var (
	// ErrUnauthenticated is returned when no valid session backs the request.
	ErrUnauthenticated = New(http.StatusUnauthorized, CodeUnauthenticated, "Authentication required")

	// ErrForbidden is returned when the caller's tier is too low.
	ErrForbidden = New(http.StatusForbidden, CodeForbidden, "You don't have permission to perform this action")

	ErrNotFound = New(http.StatusNotFound, CodeNotFound, "Resource not found")

	ErrBadRequest = New(http.StatusBadRequest, CodeBadRequest, "Invalid request")

	ErrRateLimited = New(http.StatusTooManyRequests, CodeRateLimited, "Too many requests. Please try again later.")

	// ErrInternal is returned for collaborator failures. Its message never
	// carries collaborator detail.
	ErrInternal = New(http.StatusInternalServerError, CodeInternal, "An internal error occurred")
)

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, message string) *APIError {
	e := New(http.StatusBadRequest, CodeValidation, fmt.Sprintf("Validation failed: %s", message))
	e.Details = map[string]string{"field": field, "error": message}
	return e
}

// NewValidationErrors creates a validation error keyed by field path.
func NewValidationErrors(fields map[string]string) *APIError {
	e := New(http.StatusBadRequest, CodeValidation, "One or more fields failed validation")
	e.Details = fields
	return e
}

// AsAPIError returns the APIError wrapped in err, or ErrInternal.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrInternal
}
