package filesender

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Standard errors returned by the SDK.
var (
	// ErrValidation indicates invalid input parameters.
	ErrValidation = errors.New("validation error")
	// ErrAuthentication indicates authentication failure.
	ErrAuthentication = errors.New("authentication failed")
	// ErrForbidden indicates the caller may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("not found")
	// ErrRateLimit indicates too many requests.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrFileTooLarge indicates the file exceeds size limits.
	ErrFileTooLarge = errors.New("file too large")
	// ErrServer indicates a server-side failure.
	ErrServer = errors.New("server error")
)

// APIError represents an error response from the FileSender API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Message is the error message.
	Message string
	// UID is the server-side log reference of the failure, if reported.
	UID string
	// Err is the underlying error type.
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (status %d)", e.Err.Error(), e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for errors.Is.
func (e *APIError) Is(target error) bool {
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// Temporary reports whether repeating the request may succeed.
func (e *APIError) Temporary() bool {
	switch {
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// RequestError is a failure to complete the HTTP exchange.
type RequestError struct {
	Method string
	Path   string
	Err    error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("executing request %s %s: %v", e.Method, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Temporary reports true: connection failures are worth repeating.
// Context cancellation is detected through Unwrap.
func (e *RequestError) Temporary() bool {
	return true
}

// ValidationError represents an input validation failure.
type ValidationError struct {
	// Field is the name of the invalid field.
	Field string
	// Message describes what's wrong.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Is implements error comparison.
func (e *ValidationError) Is(target error) bool {
	return errors.Is(ErrValidation, target)
}

// Unwrap returns ErrValidation for errors.Is support.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// newAPIError creates an APIError from an HTTP response.
func newAPIError(statusCode int, message string) *APIError {
	err := &APIError{
		StatusCode: statusCode,
		Message:    sanitizeErrorMessage(message),
	}

	// Map status codes to error types
	switch {
	case statusCode == 400:
		err.Err = ErrValidation
	case statusCode == 401:
		err.Err = ErrAuthentication
	case statusCode == 403:
		err.Err = ErrForbidden
	case statusCode == 404:
		err.Err = ErrNotFound
	case statusCode == 413:
		err.Err = ErrFileTooLarge
	case statusCode == 429:
		err.Err = ErrRateLimit
	case statusCode >= 500:
		err.Err = ErrServer
	}

	return err
}

// sanitizeErrorMessage removes potentially sensitive information from error messages.
func sanitizeErrorMessage(msg string) string {
	// List of sensitive keywords to check for
	sensitivePatterns := []string{
		"token",
		"password",
		"secret",
		"authorization",
		"cookie",
		"credential",
	}

	lowerMsg := strings.ToLower(msg)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(lowerMsg, pattern) {
			// If the message contains sensitive keywords, return a generic message
			// to prevent potential credential leakage
			return "request failed"
		}
	}

	return msg
}
