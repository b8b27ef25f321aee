// Package errors defines the application error taxonomy and the HTTP
// error responder shared by the server, handlers, and middleware.
//
// The only semantically distinguished failure the core produces is the
// rate-limit rejection; everything else surfaces as an opaque internal
// error.
package errors

import "fmt"

// Error codes
const (
	CodeRateLimited = "RATE_LIMITED"
	CodeNotFound    = "NOT_FOUND"
	CodeValidation  = "VALIDATION_FAILED"
	CodeInvalidJSON = "INVALID_JSON"
	CodeDatabase    = "DATABASE_ERROR"
	CodeInternal    = "INTERNAL_ERROR"

	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// AppError is a typed application error carrying the HTTP status it
// maps to and a user-facing message. The wrapped cause is logged but
// never written to the response.
type AppError struct {
	Code    string
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewRateLimited signals that the rate limiter rejected a submission.
func NewRateLimited(message string) *AppError {
	return &AppError{Code: CodeRateLimited, Status: 429, Message: message}
}

// NewNotFound signals a missing resource.
func NewNotFound(message string) *AppError {
	return &AppError{Code: CodeNotFound, Status: 404, Message: message}
}

// NewValidation signals malformed or out-of-range input.
func NewValidation(message string) *AppError {
	return &AppError{Code: CodeValidation, Status: 400, Message: message}
}

// NewInvalidJSON signals an unreadable request body.
func NewInvalidJSON() *AppError {
	return &AppError{Code: CodeInvalidJSON, Status: 400, Message: "Invalid JSON format"}
}

// NewServiceUnavailable signals a failed health probe.
func NewServiceUnavailable(message string) *AppError {
	return &AppError{Code: CodeServiceUnavailable, Status: 503, Message: message}
}

// WrapDatabase wraps a storage failure. Surfaces as an opaque 500.
func WrapDatabase(err error, message string) *AppError {
	return &AppError{Code: CodeDatabase, Status: 500, Message: message, Err: err}
}

// NewInternal signals an unexpected failure.
func NewInternal(message string) *AppError {
	return &AppError{Code: CodeInternal, Status: 500, Message: message}
}

// WrapInternal wraps an unexpected failure.
func WrapInternal(err error, message string) *AppError {
	return &AppError{Code: CodeInternal, Status: 500, Message: message, Err: err}
}
