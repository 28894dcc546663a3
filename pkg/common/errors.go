package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is an expected, status-bearing error raised by application code.
// The dispatcher converts it into a response instead of treating it as a fault.
// Detail is either a structured mapping or a scalar message.
type AppError struct {
	StatusCode int         // HTTP status code (e.g., 400, 403, 409)
	Detail     any         // map[string]any for structured details, otherwise a message
	Header     http.Header // Headers copied onto the translated response (optional)
}

// NewAppError creates a new AppError with the specified status code and detail.
func NewAppError(statusCode int, detail any) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Detail:     detail,
	}
}

// WithHeader returns a copy of e that also sets the given response header.
func (e *AppError) WithHeader(key, value string) *AppError {
	err := *e
	err.Header = e.Header.Clone()
	if err.Header == nil {
		err.Header = make(http.Header)
	}
	err.Header.Set(key, value)
	return &err
}

// Error implements the error interface.
// It returns a string representation in the format "status: detail".
func (e *AppError) Error() string {
	return fmt.Sprintf("%d: %v", e.StatusCode, e.Detail)
}

// AsAppError reports whether err is, or wraps, an *AppError and returns it.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr, true
	}
	return nil, false
}
