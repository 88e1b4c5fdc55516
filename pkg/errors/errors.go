// Package errors provides coded errors shared by the tg-identity HTTP layer.
//
// Domain packages raise plain sentinels (store.ErrNotFound, tokengenerator.ErrSigning, ...).
// Handlers translate them into *Error values whose Code decides the HTTP status:
//
//	err := errors.Wrap(store.ErrDuplicateKey, errors.ErrCodeDuplicateKey, "role already exists")
//	status := err.HTTPStatusCode() // 400
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

const (
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeUserNotFound     ErrorCode = "USER_NOT_FOUND"
	ErrCodeRoleNotFound     ErrorCode = "ROLE_NOT_FOUND"
	ErrCodeDuplicateKey     ErrorCode = "DUPLICATE_KEY"
	ErrCodeSigning          ErrorCode = "SIGNING_ERROR"
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
)

// Error is a structured error with a code, a message and optional details.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail entry and returns e.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// HTTPStatusCode returns the status code for e.Code.
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to err. It returns nil when err is nil.
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// IsCode reports whether any *Error in err's chain carries code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode returns the code of the first *Error in err's chain, or ErrCodeInternal.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// MapErrorCodeToHTTPStatus maps error codes to HTTP status codes.
// Duplicate keys are reported as 400, which is what existing clients expect.
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidInput, ErrCodeValidationFailed, ErrCodeDuplicateKey:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeUserNotFound, ErrCodeRoleNotFound:
		return http.StatusNotFound
	case ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeSigning, ErrCodeInternal:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

// NotFound creates a "not found" error for a resource.
func NotFound(code ErrorCode, resourceType string, identifier interface{}) *Error {
	return Newf(code, "%s not found: %v", resourceType, identifier)
}

// Duplicate creates a conflict error naming the field that collided.
func Duplicate(resourceType, field string, value interface{}) *Error {
	return Newf(ErrCodeDuplicateKey, "%s with this %s already exists", resourceType, field).
		WithDetail("field", field).
		WithDetail("value", value)
}

// InvalidInput creates an "invalid input" error for a single field.
func InvalidInput(field, reason string) *Error {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason)).WithDetail("field", field)
}

func InternalWrap(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}
