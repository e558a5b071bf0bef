package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the error type every layer hands to the HTTP boundary.
// Code is a business code whose first three digits are the HTTP status
// (40900 -> 409). Err is the internal cause; it is logged, never serialized.
type AppError struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"errors,omitempty"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap supports errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches two AppErrors by code and message so that sentinel errors
// survive being copied by WithFields or Wrap.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New creates an AppError.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates an AppError with a formatted message.
func Newf(code int, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap hides a system error (database, network) behind an internal error.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrapf formats the message of a wrapped error.
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// WithCause returns a copy of e carrying err as its internal cause.
func (e *AppError) WithCause(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// WithFields returns a copy of e with per-field validation messages.
func (e *AppError) WithFields(fields map[string]string) *AppError {
	cp := *e
	cp.Fields = fields
	return &cp
}

// =========================================
// Error codes
// =========================================
// code/100 is the HTTP status:
// - 400xx validation, 401xx authentication, 403xx authorization
// - 404xx not found, 409xx conflict
// - 500xx internal, 502xx storage

const (
	// Internal (50000-50099)
	ErrCodeInternal      = 50000
	ErrCodeDatabaseError = 50001
	ErrCodeRedisError    = 50002

	// Storage (50200-50299)
	ErrCodeStorage            = 50200
	ErrCodeStorageUnavailable = 50201

	// Validation (40000-40099)
	ErrCodeInvalidParams  = 40000
	ErrCodeBindError      = 40001
	ErrCodeInvalidISBN    = 40002
	ErrCodeInvalidFile    = 40003
	ErrCodeNoValidFields  = 40004
	ErrCodeInvalidDate    = 40005
	ErrCodeMissingReason  = 40006
	ErrCodeBusinessError  = 40010
	ErrCodeOwnershipError = 40011

	// Authentication (40100-40199)
	ErrCodeUnauthorized = 40100
	ErrCodeInvalidToken = 40101
	ErrCodeTokenExpired = 40102

	// Authorization (40300-40399)
	ErrCodeForbidden = 40300

	// Not found (40400-40499)
	ErrCodeNotFound             = 40400
	ErrCodeCoverRequestNotFound = 40401
	ErrCodeCoverDesignNotFound  = 40402
	ErrCodeCertificateNotFound  = 40403
	ErrCodeIsbnRequestNotFound  = 40404

	// Conflict (40900-40999)
	ErrCodeConflict                = 40900
	ErrCodeInvalidStatusTransition = 40901
	ErrCodeISBNDuplicate           = 40902
	ErrCodeRevisionLimitReached    = 40903
	ErrCodeVersionConflict         = 40904
	ErrCodeDuplicateEntry          = 40909
)

// =========================================
// Predefined errors
// =========================================

var (
	ErrInternal      = New(ErrCodeInternal, "internal server error")
	ErrDatabaseError = New(ErrCodeDatabaseError, "database error")
	ErrRedisError    = New(ErrCodeRedisError, "cache service error")

	ErrStorage            = New(ErrCodeStorage, "file storage operation failed")
	ErrStorageUnavailable = New(ErrCodeStorageUnavailable, "file storage is temporarily unavailable")

	ErrUnauthorized = New(ErrCodeUnauthorized, "authentication required")
	ErrInvalidToken = New(ErrCodeInvalidToken, "invalid token")
	ErrTokenExpired = New(ErrCodeTokenExpired, "token has expired")
	ErrForbidden    = New(ErrCodeForbidden, "you do not have permission to perform this action")

	ErrNotFound = New(ErrCodeNotFound, "resource not found")

	ErrInvalidParams = New(ErrCodeInvalidParams, "invalid parameters")
	ErrBindError     = New(ErrCodeBindError, "malformed request")
	ErrNoValidFields = New(ErrCodeNoValidFields, "No valid fields to update")
)

// =========================================
// Helpers
// =========================================

// IsAppError reports whether err is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts the AppError from err, wrapping unknown errors as internal.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "internal server error")
}

// HTTPStatus maps a business code onto its HTTP status.
func HTTPStatus(code int) int {
	status := code / 100
	if status < 400 || status > 599 || http.StatusText(status) == "" {
		return http.StatusInternalServerError
	}
	return status
}

// Forbidden builds an authorization error with a specific message.
func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

// Invalid builds a validation error with a specific message.
func Invalid(message string) *AppError {
	return New(ErrCodeInvalidParams, message)
}

// Conflict builds a conflict error with a specific message.
func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message)
}
