// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for Crudkit.

It provides a rich error type that bridges the gap between low-level Domain/Storage
errors and high-level HTTP responses.

Architecture:

  - AppError: A struct containing a machine-readable ErrorCode and user-friendly messages.
  - Codes: Every constructor stamps a stable `ERR_*` code that clients can key on.
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes.

Every error that leaves the service layer should be wrapped as an [AppError] to ensure
consistent API responses.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Stable machine-readable error codes.
//
// These are part of the public API contract: clients switch on them, so they
// must never change once published.
const (
	CodeValidation         = "ERR_VALIDATION_ERROR"
	CodeDuplicateEntry     = "ERR_DUPLICATE_ENTRY"
	CodeNotFound           = "ERR_NOT_FOUND"
	CodeUnauthorized       = "ERR_UNAUTHORIZED"
	CodeForbidden          = "ERR_FORBIDDEN"
	CodeTokenExpired       = "ERR_TOKEN_EXPIRED"
	CodeAuthenticationFail = "ERR_AUTHENTICATION_FAIL"
	CodeConfig             = "ERR_CONFIG"
	CodeInternal           = "ERR_INTERNAL"
)

// AppError is the canonical error type for the Crudkit core.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "ERR_NOT_FOUND").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for ERR_VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
	// Duplicated lists the fields that violated a unique constraint for
	// ERR_DUPLICATE_ENTRY responses.
	Duplicated []string `json:"duplicated,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("User") // Returns "User not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// DuplicateEntry creates a 409 [AppError] for unique-constraint violations.
//
// When duplicated field names are known they are enumerated both in the
// message and in the Duplicated slice; otherwise the message falls back to a
// generic "Duplicated entry".
func DuplicateEntry(msg string, duplicated ...string) *AppError {
	if msg == "" {
		if len(duplicated) > 0 {
			msg = fmt.Sprintf("`%s` already exists", strings.Join(duplicated, "` or `"))
		} else {
			msg = "Duplicated entry"
		}
	}
	return &AppError{
		Code:       CodeDuplicateEntry,
		Message:    msg,
		HTTPStatus: http.StatusConflict,
		Duplicated: duplicated,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// TokenExpired creates a 401 [AppError] for expired access tokens.
func TokenExpired() *AppError {
	return &AppError{
		Code:       CodeTokenExpired,
		Message:    "Token has expired",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// AuthenticationFail creates a 401 [AppError] for failed logins.
//
// The message is intentionally non-descriptive: it must not reveal whether
// the username or the password was wrong.
func AuthenticationFail() *AppError {
	return &AppError{
		Code:       CodeAuthenticationFail,
		Message:    "Wrong username or password",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// # Server Errors (5xx)

// Config creates a 500 [AppError] for invalid static configuration.
//
// Configuration errors are raised at startup (fail fast), never per-request.
func Config(msg string) *AppError {
	return &AppError{
		Code:       CodeConfig,
		Message:    msg,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// IsCode reports whether err is an [*AppError] carrying the given code.
func IsCode(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}
