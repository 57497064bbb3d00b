// Package domainerrors provides coded domain errors. Services create and wrap
// errors with a Code; transport layers translate codes into HTTP statuses
// without inspecting messages. Store layers use pkg/platform/sentinel instead
// and services translate upward. Conventionally imported as dErrors.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code classifies a domain error for transport mapping and testing.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodePreconditionFailed Code = "precondition_failed"
	CodeCrypto             Code = "crypto_failure"
	CodeQrDecode           Code = "qr_decode_failure"
	CodeTokenInvalid       Code = "invalid_token"
	CodeTokenExpired       Code = "expired_token"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Error is the domain error type. Reason carries a machine-readable detail for
// precondition failures (e.g. "record_not_signed"); it is empty otherwise.
type Error struct {
	Code    Code
	Reason  string
	Message string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return e.Message + ": " + e.wrapped.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.wrapped }

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewWithReason creates a coded error carrying a machine-readable reason.
func NewWithReason(code Code, reason, message string) *Error {
	return &Error{Code: code, Reason: reason, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is / errors.As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, wrapped: err}
}

// WrapWithReason is Wrap plus a machine-readable reason.
func WrapWithReason(err error, code Code, reason, message string) *Error {
	return &Error{Code: code, Reason: reason, Message: message, wrapped: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}

// CodeOf returns the code of the outermost domain error, or CodeInternal when
// the error is not a domain error.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// ReasonOf returns the machine-readable reason, if any.
func ReasonOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Reason
	}
	return ""
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeQrDecode, CodeCrypto:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeTokenInvalid, CodeTokenExpired:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodePreconditionFailed:
		return http.StatusUnprocessableEntity
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
