package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by stores when no row matches
	ErrNotFound = errors.New("not found")

	// ErrDuplicateReference is returned when an invoice with the same KSeF
	// reference number already exists
	ErrDuplicateReference = errors.New("duplicate ksef reference number")

	// ErrUnsupportedFormat is returned for export formats other than FK
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// ErrNoInvoices is returned when an export is requested with nothing to export
	ErrNoInvoices = errors.New("no invoices to export")
)

// APIError describes a failed KSeF API call. Transport failures and
// application-level HTTP errors share this one shape so callers have a
// single failure path.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ksef %s: %s (%v)", e.Endpoint, e.Message, e.Cause)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("ksef %s: %s (HTTP %d)", e.Endpoint, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("ksef %s: %s", e.Endpoint, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// NewAPIError creates an API error for an endpoint
func NewAPIError(endpoint string, statusCode int, message string, cause error) *APIError {
	return &APIError{
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

// ParseError describes a failure to normalize a source XML document
type ParseError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse %s: %s (%v)", e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("parse %s: %s", e.Field, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a parse error
func NewParseError(field, message string, cause error) *ParseError {
	return &ParseError{
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// AuthError describes a failed authentication attempt; fatal to a sync run
type AuthError struct {
	Method  string
	Message string
	Cause   error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ksef auth (%s): %s (%v)", e.Method, e.Message, e.Cause)
	}
	return fmt.Sprintf("ksef auth (%s): %s", e.Method, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// NewAuthError creates an authentication error
func NewAuthError(method, message string, cause error) *AuthError {
	return &AuthError{
		Method:  method,
		Message: message,
		Cause:   cause,
	}
}
