package core

import (
	"errors"
	"fmt"
)

// Error represents a session or transport error.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    string    `json:"code,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrInvalidRequest ErrorType = "invalid_request_error"
	ErrAuthentication ErrorType = "authentication_error"
	ErrPermission     ErrorType = "permission_error"
	ErrTransport      ErrorType = "transport_error"
	ErrAPI            ErrorType = "api_error"
)

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: message,
	}
}

// NewAuthenticationError creates an authentication error.
// These indicate the stored credential was rejected by the remote.
func NewAuthenticationError(message string) *Error {
	return &Error{
		Type:    ErrAuthentication,
		Message: message,
	}
}

// NewPermissionError creates a permission error (camera/microphone unavailable).
func NewPermissionError(message string) *Error {
	return &Error{
		Type:    ErrPermission,
		Message: message,
	}
}

// NewTransportError creates a transport error wrapping the underlying cause.
func NewTransportError(message string, cause error) *Error {
	return &Error{
		Type:    ErrTransport,
		Message: message,
		Cause:   cause,
	}
}

// NewAPIError creates a generic API error.
func NewAPIError(message string) *Error {
	return &Error{
		Type:    ErrAPI,
		Message: message,
	}
}

// IsCredentialError reports whether err indicates an invalid credential.
// A stale bad credential fails every subsequent attempt identically, so
// callers clear the stored key when this returns true.
func IsCredentialError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == ErrAuthentication
	}
	return false
}

// IsPermissionError reports whether err indicates an unavailable capture device.
func IsPermissionError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == ErrPermission
	}
	return false
}
