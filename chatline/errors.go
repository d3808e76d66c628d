package chatline

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota
	ErrorInvalidConfig
	ErrorConnection
	ErrorNotConnected
	ErrorNotLoggedIn
	ErrorAlreadyPending
	ErrorInvalidIdentity
	ErrorInvalidRoom
	ErrorRoomLocked
	ErrorSerialization
	ErrorFetch
	ErrorConfirmTimeout
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorUnknown:
		return "unknown"
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorConnection:
		return "connection_error"
	case ErrorNotConnected:
		return "not_connected"
	case ErrorNotLoggedIn:
		return "not_logged_in"
	case ErrorAlreadyPending:
		return "already_pending"
	case ErrorInvalidIdentity:
		return "invalid_identity"
	case ErrorInvalidRoom:
		return "invalid_room"
	case ErrorRoomLocked:
		return "room_locked"
	case ErrorSerialization:
		return "serialization_error"
	case ErrorFetch:
		return "fetch_error"
	case ErrorConfirmTimeout:
		return "confirm_timeout"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// ChatError is a structured error with code and context.
type ChatError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *ChatError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is support; two ChatErrors match on equal codes.
func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new ChatError with the given code and message.
func NewError(code ErrorCode, message string) *ChatError {
	return &ChatError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with a ChatError.
func WrapError(code ErrorCode, message string, err error) *ChatError {
	return &ChatError{
		Code:    code,
		Message: message,
		Wrapped: err,
	}
}

// CodeOf extracts the ErrorCode from err, or ErrorUnknown if err is not
// a ChatError.
func CodeOf(err error) ErrorCode {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrorUnknown
}

// IsConnectionError checks if an error is a connection-related error.
func IsConnectionError(err error) bool {
	code := CodeOf(err)
	return code == ErrorConnection || code == ErrorNotConnected
}
