package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a failure class so callers can branch on it without
// matching message text
type ErrorCode string

const (
	ErrUnknown  ErrorCode = "UNKNOWN"
	ErrInternal ErrorCode = "INTERNAL"

	// Configuration errors are fatal at startup
	ErrConfigInvalid ErrorCode = "CONFIG_INVALID"
	ErrConfigLoad    ErrorCode = "CONFIG_LOAD"

	// Per-file errors, isolated at the job boundary
	ErrDiscovery ErrorCode = "DISCOVERY"
	ErrRead      ErrorCode = "READ"
	ErrAPI       ErrorCode = "API"
	ErrWrite     ErrorCode = "WRITE"
	ErrCancelled ErrorCode = "CANCELLED"

	// Cache and journal persistence errors are best effort
	ErrCacheIO   ErrorCode = "CACHE_IO"
	ErrJournalIO ErrorCode = "JOURNAL_IO"
)

// Error is a structured error carrying a code and optional details
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}

	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is an *Error with the same code
func (e *Error) Is(target error) bool {
	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}

	return false
}

// New creates an error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates an error with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps err with a code and message. Returns nil if err is nil
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}

	e := New(code, message)
	e.Wrapped = err

	return e
}

// Wrapf wraps err with a code and formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}

	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WithDetail attaches a key/value detail and returns the same error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}

	e.Details[key] = value
	return e
}

// GetCode returns the code of the first *Error in err's chain, or ErrUnknown
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrUnknown
}

// IsErrorCode reports whether err carries the given code
func IsErrorCode(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}
