package errors

import "fmt"

// Category represents the type of error.
type Category string

const (
	CategoryConfig    Category = "config"
	CategoryTransport Category = "transport"
	CategoryState     Category = "state"
	CategorySize      Category = "size"
	CategoryProtocol  Category = "protocol"
)

// SessionError is a structured error with a category, registered code, and
// optional wrapped cause.
type SessionError struct {
	// Code is a unique error identifier (e.g. "W001"). Empty for ad-hoc
	// errors built with Newf.
	Code string

	// Category is the error class (config, transport, ...).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Detail != "" {
		msg = msg + ": " + e.Detail
	}
	if e.Wrapped != nil {
		msg = msg + ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *SessionError) Unwrap() error {
	return e.Wrapped
}

// WithDetail adds a detailed explanation to the error.
func (e *SessionError) WithDetail(format string, args ...any) *SessionError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *SessionError) Wrap(err error) *SessionError {
	e.Wrapped = err
	return e
}

// Is matches registered errors by code so that fresh instances created from
// the same code compare equal under errors.Is.
func (e *SessionError) Is(target error) bool {
	se, ok := target.(*SessionError)
	if !ok {
		return false
	}
	return e.Code != "" && e.Code == se.Code
}

// New creates a SessionError from a registered error code.
func New(code string) *SessionError {
	template, ok := registry[code]
	if !ok {
		return &SessionError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &SessionError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
	}
}

// Newf creates a new SessionError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *SessionError {
	return &SessionError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a SessionError.
func FromError(err error, code string) *SessionError {
	if err == nil {
		return nil
	}
	if se, ok := err.(*SessionError); ok {
		return se
	}
	return New(code).Wrap(err)
}

// CategoryOf returns the category of err, or empty if err is not a
// SessionError.
func CategoryOf(err error) Category {
	if se, ok := err.(*SessionError); ok {
		return se.Category
	}
	return ""
}
