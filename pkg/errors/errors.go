package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the failure classes a reconciliation cycle distinguishes
type ErrorType string

const (
	// ErrorTypeSession means the login UI showed up where a profile was expected.
	// The whole cycle aborts.
	ErrorTypeSession ErrorType = "session"
	// ErrorTypeStructural means a list overlay or expected control never appeared.
	// Only the enclosing pass aborts.
	ErrorTypeStructural ErrorType = "structural"
	// ErrorTypeCandidate is any failure while evaluating or acting on one candidate.
	ErrorTypeCandidate  ErrorType = "candidate"
	ErrorTypeNavigation ErrorType = "navigation"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeStore      ErrorType = "store"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error is a classified error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error
func New(t ErrorType, msg string) *Error {
	return &Error{Type: t, Message: msg}
}

// Wrap classifies an underlying error
func Wrap(t ErrorType, msg string, err error) *Error {
	return &Error{Type: t, Message: msg, Err: err}
}

// TypeOf returns the type of the outermost classified error in the chain
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether any classified error in the chain has the given type
func Is(err error, t ErrorType) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Type == t {
			return true
		}
		err = e.Err
	}
	return false
}

// IsFatal checks if an error must abort the entire cycle
func IsFatal(err error) bool {
	return Is(err, ErrorTypeSession)
}

// IsStructural checks if an error must abort the enclosing pass
func IsStructural(err error) bool {
	return Is(err, ErrorTypeStructural)
}

// ErrSessionInvalid is returned when the platform shows its login form
var ErrSessionInvalid = New(ErrorTypeSession, "login form detected, session invalid or expired")
