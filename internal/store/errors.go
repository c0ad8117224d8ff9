package store

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a persistence error with an HTTP status code.
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same status code, so ErrNotFound.WithMessage(..)
// still satisfies errors.Is(err, ErrNotFound).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithMessage returns a copy with a specific message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg, Err: e.Err}
}

// WithCause returns a copy wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "resource already exists",
	}
)

// Entity-specific not found errors. All match ErrNotFound.
var (
	ErrUserNotFound    = ErrNotFound.WithMessage("user not found")
	ErrSessionNotFound = ErrNotFound.WithMessage("session not found")
	ErrBookNotFound    = ErrNotFound.WithMessage("book not found")
	ErrSectionNotFound = ErrNotFound.WithMessage("section not found")
	ErrChapterNotFound = ErrNotFound.WithMessage("chapter not found")
	ErrTopicNotFound   = ErrNotFound.WithMessage("topic not found")
	ErrSlotNotFound    = ErrNotFound.WithMessage("Slot not found.")
	ErrExamNotFound    = ErrNotFound.WithMessage("exam not found")
	ErrEmailExists     = ErrAlreadyExists.WithMessage("email already in use")
)

// IsNotFound reports whether err is any not-found store error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists reports whether err is a uniqueness conflict.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}
