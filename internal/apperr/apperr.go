// Package apperr classifies errors so the HTTP layer can map them to
// statuses without inspecting vendor or driver internals.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	Unknown Kind = iota
	Validation
	Parse
	Conflict
	NotFound
	Auth
	External
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the classification of err, or Unknown when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Status maps an error kind to an HTTP status. Unknown and External errors
// both report 500; their detail stays server-side.
func Status(err error) int {
	switch KindOf(err) {
	case Validation, Parse:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	case Auth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// SafeMessage returns a message fit for a client. External and unclassified
// errors must not leak vendor detail, so they collapse to a generic statement.
func SafeMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case External, Unknown:
			return "an upstream service failed, please try again"
		default:
			return e.Message
		}
	}
	return "internal server error"
}
