// Package apperr classifies service errors so handlers can map them to HTTP
// statuses and tell permanent failures from retryable ones.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is the error class.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindAlreadyIssued Kind = "already_issued"
	KindAlreadyVoided Kind = "already_voided"
	KindLockTimeout   Kind = "lock_timeout"
	KindRenderFailure Kind = "render_failure"
	KindPersistence   Kind = "persistence"
)

// Error carries a Kind, a user-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same Kind, so sentinel values declared
// with New can be compared with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

func Persistence(err error) *Error {
	return Wrap(KindPersistence, "Internal Server Error", err)
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindPersistence when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

// HasKind reports whether err carries kind.
func HasKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Retryable reports whether the caller may resubmit the same request unchanged.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindLockTimeout, KindRenderFailure:
		return true
	}
	return false
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyIssued, KindAlreadyVoided:
		return http.StatusConflict
	case KindLockTimeout, KindRenderFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to show a client. Persistence errors never
// leak their cause.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindPersistence {
		return "Internal Server Error"
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error()
}
