// Package apperr defines the error taxonomy shared by every service. Each error
// carries a message that is safe to show to clients and, separately, the
// underlying cause that only ever reaches the server log.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure for status-code mapping.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindIntegrity    Kind = "integrity"
	KindDependency   Kind = "dependency"
	KindProvisioning Kind = "provisioning"
	KindInternal     Kind = "internal"
)

// Error is the typed failure returned at service boundaries.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, apperr.ErrNotFound) match any error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Kind-only sentinels for errors.Is checks.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrIntegrity    = &Error{Kind: KindIntegrity}
	ErrDependency   = &Error{Kind: KindDependency}
	ErrProvisioning = &Error{Kind: KindProvisioning}
)

func Validation(msg string) error { return &Error{Kind: KindValidation, Message: msg} }

func Unauthorized(msg string) error { return &Error{Kind: KindUnauthorized, Message: msg} }

func Forbidden(msg string) error { return &Error{Kind: KindForbidden, Message: msg} }

func NotFound(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }

func Integrity(msg string, cause error) error {
	return &Error{Kind: KindIntegrity, Message: msg, Err: cause}
}

func Dependency(msg string, cause error) error {
	return &Error{Kind: KindDependency, Message: msg, Err: cause}
}

func Provisioning(msg string, cause error) error {
	return &Error{Kind: KindProvisioning, Message: msg, Err: cause}
}

func Internal(msg string, cause error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: cause}
}

// KindOf reports the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindDependency:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the client-safe text for err. Untyped errors never
// leak their text.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal server error"
}
