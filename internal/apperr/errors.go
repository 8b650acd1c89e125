// Package apperr defines the error kinds the API layer distinguishes.
// Services return these unchanged and the HTTP layer maps them to a status
// code and the response envelope's code/field.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthentication
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
)

// Error is a classified application error. Field names the offending
// request field when there is one.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func Validation(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func Authentication(msg string) *Error {
	return &Error{Kind: KindAuthentication, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

func Conflict(field, msg string) *Error {
	return &Error{Kind: KindConflict, Field: field, Message: msg}
}

func RateLimited(msg string) *Error {
	return &Error{Kind: KindRateLimited, Message: msg}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// Status maps a kind to its HTTP status and envelope code.
func (k Kind) Status() (int, string) {
	switch k {
	case KindValidation:
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case KindAuthentication:
		return http.StatusUnauthorized, "AUTHENTICATION_ERROR"
	case KindForbidden:
		return http.StatusForbidden, "FORBIDDEN"
	case KindNotFound:
		return http.StatusNotFound, "NOT_FOUND"
	case KindConflict:
		return http.StatusConflict, "DUPLICATE_ERROR"
	case KindRateLimited:
		return http.StatusTooManyRequests, "RATE_LIMITED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
