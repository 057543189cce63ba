// apperr/apperr.go - typed error kinds shared by services and handlers
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindPermission
	KindInvalidState
	KindValidation
	KindPersistence
)

var kindNames = map[Kind]string{
	KindUnknown:      "unknown",
	KindNotFound:     "not_found",
	KindPermission:   "permission_denied",
	KindInvalidState: "invalid_state",
	KindValidation:   "validation_failed",
	KindPersistence:  "persistence_failed",
}

// Error carries a kind alongside the message so handlers can map it to an
// HTTP status without string matching.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", kindNames[e.Kind], e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", kindNames[e.Kind], e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Permission(format string, args ...interface{}) *Error {
	return &Error{Kind: KindPermission, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Persistence wraps a gateway write failure. The in-memory mutation stays
// applied; callers surface this as a retryable condition.
func Persistence(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindPersistence, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or KindUnknown for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// KindName returns the wire name used in JSON error envelopes.
func KindName(k Kind) string {
	return kindNames[k]
}

// HTTPStatus maps an error kind to a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindPermission:
		return http.StatusForbidden
	case KindInvalidState:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindPersistence:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
