// Package apperr defines the error taxonomy shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a session, target, observation or farm does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBadRequest is returned for illegal transitions, locked sessions and malformed input.
	ErrBadRequest = errors.New("bad request")

	// ErrConflict is returned for stale versions and idempotency key collisions.
	ErrConflict = errors.New("conflict")

	// ErrForbidden is returned when the actor lacks the role or farm relation required.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized is returned when no actor could be resolved for the request.
	ErrUnauthorized = errors.New("unauthorized")
)

// NotFound wraps ErrNotFound with a formatted detail message.
func NotFound(format string, args ...any) error {
	return wrap(ErrNotFound, format, args...)
}

// BadRequest wraps ErrBadRequest with a formatted detail message.
func BadRequest(format string, args ...any) error {
	return wrap(ErrBadRequest, format, args...)
}

// Conflict wraps ErrConflict with a formatted detail message.
func Conflict(format string, args ...any) error {
	return wrap(ErrConflict, format, args...)
}

// Forbidden wraps ErrForbidden with a formatted detail message.
func Forbidden(format string, args ...any) error {
	return wrap(ErrForbidden, format, args...)
}

// Unauthorized wraps ErrUnauthorized with a formatted detail message.
func Unauthorized(format string, args ...any) error {
	return wrap(ErrUnauthorized, format, args...)
}

// Detail returns the message without the taxonomy prefix, for API responses.
func Detail(err error) string {
	var d *detailed
	if errors.As(err, &d) {
		return d.msg
	}
	return err.Error()
}

type detailed struct {
	kind error
	msg  string
}

func (d *detailed) Error() string { return d.kind.Error() + ": " + d.msg }

func (d *detailed) Unwrap() error { return d.kind }

func wrap(kind error, format string, args ...any) error {
	return &detailed{kind: kind, msg: fmt.Sprintf(format, args...)}
}
