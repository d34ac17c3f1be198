// Package apperr defines the error taxonomy shared by the services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies an error for callers deciding how to react.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindUnauthorized Kind = "unauthorized"
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindServerFault  Kind = "server_fault"
)

// Reason narrows a Conflict.
type Reason string

const (
	ReasonDuplicateApplication   Reason = "duplicate_application"
	ReasonJobFull                Reason = "job_full"
	ReasonDeadlinePassed         Reason = "deadline_passed"
	ReasonJobNotActive           Reason = "job_not_active"
	ReasonInvalidStateTransition Reason = "invalid_state_transition"
	ReasonConcurrentUpdate       Reason = "concurrent_update"
)

// Error is a classified failure with a human-readable message.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string
	// Fields maps each invalid field to its violation, for KindValidation.
	Fields map[string]string
	Err    error
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

// Is matches another *Error by kind and, when set on the target, reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...interface{}) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func Conflict(reason Reason, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure. The message stays generic; err is kept for logs.
func Internal(err error, message string) *Error {
	return &Error{Kind: KindServerFault, Message: message, Err: err}
}

// Validation builds a validation error from field violations.
func Validation(fields map[string]string) *Error {
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return &Error{
		Kind:    KindValidation,
		Message: "validation failed: " + strings.Join(names, ", "),
		Fields:  fields,
	}
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrForbidden            = &Error{Kind: KindForbidden}
	ErrValidation           = &Error{Kind: KindValidation}
	ErrConflict             = &Error{Kind: KindConflict}
	ErrDuplicateApplication = &Error{Kind: KindConflict, Reason: ReasonDuplicateApplication}
	ErrJobFull              = &Error{Kind: KindConflict, Reason: ReasonJobFull}
	ErrDeadlinePassed       = &Error{Kind: KindConflict, Reason: ReasonDeadlinePassed}
	ErrJobNotActive         = &Error{Kind: KindConflict, Reason: ReasonJobNotActive}
	ErrInvalidTransition    = &Error{Kind: KindConflict, Reason: ReasonInvalidStateTransition}
	ErrConcurrentUpdate     = &Error{Kind: KindConflict, Reason: ReasonConcurrentUpdate}
)

// As extracts the *Error from err, treating anything unclassified as a server fault.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err, "internal server error")
}

// HTTPStatus maps an error to its transport status code.
func HTTPStatus(err error) int {
	switch As(err).Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether repeating the same request may succeed.
// Only server faults are; conflicts and validation failures are not.
func Retryable(err error) bool {
	return As(err).Kind == KindServerFault
}
