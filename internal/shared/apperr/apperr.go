// Package apperr holds the error taxonomy shared by services and the single
// mapping from those errors to HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindStorage
	KindAuth
	KindForbidden
)

// Error is the typed error returned by the core. Label is the short machine
// label written to the envelope's "error" field.
type Error struct {
	Kind    Kind
	Label   string
	Message string
	Fields  []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Details is the raw collaborator error text, if any.
func (e *Error) Details() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func MissingFields(fields ...string) *Error {
	return &Error{
		Kind:    KindValidation,
		Label:   "missing_fields",
		Message: "missing required fields: " + strings.Join(fields, ", "),
		Fields:  fields,
	}
}

// MergeMissing adds fields to the missing-field error err, or reports them
// alone when err is nil or another failure. Missing fields take precedence.
func MergeMissing(err error, fields ...string) error {
	if len(fields) == 0 {
		return err
	}
	var e *Error
	if errors.As(err, &e) && e.Label == "missing_fields" {
		return MissingFields(append(append([]string{}, e.Fields...), fields...)...)
	}
	return MissingFields(fields...)
}

func InvalidField(field string, allowed ...string) *Error {
	msg := "invalid value for " + field
	if len(allowed) > 0 {
		msg += " (expected one of: " + strings.Join(allowed, ", ") + ")"
	}
	return &Error{
		Kind:    KindValidation,
		Label:   "invalid_field",
		Message: msg,
		Fields:  []string{field},
	}
}

func Validation(format string, args ...any) *Error {
	return &Error{
		Kind:    KindValidation,
		Label:   "validation_error",
		Message: fmt.Sprintf(format, args...),
	}
}

func NotFound(entity string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Label:   "not_found",
		Message: entity + " not found",
	}
}

func Storage(op string, err error) *Error {
	return &Error{
		Kind:    KindStorage,
		Label:   "storage_error",
		Message: "failed to " + op,
		Err:     err,
	}
}

func Unauthorized(msg string) *Error {
	return &Error{
		Kind:    KindAuth,
		Label:   "unauthorized",
		Message: msg,
	}
}

func Forbidden(msg string) *Error {
	return &Error{
		Kind:    KindForbidden,
		Label:   "forbidden",
		Message: msg,
	}
}

// Is reports whether err carries an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
