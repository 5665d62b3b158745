// Package apperr defines the error kinds surfaced by application operations.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers above the service layer
type Kind string

const (
	KindNotFound   Kind = "NOT_FOUND"
	KindForbidden  Kind = "FORBIDDEN"
	KindValidation Kind = "VALIDATION"
	KindUnexpected Kind = "UNEXPECTED"
)

// Status returns the default HTTP status code for the kind
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// String returns the string representation of the kind
func (k Kind) String() string {
	return string(k)
}

// Error is a business error carrying a stable kind and a human readable message
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

// NotFound reports a referenced entity that does not exist
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Forbidden reports an actor without rights over the resource
func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// Validation reports a business rule violation
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Wrap marks err as unexpected while keeping it in the chain
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindUnexpected, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or KindUnexpected
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnexpected
}

// MessageOf returns the business message of err. Unexpected errors never leak detail.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindUnexpected {
		return appErr.Message
	}
	return "系统异常，请联系管理员"
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
