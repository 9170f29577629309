// Package apperr defines the error taxonomy shared by handlers, stores and
// services. Every failure a client can observe is one of these kinds; the
// HTTP layer maps kinds to status codes in exactly one place.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	// KindInternal is the fallback for unclassified failures (HTTP 500).
	KindInternal Kind = iota
	// KindValidation covers malformed or missing input (HTTP 400).
	KindValidation
	// KindNotFound covers absent contracts, documents and users (HTTP 404).
	KindNotFound
	// KindForbidden covers authenticated but unauthorized access (HTTP 403).
	KindForbidden
	// KindConflict covers stale optimistic-version writes (HTTP 409).
	KindConflict
	// KindStorage covers a metadata record whose file is missing on disk
	// (HTTP 404, "File not found on server").
	KindStorage
)

// FieldError describes one violated field of a validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the single concrete error type of the taxonomy.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
}

func (e *Error) Error() string {
	if e.Kind == KindValidation && len(e.Fields) > 0 {
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			parts[i] = f.Field + ": " + f.Message
		}
		return e.Message + " (" + strings.Join(parts, "; ") + ")"
	}
	return e.Message
}

// Validation builds a validation error carrying every violated field.
func Validation(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: "Validation failed", Fields: fields}
}

// Validationf builds a single-field validation error.
func Validationf(field, format string, args ...any) *Error {
	return Validation(FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func Storage(msg string) *Error {
	return &Error{Kind: KindStorage, Message: msg}
}

// As unwraps err into *Error if it belongs to the taxonomy.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the taxonomy kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}
