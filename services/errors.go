package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("Only creator can edit this resource")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// FieldError is one entry of a validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports malformed input, field by field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// ErrInvalidID is returned when an identifier is not 24 hex characters.
var ErrInvalidID = invalid("id", "Id not valid")

func notFound(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

func conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

func unauthorized(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrUnauthorized)
}

func forbidden(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrForbidden)
}

// Message strips the trailing sentinel text so handlers can show the
// human-readable part of a wrapped error.
func Message(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrNotFound, ErrConflict, ErrUnauthorized, ErrForbidden} {
		if errors.Is(err, sentinel) {
			suffix := ": " + sentinel.Error()
			if strings.HasSuffix(msg, suffix) {
				return strings.TrimSuffix(msg, suffix)
			}
		}
	}
	return msg
}
