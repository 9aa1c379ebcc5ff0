package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
	ErrConflict   = errors.New("conflict")
	ErrUpstream   = errors.New("upstream failure")
)

// Kind narrows a sentinel into the category reported to clients.
// ErrValidation covers two kinds: a missing field and a badly formatted one.
type Kind string

const (
	KindMissingField            Kind = "missing_field"
	KindInvalidFormat           Kind = "invalid_format"
	KindNotFound                Kind = "not_found"
	KindConflict                Kind = "conflict"
	KindExternalResourceMissing Kind = "external_resource_missing"
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Kind    Kind   // Category, finer grained than Err
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
		Kind:    KindNotFound,
	}
}

// NotFoundMessage is NotFound with caller-supplied text.
func NotFoundMessage(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
		Kind:    KindNotFound,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Kind:    KindInvalidFormat,
	}
}

// MissingField reports a required field that was absent or empty.
func MissingField(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Kind:    KindMissingField,
	}
}

// InvalidFormat reports a field that was present but malformed.
func InvalidFormat(field, message string) *AppError {
	return ValidationFailed(field, message)
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
		Kind:    KindConflict,
	}
}

// ConflictMessage is Conflict with caller-supplied text.
func ConflictMessage(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
		Kind:    KindConflict,
	}
}

// Upstream reports a failed call to an external collaborator (the object store).
// cause is kept in the chain so callers can still errors.Is against it.
// HTTP handlers map this to 502 Bad Gateway.
func Upstream(message string, cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrUpstream, cause),
		Message: message,
		Kind:    KindExternalResourceMissing,
	}
}

// KindOf returns the Kind of the first AppError in err's chain, or "" if none.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
