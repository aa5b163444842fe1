package models

import (
	"errors"
	"fmt"
)

// Error kinds. Every typed error below unwraps to one of these so callers can
// branch with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrMalformedRecord = errors.New("malformed record")
	ErrStorageIO       = errors.New("storage i/o failed")
)

// NotFoundError reports a task id or note file that does not exist.
type NotFoundError struct {
	Kind string // "task", "thought"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError reports a missing or malformed field, or an attempt to
// change an immutable one.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// MalformedRecordError reports a stored task file that cannot be parsed.
type MalformedRecordError struct {
	Path string
	Err  error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("%s %s: %v", ErrMalformedRecord, e.Path, e.Err)
}

func (e *MalformedRecordError) Unwrap() []error { return []error{ErrMalformedRecord, e.Err} }

// StorageIOError reports a failed read, write or move against the text store.
type StorageIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageIOError) Unwrap() []error { return []error{ErrStorageIO, e.Err} }

// ErrorKind names the kind of err for transport surfaces ("not_found",
// "validation", "malformed_record", "storage_io"), or "internal".
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrMalformedRecord):
		return "malformed_record"
	case errors.Is(err, ErrStorageIO):
		return "storage_io"
	default:
		return "internal"
	}
}
