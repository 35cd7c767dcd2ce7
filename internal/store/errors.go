package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrValidation matches any *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrStorage matches any *StorageError via errors.Is.
	ErrStorage = errors.New("storage failure")
	// ErrNotFound is returned when a memory id does not exist in the namespace.
	ErrNotFound = errors.New("memory not found")
	// ErrRowCountMismatch is returned when a batched mutation touched an unexpected number of rows.
	ErrRowCountMismatch = errors.New("affected row count mismatch")
	// ErrIDConflict is returned when a write reuses an id owned by another
	// namespace. It also matches ErrValidation.
	ErrIDConflict = errors.New("id belongs to another namespace")
)

// ValidationError reports malformed input rejected before any storage access.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// StorageError wraps an engine failure. It is only returned after any
// in-flight transaction has been rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// guardErr maps a failed ownership guard to ErrIDConflict.
func guardErr(res TxResult, guards int, field string, err error) error {
	if res.FailedOp >= 0 && res.FailedOp < guards && errors.Is(err, ErrRowCountMismatch) {
		return fmt.Errorf("%w: %w", ErrIDConflict, invalid(field, "already used in another namespace"))
	}
	return err
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// Error type labels used for metrics.
const (
	ErrTypeValidation = "validation"
	ErrTypeStorage    = "storage"
	ErrTypeNotFound   = "not_found"
	ErrTypeTimeout    = "timeout"
	ErrTypeUnknown    = "unknown"
)

// ClassifyError maps an error to a low-cardinality label.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return ErrTypeValidation
	case errors.Is(err, ErrNotFound):
		return ErrTypeNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrTypeTimeout
	case errors.Is(err, ErrStorage):
		return ErrTypeStorage
	default:
		return ErrTypeUnknown
	}
}
