// Package xerrors holds the error kinds shared across the record pipeline.
package xerrors

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is.
var (
	// ErrValidation marks a malformed input row; the row is skipped and the
	// batch continues.
	ErrValidation = errors.New("validation error")

	// ErrUnknownCategory marks a category key outside the registry.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrPersistence marks a storage failure. Nothing of the affected record
	// was committed.
	ErrPersistence = errors.New("persistence error")

	// ErrInvalidBatchFormat marks an import source that cannot be read as
	// tabular data at all.
	ErrInvalidBatchFormat = errors.New("invalid batch format")

	// ErrArchival marks a failed folder archive. It is logged, never returned
	// to the caller of an update.
	ErrArchival = errors.New("archival failure")

	// ErrNotFound marks a missing or soft-deleted record.
	ErrNotFound = errors.New("record not found")
)

// Mark tags err with kind. Both errors.Is(result, kind) and
// errors.Is(result, err) hold.
func Mark(kind, err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", message, kind, err)
}

// Invalid returns a validation error with the given reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
