package services

import (
	"errors"
	"fmt"
)

// Common service errors
var (
	ErrNotFound     = errors.New("record not found")
	ErrConflict     = errors.New("record was changed or removed concurrently")
	ErrUnauthorized = errors.New("not authorized")
)

// ValidationError reports bad or missing input. It is raised before any side
// effect: no file is written and no transaction is opened.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError builds a ValidationError with a formatted message
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ReferentialError reports a subtype reference (program or department) that
// does not exist at write time.
type ReferentialError struct {
	Entity string
	ID     uint
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("%s %d does not exist", e.Entity, e.ID)
}

// StorageIOError wraps a filesystem failure
type StorageIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageIOError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageIOError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a relational-store failure, including constraint
// violations that were not caught by an earlier referential check.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// LoggingError wraps an audit-log insert failure. It always aborts the whole
// operation: a mutation that was not logged is treated as a correctness
// violation, not a degraded success.
type LoggingError struct {
	Err error
}

func (e *LoggingError) Error() string {
	return fmt.Sprintf("audit logging failed: %v", e.Err)
}

func (e *LoggingError) Unwrap() error {
	return e.Err
}
