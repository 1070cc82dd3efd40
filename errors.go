// Package sqlassist generates dialect-aware SQL statements and their bound
// parameters from entity metadata and composable query-shaping options.
//
// The generation engine lives in the assist and statement packages and never
// performs I/O. The client package hands the generated statements to an
// executor from dialect/sql.
package sqlassist

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common operations.
var (
	// ErrInvalidStatement is returned when a statement could not be generated
	// from the given input and was never sent to the database.
	ErrInvalidStatement = errors.New("sqlassist: invalid statement")

	// ErrNotImplemented is returned when the target dialect has no syntax for
	// the requested statement form (e.g. upsert on Oracle).
	ErrNotImplemented = errors.New("sqlassist: not implemented by dialect")

	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("sqlassist: record not found")

	// ErrConstraint is returned when the database rejected a statement because
	// of a constraint violation.
	ErrConstraint = errors.New("sqlassist: constraint failed")
)

// InvalidStatementError reports a statement that was diagnosed as not
// executable before reaching the database.
type InvalidStatementError struct {
	// Op is the builder operation that produced the diagnosis, e.g. "UpdateAllByIDSQL".
	Op string
	// Reason is the fixed diagnostic string of the invalid result.
	Reason string
	// NotImplemented is set when the dialect lacks the capability.
	NotImplemented bool
}

// Error returns the error string.
func (e *InvalidStatementError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("sqlassist: %s: %s", e.Op, e.Reason)
	}
	return "sqlassist: " + e.Reason
}

// Is reports whether the target matches ErrInvalidStatement, or
// ErrNotImplemented for capability gaps.
func (e *InvalidStatementError) Is(target error) bool {
	switch target {
	case ErrInvalidStatement:
		return true
	case ErrNotImplemented:
		return e.NotImplemented
	}
	return false
}

// IsInvalidStatement returns true if the error is an InvalidStatementError.
func IsInvalidStatement(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidStatementError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidStatement)
}

// IsNotImplemented returns true if the error reports a dialect capability gap.
func IsNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNotImplemented)
}

// NotFoundError represents an error when a record is not found.
type NotFoundError struct {
	table string
	id    any // Optional: the primary key that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("sqlassist: %s not found (id=%v)", e.table, e.id)
	}
	return fmt.Sprintf("sqlassist: %s not found", e.table)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Table returns the table name.
func (e *NotFoundError) Table() string {
	return e.table
}

// ID returns the primary key that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given table.
func NewNotFoundError(table string) *NotFoundError {
	return &NotFoundError{table: table}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the primary key that was searched for.
func NewNotFoundErrorWithID(table string, id any) *NotFoundError {
	return &NotFoundError{table: table, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// ConstraintKind classifies a constraint violation.
type ConstraintKind string

// Constraint kinds recognised from driver errors.
const (
	UniqueConstraint     ConstraintKind = "unique"
	ForeignKeyConstraint ConstraintKind = "foreign key"
	CheckConstraint      ConstraintKind = "check"
)

// ConstraintError represents a database constraint violation error.
type ConstraintError struct {
	Kind ConstraintKind
	wrap error
}

// Error returns the error string.
func (e *ConstraintError) Error() string {
	return fmt.Sprintf("sqlassist: %s constraint failed: %s", e.Kind, e.wrap)
}

// Unwrap returns the underlying driver error.
func (e *ConstraintError) Unwrap() error {
	return e.wrap
}

// Is reports whether the target matches ErrConstraint.
func (e *ConstraintError) Is(target error) bool {
	return target == ErrConstraint
}

// NewConstraintError returns a new ConstraintError wrapping the driver error.
func NewConstraintError(kind ConstraintKind, wrap error) *ConstraintError {
	return &ConstraintError{Kind: kind, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConstraintError
	return errors.As(err, &e)
}
