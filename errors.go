// Package quill is a small declarative ORM engine: entity schemas built from
// validated fields, a lazy chainable query builder compiled to parameterized
// SQL, transactional persistence, and an ordered schema-migration runner.
//
// This file defines the error taxonomy shared by every component.
package quill

import (
	"errors"
	"fmt"

	"github.com/quillorm/quill/fields"
)

// ErrNotFound indicates that no record matched the query.
// Returned by Get(), First(), Last(), Refresh() and friends.
//
// Usage example:
//
//	user, err := users.Objects().Get(ctx, quill.Values{"id": 42})
//	if errors.Is(err, quill.ErrNotFound) {
//	    // no such user
//	}
var ErrNotFound = errors.New("quill: record not found")

// ErrMultipleObjects indicates that Get() matched more than one record.
var ErrMultipleObjects = errors.New("quill: get matched more than one record")

// ErrImproperlyConfigured indicates a programmer misconfiguration, most
// commonly an operation with no resolvable Database binding.
var ErrImproperlyConfigured = errors.New("quill: improperly configured")

// ErrNestedTransaction is returned when Transaction() is called while a
// transaction is already open on the same Database. Nested transactions are
// not supported and fail fast instead of silently flattening.
var ErrNestedTransaction = errors.New("quill: transaction already in progress")

// ErrNotConnected is returned by statement execution when the Database has
// been explicitly disconnected.
var ErrNotConnected = errors.New("quill: database is not connected")

// ErrUnsaved is returned by Delete() and Refresh() on instances that were
// never saved (or were deleted since).
var ErrUnsaved = errors.New("quill: instance is not saved")

// ValidationError reports a field-contract violation. It is raised
// synchronously from the validating setter and from FullClean, and is never
// downgraded to a default value. The concrete type lives in the fields
// package; this alias keeps errors.As checks working against either import.
type ValidationError = fields.ValidationError

// FieldError reports a reference to a field the schema does not declare,
// e.g. an unknown filter key or update column.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("quill: unknown field %q", e.Field)
}

// DatabaseError wraps a driver-level failure. The wrapped statement has been
// rolled back before the error surfaces, so the connection is in a known
// clean state.
type DatabaseError struct {
	Op  string // "exec", "query", "begin", "commit", ...
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("quill: database error during %s: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }
