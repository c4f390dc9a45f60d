// Package recerr defines the error taxonomy shared by the record
// reconciliation core. Every mutation either returns the new entity state or
// one of these named errors; none of them is fatal to the process.
package recerr

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or missing required input. The caller
// fixes the input and retries; it is never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a dangling identifier.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError reports an optimistic version mismatch or an operation that
// is already in flight for the same entity. Recoverable: re-read and retry.
type ConflictError struct {
	Entity string
	ID     string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s %s: %s", e.Entity, e.ID, e.Reason)
}

// StateError reports an operation attempted from an illegal lifecycle state.
// It indicates a caller logic error and is surfaced, not retried.
type StateError struct {
	Entity string
	ID     string
	State  string
	Op     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s not allowed for %s %s in state %q", e.Op, e.Entity, e.ID, e.State)
}

// PermissionError reports an actor lacking the capability an operation
// requires. Surfaced unchanged from the authorization collaborator.
type PermissionError struct {
	ActorID string
	Op      string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("actor %s not permitted to %s", e.ActorID, e.Op)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsState reports whether err is a StateError.
func IsState(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// IsPermission reports whether err is a PermissionError.
func IsPermission(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}
