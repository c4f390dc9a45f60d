package recerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"validation", &ValidationError{Field: "date", Reason: "required"}, IsValidation},
		{"not found", &NotFoundError{Entity: "test_result", ID: "TST-1"}, IsNotFound},
		{"conflict", &ConflictError{Entity: "test_result", ID: "TST-1", Reason: "version mismatch"}, IsConflict},
		{"state", &StateError{Entity: "test_result", ID: "TST-1", State: "uploaded", Op: "confirm"}, IsState},
		{"permission", &PermissionError{ActorID: "usr-1", Op: "confirm extraction"}, IsPermission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.pred(tt.err) {
				t.Errorf("predicate did not match %T", tt.err)
			}
			if tt.pred(errors.New("other")) {
				t.Error("predicate matched unrelated error")
			}
		})
	}
}

func TestPredicatesUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("saving: %w", &ConflictError{Entity: "timeline", ID: "PAT-1", Reason: "stale version"})
	if !IsConflict(wrapped) {
		t.Error("expected IsConflict to see through wrapping")
	}
	if IsNotFound(wrapped) {
		t.Error("wrapped conflict should not match IsNotFound")
	}
}

func TestMessages(t *testing.T) {
	e := &StateError{Entity: "test_result", ID: "TST-9", State: "extracting", Op: "confirm"}
	want := `confirm not allowed for test_result TST-9 in state "extracting"`
	if e.Error() != want {
		t.Errorf("got %q, want %q", e.Error(), want)
	}
}
