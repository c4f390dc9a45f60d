package labresult

import "context"

// Repository persists one versioned document per test result. Update checks
// the optimistic version and returns ConflictError on mismatch; that check
// is the only serialization mechanism for the extraction workflow.
type Repository interface {
	Create(ctx context.Context, tr *TestResult) error
	Get(ctx context.Context, id string) (*TestResult, error)
	Update(ctx context.Context, tr *TestResult) error
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*TestResult, int, error)
}
