package timeline

import "context"

// Repository persists one versioned timeline document per patient.
type Repository interface {
	// Load returns the stored timeline for a patient, or NotFoundError.
	Load(ctx context.Context, patientID string) (*Timeline, error)
	// Save writes the timeline, checking the optimistic version. A version
	// mismatch returns ConflictError; on success the stored version is
	// incremented and reflected on the passed timeline.
	Save(ctx context.Context, tl *Timeline) error
}

// SourceLoader returns the current snapshot of every record that feeds a
// patient's timeline.
type SourceLoader interface {
	LoadTimelineSources(ctx context.Context, patientID string) ([]SourceRecord, error)
}
