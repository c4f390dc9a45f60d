package timeline

import (
	"time"

	"github.com/carelog/carelog/pkg/recerr"
)

// SourceRecord is the kind-tagged input to normalization. Each source domain
// (appointments, encounters, test results, medications, symptoms) converts
// its own records into this shape.
type SourceRecord struct {
	Kind        EventKind
	SourceID    string
	Date        time.Time
	Title       string
	Description string
	Ref         EventRef
}

// Normalize converts a source record into a canonical timeline event. It is
// a pure transform: no clock reads, no defaulting of missing dates. Records
// without a real event date are rejected because clinical ordering must
// reflect when things happened, not when they were ingested. Color and icon
// are left empty here; the aggregator resolves them at read time.
func Normalize(rec SourceRecord) (TimelineEvent, error) {
	if rec.SourceID == "" {
		return TimelineEvent{}, &recerr.ValidationError{Field: "source_id", Reason: "must not be empty"}
	}
	if rec.Date.IsZero() {
		return TimelineEvent{}, &recerr.ValidationError{Field: "date", Reason: "must carry a resolvable event date"}
	}
	if !rec.Kind.Valid() {
		return TimelineEvent{}, &recerr.ValidationError{Field: "kind", Reason: "unknown event kind " + string(rec.Kind)}
	}
	if !rec.Ref.Matches(rec.Kind) {
		return TimelineEvent{}, &recerr.ValidationError{Field: "ref", Reason: "reference payload must match event kind " + string(rec.Kind)}
	}

	return TimelineEvent{
		ID:          rec.SourceID,
		Kind:        rec.Kind,
		Date:        rec.Date,
		Title:       rec.Title,
		Description: rec.Description,
		Ref:         rec.Ref,
	}, nil
}
