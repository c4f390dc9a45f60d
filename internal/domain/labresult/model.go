package labresult

import (
	"time"
)

// LabStatus classifies a measured value against its reference range.
type LabStatus string

const (
	StatusBelow   LabStatus = "below"
	StatusWithin  LabStatus = "within"
	StatusAbove   LabStatus = "above"
	StatusUnknown LabStatus = "unknown"
)

// ExtractionState is the lifecycle state of an uploaded document.
type ExtractionState string

const (
	StateUploaded   ExtractionState = "uploaded"
	StateExtracting ExtractionState = "extracting"
	StateExtracted  ExtractionState = "extracted"
	StateConfirmed  ExtractionState = "confirmed"
)

// beginFrom lists the states extraction may start from. Extracting is
// excluded: one extraction in flight per document.
var beginFrom = map[ExtractionState]bool{
	StateUploaded:  true,
	StateExtracted: true,
	StateConfirmed: true,
}

// FileInfo is the metadata of the uploaded document backing a test result.
type FileInfo struct {
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
	StorageRef  string    `json:"storage_ref"`
}

// TestInfo carries secondary context about the test itself, when known.
type TestInfo struct {
	TestName  string     `json:"test_name,omitempty"`
	TestDate  *time.Time `json:"test_date,omitempty"`
	OrderedBy string     `json:"ordered_by,omitempty"`
	LabName   string     `json:"lab_name,omitempty"`
}

// ExtractionRecord documents one extraction attempt. It is replaced
// wholesale on re-extraction, never appended to.
type ExtractionRecord struct {
	Extracted   bool       `json:"extracted"`
	ExtractedAt *time.Time `json:"extracted_at,omitempty"`
	Method      string     `json:"method,omitempty"`
	RawText     string     `json:"raw_text,omitempty"`
	Confirmed   bool       `json:"confirmed"`
	ConfirmedBy string     `json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// LabValue is one measured test component. Status is always a pure function
// of Value and ReferenceRange, recomputed on every change. Its confirmation
// is independent of the parent extraction's.
type LabValue struct {
	ID             string     `json:"id"`
	TestName       string     `json:"test_name"`
	Value          string     `json:"value"`
	Unit           string     `json:"unit,omitempty"`
	ReferenceRange string     `json:"reference_range,omitempty"`
	Status         LabStatus  `json:"status"`
	Notes          string     `json:"notes,omitempty"`
	Confirmed      bool       `json:"confirmed"`
	ConfirmedBy    string     `json:"confirmed_by,omitempty"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
	// ModifiedAfterConfirm flags values edited after the parent extraction
	// was confirmed, for audit. Edits never revert the parent confirmation.
	ModifiedAfterConfirm bool       `json:"modified_after_confirm"`
	UploadedBy           string     `json:"uploaded_by,omitempty"`
	TestDate             *time.Time `json:"test_date,omitempty"`
	OrderedBy            string     `json:"ordered_by,omitempty"`
	LabName              string     `json:"lab_name,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// TestResult is one uploaded document and everything derived from it. It is
// persisted as a single versioned document; LabValues are embedded so that
// classification and confirmation updates commit atomically with the parent
// version check.
type TestResult struct {
	ID         string            `json:"id" db:"id"`
	PatientID  string            `json:"patient_id" db:"patient_id"`
	DoctorID   string            `json:"doctor_id,omitempty" db:"doctor_id"`
	File       FileInfo          `json:"file"`
	Test       TestInfo          `json:"test"`
	Extraction *ExtractionRecord `json:"extraction,omitempty"`
	LabValues  []LabValue        `json:"lab_values"`
	State      ExtractionState   `json:"state" db:"state"`
	// PriorState remembers the state that preceded Extracting so an aborted
	// extraction can return there instead of getting stuck.
	PriorState ExtractionState `json:"prior_state,omitempty"`
	// PendingMethod is the method announced at BeginExtraction, stamped onto
	// the extraction record at completion.
	PendingMethod string    `json:"pending_method,omitempty"`
	Version       int       `json:"version" db:"version"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// findValue returns a pointer into LabValues, or nil.
func (tr *TestResult) findValue(labValueID string) *LabValue {
	for i := range tr.LabValues {
		if tr.LabValues[i].ID == labValueID {
			return &tr.LabValues[i]
		}
	}
	return nil
}

// Candidate is one structured lab value proposed by the extraction engine.
type Candidate struct {
	TestName       string `json:"test_name"`
	Value          any    `json:"value"`
	Unit           string `json:"unit,omitempty"`
	ReferenceRange string `json:"reference_range,omitempty"`
	Notes          string `json:"notes,omitempty"`
	UploadedBy     string `json:"uploaded_by,omitempty"`
}

// LabValuePatch is a partial update to a lab value. Nil fields are left
// unchanged.
type LabValuePatch struct {
	TestName       *string `json:"test_name,omitempty"`
	Value          *string `json:"value,omitempty"`
	Unit           *string `json:"unit,omitempty"`
	ReferenceRange *string `json:"reference_range,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}
