package timeline

import (
	"time"
)

// EventKind is the closed set of clinical occurrence types that appear on a
// patient timeline.
type EventKind string

const (
	KindAppointment      EventKind = "appointment"
	KindEncounter        EventKind = "encounter"
	KindTestResult       EventKind = "test-result"
	KindMedicationChange EventKind = "medication-change"
	KindSymptomReport    EventKind = "symptom-report"
)

// Kinds lists every valid event kind.
var Kinds = []EventKind{
	KindAppointment,
	KindEncounter,
	KindTestResult,
	KindMedicationChange,
	KindSymptomReport,
}

func (k EventKind) Valid() bool {
	switch k {
	case KindAppointment, KindEncounter, KindTestResult, KindMedicationChange, KindSymptomReport:
		return true
	}
	return false
}

// EventRef is the kind-specific payload of a timeline event. Exactly one
// field is populated, and it must agree with the event kind.
type EventRef struct {
	AppointmentID string `json:"appointment_id,omitempty"`
	EncounterID   string `json:"encounter_id,omitempty"`
	TestResultID  string `json:"test_result_id,omitempty"`
	MedicationID  string `json:"medication_id,omitempty"`
	Symptom       string `json:"symptom,omitempty"`
}

// populated returns the set fields as (value per kind, count).
func (r EventRef) populated() map[EventKind]string {
	set := make(map[EventKind]string, 1)
	if r.AppointmentID != "" {
		set[KindAppointment] = r.AppointmentID
	}
	if r.EncounterID != "" {
		set[KindEncounter] = r.EncounterID
	}
	if r.TestResultID != "" {
		set[KindTestResult] = r.TestResultID
	}
	if r.MedicationID != "" {
		set[KindMedicationChange] = r.MedicationID
	}
	if r.Symptom != "" {
		set[KindSymptomReport] = r.Symptom
	}
	return set
}

// Matches reports whether exactly one reference field is set and it belongs
// to the given kind.
func (r EventRef) Matches(kind EventKind) bool {
	set := r.populated()
	if len(set) != 1 {
		return false
	}
	_, ok := set[kind]
	return ok
}

// TimelineEvent is one clinical occurrence on a patient timeline.
type TimelineEvent struct {
	ID          string    `json:"id"`
	Kind        EventKind `json:"kind"`
	Date        time.Time `json:"date"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Ref         EventRef  `json:"ref"`
	Color       string    `json:"color,omitempty"`
	Icon        string    `json:"icon,omitempty"`
}

// Timeline is the merged, ordered event sequence for one patient. It is a
// derived document: always rebuilt from source records, never hand-edited.
type Timeline struct {
	ID        string          `json:"id" db:"id"`
	PatientID string          `json:"patient_id" db:"patient_id"`
	Events    []TimelineEvent `json:"events" db:"events"`
	Version   int             `json:"version" db:"version"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Display holds the per-kind presentation hints resolved for events that
// carry none of their own.
type Display struct {
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// KindDefaults maps each event kind to its default display hints. Injected
// into the Service at construction so deployments can swap palettes without
// touching stored events.
type KindDefaults map[EventKind]Display

// DefaultKindDefaults returns the standard palette.
func DefaultKindDefaults() KindDefaults {
	return KindDefaults{
		KindAppointment:      {Color: "#FF9800", Icon: "event"},
		KindEncounter:        {Color: "#9C27B0", Icon: "medical_services"},
		KindTestResult:       {Color: "#2196F3", Icon: "science"},
		KindMedicationChange: {Color: "#4CAF50", Icon: "medication"},
		KindSymptomReport:    {Color: "#F44336", Icon: "sick"},
	}
}
