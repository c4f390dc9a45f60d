// Package sources holds the clinical records a patient timeline is derived
// from. The aggregator never reads these tables itself; it consumes the
// SourceRecord snapshot this package produces.
package sources

import (
	"time"

	"github.com/carelog/carelog/internal/domain/timeline"
)

type Appointment struct {
	ID        string    `json:"id" db:"id"`
	PatientID string    `json:"patient_id" db:"patient_id"`
	DoctorID  string    `json:"doctor_id" db:"doctor_id"`
	DateTime  time.Time `json:"date_time" db:"date_time"`
	Type      string    `json:"type" db:"type"`
	Status    string    `json:"status" db:"status"`
	Reason    string    `json:"reason" db:"reason"`
}

func (a Appointment) ToSourceRecord() timeline.SourceRecord {
	title := a.Type
	if title == "" {
		title = "Appointment"
	}
	return timeline.SourceRecord{
		Kind:        timeline.KindAppointment,
		SourceID:    a.ID,
		Date:        a.DateTime,
		Title:       title,
		Description: a.Reason,
		Ref:         timeline.EventRef{AppointmentID: a.ID},
	}
}

type Encounter struct {
	ID             string    `json:"id" db:"id"`
	PatientID      string    `json:"patient_id" db:"patient_id"`
	DoctorID       string    `json:"doctor_id" db:"doctor_id"`
	Date           time.Time `json:"date" db:"date"`
	Type           string    `json:"type" db:"type"`
	ChiefComplaint string    `json:"chief_complaint" db:"chief_complaint"`
}

func (e Encounter) ToSourceRecord() timeline.SourceRecord {
	title := e.Type
	if title == "" {
		title = "Encounter"
	}
	return timeline.SourceRecord{
		Kind:        timeline.KindEncounter,
		SourceID:    e.ID,
		Date:        e.Date,
		Title:       title,
		Description: e.ChiefComplaint,
		Ref:         timeline.EventRef{EncounterID: e.ID},
	}
}

type MedicationChange struct {
	ID           string    `json:"id" db:"id"`
	PatientID    string    `json:"patient_id" db:"patient_id"`
	MedicationID string    `json:"medication_id" db:"medication_id"`
	Name         string    `json:"name" db:"name"`
	Date         time.Time `json:"date" db:"date"`
	Action       string    `json:"action" db:"action"` // started, stopped, dose-changed
}

func (m MedicationChange) ToSourceRecord() timeline.SourceRecord {
	return timeline.SourceRecord{
		Kind:        timeline.KindMedicationChange,
		SourceID:    m.ID,
		Date:        m.Date,
		Title:       m.Name,
		Description: m.Action,
		Ref:         timeline.EventRef{MedicationID: m.MedicationID},
	}
}

type SymptomReport struct {
	ID        string    `json:"id" db:"id"`
	PatientID string    `json:"patient_id" db:"patient_id"`
	Symptom   string    `json:"symptom" db:"symptom"`
	Date      time.Time `json:"date" db:"date"`
	Severity  string    `json:"severity" db:"severity"`
}

func (s SymptomReport) ToSourceRecord() timeline.SourceRecord {
	return timeline.SourceRecord{
		Kind:        timeline.KindSymptomReport,
		SourceID:    s.ID,
		Date:        s.Date,
		Title:       s.Symptom,
		Description: s.Severity,
		Ref:         timeline.EventRef{Symptom: s.Symptom},
	}
}

// TestResultRef is the slice of a test result the timeline needs.
type TestResultRef struct {
	ID         string    `json:"id" db:"id"`
	PatientID  string    `json:"patient_id" db:"patient_id"`
	TestName   string    `json:"test_name" db:"test_name"`
	FileName   string    `json:"file_name" db:"file_name"`
	UploadedAt time.Time `json:"uploaded_at" db:"uploaded_at"`
}

func (t TestResultRef) ToSourceRecord() timeline.SourceRecord {
	title := t.TestName
	if title == "" {
		title = t.FileName
	}
	return timeline.SourceRecord{
		Kind:     timeline.KindTestResult,
		SourceID: t.ID,
		Date:     t.UploadedAt,
		Title:    title,
		Ref:      timeline.EventRef{TestResultID: t.ID},
	}
}
