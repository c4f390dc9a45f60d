package timeline

import (
	"testing"
	"time"

	"github.com/carelog/carelog/pkg/recerr"
)

func TestNormalizeValidRecords(t *testing.T) {
	date := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		rec  SourceRecord
	}{
		{"appointment", SourceRecord{Kind: KindAppointment, SourceID: "APT-1", Date: date, Title: "Follow-up", Ref: EventRef{AppointmentID: "APT-1"}}},
		{"encounter", SourceRecord{Kind: KindEncounter, SourceID: "ENC-1", Date: date, Title: "Clinic visit", Ref: EventRef{EncounterID: "ENC-1"}}},
		{"test result", SourceRecord{Kind: KindTestResult, SourceID: "TST-1", Date: date, Title: "CBC Panel", Ref: EventRef{TestResultID: "TST-1"}}},
		{"medication change", SourceRecord{Kind: KindMedicationChange, SourceID: "MED-1", Date: date, Title: "Started lisinopril", Ref: EventRef{MedicationID: "MED-1"}}},
		{"symptom report", SourceRecord{Kind: KindSymptomReport, SourceID: "SYM-1", Date: date, Title: "Headache", Ref: EventRef{Symptom: "headache"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Normalize(tt.rec)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if ev.ID != tt.rec.SourceID {
				t.Errorf("ID = %q, want %q", ev.ID, tt.rec.SourceID)
			}
			if !ev.Date.Equal(date) {
				t.Errorf("Date = %v, want %v", ev.Date, date)
			}
			if ev.Color != "" || ev.Icon != "" {
				t.Error("normalization must not assign display defaults")
			}
		})
	}
}

func TestNormalizeRejections(t *testing.T) {
	date := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		rec  SourceRecord
	}{
		{"empty id", SourceRecord{Kind: KindAppointment, Date: date, Ref: EventRef{AppointmentID: "APT-1"}}},
		{"zero date", SourceRecord{Kind: KindAppointment, SourceID: "APT-1", Ref: EventRef{AppointmentID: "APT-1"}}},
		{"unknown kind", SourceRecord{Kind: "surgery", SourceID: "S-1", Date: date, Ref: EventRef{AppointmentID: "S-1"}}},
		{"ref kind mismatch", SourceRecord{Kind: KindEncounter, SourceID: "ENC-1", Date: date, Ref: EventRef{AppointmentID: "APT-1"}}},
		{"empty ref", SourceRecord{Kind: KindEncounter, SourceID: "ENC-1", Date: date}},
		{"two refs set", SourceRecord{Kind: KindEncounter, SourceID: "ENC-1", Date: date, Ref: EventRef{EncounterID: "ENC-1", Symptom: "cough"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.rec)
			if !recerr.IsValidation(err) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	rec := SourceRecord{
		Kind:     KindTestResult,
		SourceID: "TST-9",
		Date:     time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		Title:    "Lipid Panel",
		Ref:      EventRef{TestResultID: "TST-9"},
	}
	a, err := Normalize(rec)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Normalize(rec)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("two normalizations of the same record differ")
	}
}
