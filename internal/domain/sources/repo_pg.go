package sources

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelog/carelog/internal/domain/timeline"
)

// repoPG loads the full source snapshot for a patient. Row order within each
// table is fixed (by date, then id) so that the snapshot, and therefore the
// rebuilt timeline, is deterministic.
type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) timeline.SourceLoader {
	return &repoPG{pool: pool}
}

func (r *repoPG) LoadTimelineSources(ctx context.Context, patientID string) ([]timeline.SourceRecord, error) {
	var records []timeline.SourceRecord

	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, doctor_id, date_time, type, status, reason
		FROM appointments WHERE patient_id = $1 ORDER BY date_time, id`, patientID)
	if err != nil {
		return nil, fmt.Errorf("loading appointments: %w", err)
	}
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.DateTime, &a.Type, &a.Status, &a.Reason); err != nil {
			rows.Close()
			return nil, err
		}
		records = append(records, a.ToSourceRecord())
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, patient_id, doctor_id, date, type, chief_complaint
		FROM encounters WHERE patient_id = $1 ORDER BY date, id`, patientID)
	if err != nil {
		return nil, fmt.Errorf("loading encounters: %w", err)
	}
	for rows.Next() {
		var e Encounter
		if err := rows.Scan(&e.ID, &e.PatientID, &e.DoctorID, &e.Date, &e.Type, &e.ChiefComplaint); err != nil {
			rows.Close()
			return nil, err
		}
		records = append(records, e.ToSourceRecord())
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, patient_id, doc->'file'->>'name', COALESCE(doc->'test'->>'test_name', ''), created_at
		FROM test_results WHERE patient_id = $1 ORDER BY created_at, id`, patientID)
	if err != nil {
		return nil, fmt.Errorf("loading test results: %w", err)
	}
	for rows.Next() {
		var t TestResultRef
		if err := rows.Scan(&t.ID, &t.PatientID, &t.FileName, &t.TestName, &t.UploadedAt); err != nil {
			rows.Close()
			return nil, err
		}
		records = append(records, t.ToSourceRecord())
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, patient_id, medication_id, name, date, action
		FROM medication_changes WHERE patient_id = $1 ORDER BY date, id`, patientID)
	if err != nil {
		return nil, fmt.Errorf("loading medication changes: %w", err)
	}
	for rows.Next() {
		var m MedicationChange
		if err := rows.Scan(&m.ID, &m.PatientID, &m.MedicationID, &m.Name, &m.Date, &m.Action); err != nil {
			rows.Close()
			return nil, err
		}
		records = append(records, m.ToSourceRecord())
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, patient_id, symptom, date, severity
		FROM symptom_reports WHERE patient_id = $1 ORDER BY date, id`, patientID)
	if err != nil {
		return nil, fmt.Errorf("loading symptom reports: %w", err)
	}
	for rows.Next() {
		var s SymptomReport
		if err := rows.Scan(&s.ID, &s.PatientID, &s.Symptom, &s.Date, &s.Severity); err != nil {
			rows.Close()
			return nil, err
		}
		records = append(records, s.ToSourceRecord())
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
