package labresult

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelog/carelog/pkg/recerr"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

// docFields is the JSONB payload of a test_results row. Identity, state, and
// version live in columns so they can be queried and checked; everything
// else is document.
type docFields struct {
	File          FileInfo          `json:"file"`
	Test          TestInfo          `json:"test"`
	Extraction    *ExtractionRecord `json:"extraction,omitempty"`
	LabValues     []LabValue        `json:"lab_values"`
	PriorState    ExtractionState   `json:"prior_state,omitempty"`
	PendingMethod string            `json:"pending_method,omitempty"`
}

func encodeDoc(tr *TestResult) ([]byte, error) {
	doc, err := json.Marshal(docFields{
		File:          tr.File,
		Test:          tr.Test,
		Extraction:    tr.Extraction,
		LabValues:     tr.LabValues,
		PriorState:    tr.PriorState,
		PendingMethod: tr.PendingMethod,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding test result document: %w", err)
	}
	return doc, nil
}

const trCols = `id, patient_id, doctor_id, doc, state, version, created_at, updated_at`

func scanTR(row pgx.Row) (*TestResult, error) {
	var (
		tr  TestResult
		doc []byte
	)
	err := row.Scan(&tr.ID, &tr.PatientID, &tr.DoctorID, &doc, &tr.State, &tr.Version, &tr.CreatedAt, &tr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	var fields docFields
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("decoding test result document: %w", err)
	}
	tr.File = fields.File
	tr.Test = fields.Test
	tr.Extraction = fields.Extraction
	tr.LabValues = fields.LabValues
	tr.PriorState = fields.PriorState
	tr.PendingMethod = fields.PendingMethod
	if tr.LabValues == nil {
		tr.LabValues = []LabValue{}
	}
	return &tr, nil
}

func (r *repoPG) Create(ctx context.Context, tr *TestResult) error {
	doc, err := encodeDoc(tr)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO test_results (id, patient_id, doctor_id, doc, state, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7)`,
		tr.ID, tr.PatientID, tr.DoctorID, doc, tr.State, tr.CreatedAt, tr.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting test result: %w", err)
	}
	tr.Version = 1
	return nil
}

func (r *repoPG) Get(ctx context.Context, id string) (*TestResult, error) {
	tr, err := scanTR(r.pool.QueryRow(ctx, `SELECT `+trCols+` FROM test_results WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &recerr.NotFoundError{Entity: "test_result", ID: id}
		}
		return nil, fmt.Errorf("loading test result: %w", err)
	}
	return tr, nil
}

func (r *repoPG) Update(ctx context.Context, tr *TestResult) error {
	doc, err := encodeDoc(tr)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE test_results SET doc = $1, state = $2, version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5`,
		doc, tr.State, tr.UpdatedAt, tr.ID, tr.Version)
	if err != nil {
		return fmt.Errorf("updating test result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &recerr.ConflictError{Entity: "test_result", ID: tr.ID, Reason: "version mismatch"}
	}
	tr.Version++
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*TestResult, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM test_results WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting test results: %w", err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+trCols+` FROM test_results
		WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing test results: %w", err)
	}
	defer rows.Close()

	var items []*TestResult
	for rows.Next() {
		tr, err := scanTR(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
