package timeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelog/carelog/pkg/recerr"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Load(ctx context.Context, patientID string) (*Timeline, error) {
	var (
		tl     Timeline
		events []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, events, version, created_at, updated_at
		FROM timelines WHERE patient_id = $1`, patientID).
		Scan(&tl.ID, &tl.PatientID, &events, &tl.Version, &tl.CreatedAt, &tl.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &recerr.NotFoundError{Entity: "timeline", ID: patientID}
		}
		return nil, fmt.Errorf("loading timeline: %w", err)
	}
	if err := json.Unmarshal(events, &tl.Events); err != nil {
		return nil, fmt.Errorf("decoding timeline events: %w", err)
	}
	return &tl, nil
}

func (r *repoPG) Save(ctx context.Context, tl *Timeline) error {
	events, err := json.Marshal(tl.Events)
	if err != nil {
		return fmt.Errorf("encoding timeline events: %w", err)
	}

	if tl.Version == 0 {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO timelines (id, patient_id, events, version, created_at, updated_at)
			VALUES ($1, $2, $3, 1, $4, $5)`,
			tl.ID, tl.PatientID, events, tl.CreatedAt, tl.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return &recerr.ConflictError{Entity: "timeline", ID: tl.PatientID, Reason: "already created by a concurrent rebuild"}
			}
			return fmt.Errorf("inserting timeline: %w", err)
		}
		tl.Version = 1
		return nil
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE timelines SET events = $1, version = version + 1, updated_at = $2
		WHERE patient_id = $3 AND version = $4`,
		events, tl.UpdatedAt, tl.PatientID, tl.Version)
	if err != nil {
		return fmt.Errorf("updating timeline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &recerr.ConflictError{Entity: "timeline", ID: tl.PatientID, Reason: "version mismatch"}
	}
	tl.Version++
	return nil
}
