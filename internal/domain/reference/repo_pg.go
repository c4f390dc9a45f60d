package reference

import (
	"context"
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

func (r *repoPG) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	var d Doctor
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, specialization, license_no, created_at
		FROM doctors WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Specialization, &d.LicenseNo, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &recerr.NotFoundError{Entity: "doctor", ID: id}
		}
		return nil, fmt.Errorf("loading doctor: %w", err)
	}
	return &d, nil
}

func (r *repoPG) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM doctors`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting doctors: %w", err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, specialization, license_no, created_at
		FROM doctors ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing doctors: %w", err)
	}
	defer rows.Close()

	var items []*Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Specialization, &d.LicenseNo, &d.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &d)
	}
	return items, total, rows.Err()
}

func (r *repoPG) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, role, status, created_at
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Role, &u.Status, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &recerr.NotFoundError{Entity: "user", ID: id}
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return &u, nil
}

func (r *repoPG) ListDiseases(ctx context.Context, limit, offset int) ([]*Disease, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM diseases`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting diseases: %w", err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, category FROM diseases ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing diseases: %w", err)
	}
	defer rows.Close()

	var items []*Disease
	for rows.Next() {
		var d Disease
		if err := rows.Scan(&d.ID, &d.Name, &d.Category); err != nil {
			return nil, 0, err
		}
		items = append(items, &d)
	}
	return items, total, rows.Err()
}
