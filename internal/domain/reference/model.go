// Package reference provides the read-only lookup entities the record core
// consumes: doctors, users, and diseases. Nothing here is mutated by the
// aggregation or extraction workflows.
package reference

import "time"

type Doctor struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Specialization string    `json:"specialization" db:"specialization"`
	LicenseNo      string    `json:"license_no" db:"license_no"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type User struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Role      string    `json:"role" db:"role"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Disease struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Category string `json:"category" db:"category"`
}
