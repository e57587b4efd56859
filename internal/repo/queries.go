package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries groups lookups over identity tables.
type Queries struct {
	pool *pgxpool.Pool
}

// New creates Queries over the pool.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

// GetCitizenByID loads an active citizen.
func (q *Queries) GetCitizenByID(ctx context.Context, id uuid.UUID) (Citizen, error) {
	const query = `
        SELECT id, name, email, active, created_at
        FROM citizens
        WHERE id = $1 AND active
    `

	var c Citizen
	err := q.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Email, &c.Active, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Citizen{}, ErrNotFound
		}
		return Citizen{}, err
	}
	return c, nil
}

// CitizenExists reports whether id references an active citizen.
func (q *Queries) CitizenExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := q.GetCitizenByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
