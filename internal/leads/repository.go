package leads

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vantage-crm/backend/internal/models"
)

// ErrNotFound means no lead with that id exists in the organization.
var ErrNotFound = errors.New("lead not found")

// Repository persists leads, always scoped to one organization.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a lead repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, organization_id, name, email, source, status, is_demo, created_at, updated_at`

func scanLead(row pgx.Row) (*models.Lead, error) {
	var lead models.Lead
	err := row.Scan(&lead.ID, &lead.OrganizationID, &lead.Name, &lead.Email, &lead.Source,
		&lead.Status, &lead.IsDemo, &lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &lead, nil
}

// Create inserts a lead.
func (r *Repository) Create(ctx context.Context, lead *models.Lead) error {
	const q = `INSERT INTO leads (id, organization_id, name, email, source, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, is_demo, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, lead.OrganizationID, lead.Name, lead.Email, lead.Source, lead.Status).
		Scan(&lead.ID, &lead.IsDemo, &lead.CreatedAt, &lead.UpdatedAt)
}

// GetByID fetches one lead within the organization.
func (r *Repository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Lead, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE organization_id = $1 AND id = $2`, orgID, id)
	return scanLead(row)
}

// List returns the organization's leads, newest first.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID) ([]*models.Lead, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE organization_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

// Update writes mutable fields. The is_demo flag is untouched.
func (r *Repository) Update(ctx context.Context, lead *models.Lead) error {
	const q = `UPDATE leads SET name = $3, email = $4, source = $5, status = $6, updated_at = NOW()
		WHERE organization_id = $1 AND id = $2
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, lead.OrganizationID, lead.ID, lead.Name, lead.Email, lead.Source, lead.Status).
		Scan(&lead.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Delete removes a lead within the organization.
func (r *Repository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM leads WHERE organization_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
