package customers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vantage-crm/backend/internal/models"
)

// ErrNotFound means no customer with that id exists in the organization.
var ErrNotFound = errors.New("customer not found")

// Store is the customer persistence interface. Every method takes the
// organization id from the request context; rows outside it do not exist as
// far as callers are concerned.
type Store interface {
	Create(ctx context.Context, cust *models.Customer) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, orgID uuid.UUID) ([]*models.Customer, error)
	Update(ctx context.Context, cust *models.Customer) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}

// Repository is the Postgres Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a customer repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerColumns = `id, organization_id, name, email, phone, company, is_demo, created_at, updated_at`

func scanCustomer(row pgx.Row) (*models.Customer, error) {
	var cust models.Customer
	err := row.Scan(&cust.ID, &cust.OrganizationID, &cust.Name, &cust.Email, &cust.Phone,
		&cust.Company, &cust.IsDemo, &cust.CreatedAt, &cust.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cust, nil
}

// Create inserts a customer. IsDemo is never set on this path; demo rows
// exist only from provisioning-time seeding.
func (r *Repository) Create(ctx context.Context, cust *models.Customer) error {
	const q = `INSERT INTO customers (id, organization_id, name, email, phone, company)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, is_demo, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, cust.OrganizationID, cust.Name, cust.Email, cust.Phone, cust.Company).
		Scan(&cust.ID, &cust.IsDemo, &cust.CreatedAt, &cust.UpdatedAt)
}

// GetByID fetches one customer within the organization.
func (r *Repository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Customer, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE organization_id = $1 AND id = $2`, orgID, id)
	return scanCustomer(row)
}

// List returns the organization's customers, newest first.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID) ([]*models.Customer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE organization_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Customer
	for rows.Next() {
		cust, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cust)
	}
	return out, rows.Err()
}

// Update writes mutable fields. The is_demo flag is untouched.
func (r *Repository) Update(ctx context.Context, cust *models.Customer) error {
	const q = `UPDATE customers SET name = $3, email = $4, phone = $5, company = $6, updated_at = NOW()
		WHERE organization_id = $1 AND id = $2
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, cust.OrganizationID, cust.ID, cust.Name, cust.Email, cust.Phone, cust.Company).
		Scan(&cust.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Delete removes a customer within the organization.
func (r *Repository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM customers WHERE organization_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
