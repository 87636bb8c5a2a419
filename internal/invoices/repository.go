package invoices

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vantage-crm/backend/internal/models"
)

// ErrNotFound means no invoice with that id exists in the organization.
var ErrNotFound = errors.New("invoice not found")

// Repository persists invoices, always scoped to one organization.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an invoice repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceColumns = `id, organization_id, customer_id, number, amount_cents, currency, status, due_date, is_demo, created_at, updated_at`

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	var inv models.Invoice
	err := row.Scan(&inv.ID, &inv.OrganizationID, &inv.CustomerID, &inv.Number, &inv.AmountCents,
		&inv.Currency, &inv.Status, &inv.DueDate, &inv.IsDemo, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// Create inserts an invoice as draft.
func (r *Repository) Create(ctx context.Context, inv *models.Invoice) error {
	const q = `INSERT INTO invoices (id, organization_id, customer_id, number, amount_cents, currency, status, due_date)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_demo, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, inv.OrganizationID, inv.CustomerID, inv.Number,
		inv.AmountCents, inv.Currency, inv.Status, inv.DueDate).
		Scan(&inv.ID, &inv.IsDemo, &inv.CreatedAt, &inv.UpdatedAt)
}

// GetByID fetches one invoice within the organization.
func (r *Repository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Invoice, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE organization_id = $1 AND id = $2`, orgID, id)
	return scanInvoice(row)
}

// List returns the organization's invoices, newest first.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID) ([]*models.Invoice, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE organization_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// Update writes mutable fields. The is_demo flag is untouched.
func (r *Repository) Update(ctx context.Context, inv *models.Invoice) error {
	const q = `UPDATE invoices SET customer_id = $3, number = $4, amount_cents = $5, currency = $6,
			status = $7, due_date = $8, updated_at = NOW()
		WHERE organization_id = $1 AND id = $2
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, inv.OrganizationID, inv.ID, inv.CustomerID, inv.Number,
		inv.AmountCents, inv.Currency, inv.Status, inv.DueDate).
		Scan(&inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Delete removes an invoice within the organization.
func (r *Repository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM invoices WHERE organization_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
