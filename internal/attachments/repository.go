package attachments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vantage-crm/backend/internal/models"
)

// ErrNotFound means no attachment with that id exists in the organization.
var ErrNotFound = errors.New("attachment not found")

// Repository persists attachment metadata. Object bytes live in S3 under the
// organization's key prefix; rows here are the index.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an attachment repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts attachment metadata with a pre-generated id, so the S3 key
// can embed the id before the row exists.
func (r *Repository) Create(ctx context.Context, att *models.Attachment) error {
	const q = `INSERT INTO attachments (id, organization_id, invoice_id, s3_key, file_name, content_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`
	return r.pool.QueryRow(ctx, q, att.ID, att.OrganizationID, att.InvoiceID,
		att.S3Key, att.FileName, att.ContentType).Scan(&att.CreatedAt)
}

// GetByID fetches one attachment within the organization.
func (r *Repository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Attachment, error) {
	const q = `SELECT id, organization_id, invoice_id, s3_key, file_name, content_type, created_at
		FROM attachments WHERE organization_id = $1 AND id = $2`
	var att models.Attachment
	err := r.pool.QueryRow(ctx, q, orgID, id).Scan(&att.ID, &att.OrganizationID, &att.InvoiceID,
		&att.S3Key, &att.FileName, &att.ContentType, &att.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &att, nil
}

// Delete removes the metadata row and returns it so the caller can delete the
// S3 object too.
func (r *Repository) Delete(ctx context.Context, orgID, id uuid.UUID) (*models.Attachment, error) {
	const q = `DELETE FROM attachments WHERE organization_id = $1 AND id = $2
		RETURNING id, organization_id, invoice_id, s3_key, file_name, content_type, created_at`
	var att models.Attachment
	err := r.pool.QueryRow(ctx, q, orgID, id).Scan(&att.ID, &att.OrganizationID, &att.InvoiceID,
		&att.S3Key, &att.FileName, &att.ContentType, &att.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &att, nil
}

// ListByInvoice returns the attachments of one invoice in the organization.
func (r *Repository) ListByInvoice(ctx context.Context, orgID, invoiceID uuid.UUID) ([]*models.Attachment, error) {
	const q = `SELECT id, organization_id, invoice_id, s3_key, file_name, content_type, created_at
		FROM attachments WHERE organization_id = $1 AND invoice_id = $2 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, orgID, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Attachment
	for rows.Next() {
		var att models.Attachment
		if err := rows.Scan(&att.ID, &att.OrganizationID, &att.InvoiceID,
			&att.S3Key, &att.FileName, &att.ContentType, &att.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &att)
	}
	return out, rows.Err()
}
