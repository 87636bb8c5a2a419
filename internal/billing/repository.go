package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vantage-crm/backend/internal/models"
)

// ErrOrganizationNotFound means the webhook or cancellation referenced an
// unknown organization.
var ErrOrganizationNotFound = errors.New("organization not found")

// Repository is the single writer for subscription state and the demo purge.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a billing repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Transition applies a lifecycle transition atomically: the current state is
// read under lock and validated against the state machine before writing.
// Returns the prior state so callers can react to specific edges.
func (r *Repository) Transition(ctx context.Context, orgID uuid.UUID, to models.SubscriptionStatus) (models.SubscriptionStatus, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var from models.SubscriptionStatus
	err = tx.QueryRow(ctx,
		`SELECT subscription_status FROM organizations WHERE id = $1 FOR UPDATE`, orgID).Scan(&from)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrOrganizationNotFound
		}
		return "", err
	}
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE organizations SET subscription_status = $2, updated_at = NOW() WHERE id = $1`, orgID, to); err != nil {
		return from, err
	}
	if err := tx.Commit(ctx); err != nil {
		return from, fmt.Errorf("commit: %w", err)
	}
	return from, nil
}

// PurgeDemoData deletes demo-tagged business rows for the organization.
// Safe to run repeatedly; a second run deletes nothing.
func (r *Repository) PurgeDemoData(ctx context.Context, orgID uuid.UUID) error {
	for _, table := range []string{"invoices", "leads", "customers"} {
		q := fmt.Sprintf(`DELETE FROM %s WHERE organization_id = $1 AND is_demo`, table)
		if _, err := r.pool.Exec(ctx, q, orgID); err != nil {
			return fmt.Errorf("purge %s: %w", table, err)
		}
	}
	return nil
}
