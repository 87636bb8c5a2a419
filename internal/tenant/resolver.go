package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/vantage-crm/backend/internal/models"
)

var (
	// ErrNotFound means the organization claimed by the token does not exist.
	ErrNotFound = errors.New("organization not found")
	// ErrDisabled means the organization exists but has been deactivated by
	// a platform operator.
	ErrDisabled = errors.New("organization disabled")
)

// Store is the organization lookup the resolver needs. A missing
// organization is (nil, nil).
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
}

// Resolver confirms the organization referenced by a validated token still
// exists and is usable. It runs before any business query; the organization
// it returns is the only tenant scope handlers may use.
type Resolver struct {
	store Store
}

// NewResolver creates a tenant resolver.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the organization or a terminal error.
func (r *Resolver) Resolve(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	org, err := r.store.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, ErrNotFound
	}
	if org.Disabled {
		return nil, ErrDisabled
	}
	return org, nil
}
