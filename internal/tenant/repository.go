package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vantage-crm/backend/internal/models"
)

// Repository handles organization persistence and provisioning.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organizations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orgColumns = `id, name, slug, subscription_status, disabled, created_at, updated_at`

func scanOrg(row pgx.Row) (*models.Organization, error) {
	var o models.Organization
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.SubscriptionStatus, &o.Disabled, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

// GetByID returns an organization by ID, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	return scanOrg(r.pool.QueryRow(ctx, `SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id))
}

// GetBySlug returns an organization by slug, or nil when absent.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	return scanOrg(r.pool.QueryRow(ctx, `SELECT `+orgColumns+` FROM organizations WHERE slug = $1`, slug))
}

// List returns every organization (platform operators only).
func (r *Repository) List(ctx context.Context) ([]*models.Organization, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orgColumns+` FROM organizations ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Organization
	for rows.Next() {
		var o models.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Slug, &o.SubscriptionStatus, &o.Disabled, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &o)
	}
	return list, rows.Err()
}

// SetDisabled flips the platform-level kill switch for a tenant.
func (r *Repository) SetDisabled(ctx context.Context, id uuid.UUID, disabled bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE organizations SET disabled = $2, updated_at = NOW() WHERE id = $1`, id, disabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ProvisionResult is the outcome of Provision.
type ProvisionResult struct {
	Organization *models.Organization
	Owner        *models.User
	AdminRoleID  uuid.UUID
	MemberRoleID uuid.UUID
}

// RoleSeeds are the capability grants for the two system roles created with
// every organization. The caller supplies them from the permission catalog.
type RoleSeeds struct {
	Admin  []string
	Member []string
}

// ProvisionParams describes a new organization and its owner account.
type ProvisionParams struct {
	Name              string
	Slug              string
	OwnerEmail        string
	OwnerPasswordHash string
	OwnerFullName     string
	Roles             RoleSeeds
}

// Provision creates an organization in trial state together with its default
// roles and owner user, in one transaction. No demo data is seeded.
func (r *Repository) Provision(ctx context.Context, p ProvisionParams) (*ProvisionResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var org models.Organization
	err = tx.QueryRow(ctx,
		`INSERT INTO organizations (name, slug) VALUES ($1, $2) RETURNING `+orgColumns,
		p.Name, p.Slug).
		Scan(&org.ID, &org.Name, &org.Slug, &org.SubscriptionStatus, &org.Disabled, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert organization: %w", err)
	}

	adminRoleID, err := insertRole(ctx, tx, org.ID, "admin", p.Roles.Admin)
	if err != nil {
		return nil, err
	}
	memberRoleID, err := insertRole(ctx, tx, org.ID, "member", p.Roles.Member)
	if err != nil {
		return nil, err
	}

	var owner models.User
	err = tx.QueryRow(ctx,
		`INSERT INTO users (organization_id, email, password_hash, full_name, role_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, organization_id, email, password_hash, full_name, role_id, super_admin, disabled, created_at, updated_at`,
		org.ID, p.OwnerEmail, p.OwnerPasswordHash, p.OwnerFullName, adminRoleID).
		Scan(&owner.ID, &owner.OrganizationID, &owner.Email, &owner.Password, &owner.FullName,
			&owner.RoleID, &owner.SuperAdmin, &owner.Disabled, &owner.CreatedAt, &owner.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert owner: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &ProvisionResult{
		Organization: &org,
		Owner:        &owner,
		AdminRoleID:  adminRoleID,
		MemberRoleID: memberRoleID,
	}, nil
}

func insertRole(ctx context.Context, tx pgx.Tx, orgID uuid.UUID, name string, capabilities []string) (uuid.UUID, error) {
	var roleID uuid.UUID
	err := tx.QueryRow(ctx,
		`INSERT INTO roles (organization_id, name, is_system) VALUES ($1, $2, TRUE) RETURNING id`,
		orgID, name).Scan(&roleID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert role %s: %w", name, err)
	}
	for _, capability := range capabilities {
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_capabilities (role_id, capability) VALUES ($1, $2)`, roleID, capability); err != nil {
			return uuid.Nil, fmt.Errorf("grant %s to %s: %w", capability, name, err)
		}
	}
	return roleID, nil
}
