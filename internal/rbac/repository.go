package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vantage-crm/backend/internal/models"
)

var (
	// ErrRoleNotFound means the role does not exist in the organization.
	ErrRoleNotFound = errors.New("role not found")
	// ErrRoleInUse blocks deleting a role still assigned to users.
	ErrRoleInUse = errors.New("role is assigned to users")
)

// Repository handles role and capability persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an rbac repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RoleCapabilities returns the granted capability keys for a role.
func (r *Repository) RoleCapabilities(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT capability FROM role_capabilities WHERE role_id = $1 ORDER BY capability`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// GetByID returns a role scoped to the organization, with its capabilities.
func (r *Repository) GetByID(ctx context.Context, orgID, roleID uuid.UUID) (*models.Role, error) {
	var role models.Role
	err := r.pool.QueryRow(ctx,
		`SELECT id, organization_id, name, is_system, created_at, updated_at
		 FROM roles WHERE id = $1 AND organization_id = $2`, roleID, orgID).
		Scan(&role.ID, &role.OrganizationID, &role.Name, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	role.Capabilities, err = r.RoleCapabilities(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// ListByOrganization returns the organization's roles with capabilities.
func (r *Repository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]models.Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.organization_id, r.name, r.is_system, r.created_at, r.updated_at
		 FROM roles r WHERE r.organization_id = $1 ORDER BY r.name`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Role
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.OrganizationID, &role.Name, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range list {
		caps, err := r.RoleCapabilities(ctx, list[i].ID)
		if err != nil {
			return nil, err
		}
		list[i].Capabilities = caps
	}
	return list, nil
}

// Create inserts a custom role for the organization.
func (r *Repository) Create(ctx context.Context, orgID uuid.UUID, name string, capabilities []string) (*models.Role, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var role models.Role
	err = tx.QueryRow(ctx,
		`INSERT INTO roles (organization_id, name) VALUES ($1, $2)
		 RETURNING id, organization_id, name, is_system, created_at, updated_at`,
		orgID, name).
		Scan(&role.ID, &role.OrganizationID, &role.Name, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, err
	}
	for _, capability := range capabilities {
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_capabilities (role_id, capability) VALUES ($1, $2)`, role.ID, capability); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	role.Capabilities = capabilities
	return &role, nil
}

// SetCapabilities replaces the role's grants.
func (r *Repository) SetCapabilities(ctx context.Context, orgID, roleID uuid.UUID, capabilities []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1 AND organization_id = $2)`, roleID, orgID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrRoleNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM role_capabilities WHERE role_id = $1`, roleID); err != nil {
		return err
	}
	for _, capability := range capabilities {
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_capabilities (role_id, capability) VALUES ($1, $2)`, roleID, capability); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Delete removes an unreferenced custom role.
func (r *Repository) Delete(ctx context.Context, orgID, roleID uuid.UUID) error {
	var assigned int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE role_id = $1`, roleID).Scan(&assigned); err != nil {
		return err
	}
	if assigned > 0 {
		return ErrRoleInUse
	}
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM roles WHERE id = $1 AND organization_id = $2 AND NOT is_system`, roleID, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return nil
}
