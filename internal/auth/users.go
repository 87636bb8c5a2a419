package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vantage-crm/backend/internal/models"
	"github.com/vantage-crm/backend/internal/rbac"
	"github.com/vantage-crm/backend/internal/tenant"
	"github.com/vantage-crm/backend/pkg/response"
	"github.com/vantage-crm/backend/pkg/utils"
)

// UserDirectory is the persistence surface for team management.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, orgID uuid.UUID, email, passwordHash, fullName string, roleID uuid.UUID) (*models.User, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]models.UserPublic, error)
}

// RoleStore looks up a role inside the organization. Satisfied by
// rbac.Repository.
type RoleStore interface {
	GetByID(ctx context.Context, orgID, roleID uuid.UUID) (*models.Role, error)
}

// UsersHandler manages the organization's user accounts.
type UsersHandler struct {
	users  UserDirectory
	roles  RoleStore
	logger *zap.Logger
}

// NewUsersHandler creates a users handler.
func NewUsersHandler(users UserDirectory, roles RoleStore, logger *zap.Logger) *UsersHandler {
	return &UsersHandler{users: users, roles: roles, logger: logger}
}

// InviteRequest is the body for POST /users.
type InviteRequest struct {
	Email    string    `json:"email" binding:"required,email"`
	FullName string    `json:"full_name" binding:"required,min=2,max=120"`
	Password string    `json:"password" binding:"required,min=8"`
	RoleID   uuid.UUID `json:"role_id" binding:"required"`
}

// List handles GET /users for the resolved organization.
func (h *UsersHandler) List(c *gin.Context) {
	users, err := h.users.ListByOrganization(c.Request.Context(), tenant.OrgID(c))
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, users)
}

// Invite handles POST /users. The role lookup is scoped to the resolved
// organization, so an invite can never hand out a role from another tenant.
func (h *UsersHandler) Invite(c *gin.Context) {
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	orgID := tenant.OrgID(c)

	if _, err := h.roles.GetByID(c.Request.Context(), orgID, req.RoleID); err != nil {
		if errors.Is(err, rbac.ErrRoleNotFound) {
			response.BadRequest(c, "role not found in organization")
			return
		}
		h.logger.Error("role lookup failed", zap.Error(err))
		response.Internal(c, "failed to invite user")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if existing, err := h.users.GetByEmail(c.Request.Context(), email); err == nil && existing != nil {
		response.Conflict(c, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to invite user")
		return
	}
	user, err := h.users.Create(c.Request.Context(), orgID, email, hash, req.FullName, req.RoleID)
	if err != nil {
		h.logger.Error("failed to create user", zap.Error(err))
		response.Internal(c, "failed to invite user")
		return
	}
	response.Created(c, user.ToPublic())
}
