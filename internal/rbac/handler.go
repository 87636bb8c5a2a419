package rbac

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vantage-crm/backend/internal/tenant"
	"github.com/vantage-crm/backend/pkg/response"
)

// Handler handles role-management HTTP endpoints for organization admins.
type Handler struct {
	repo   *Repository
	engine *Engine
}

// NewHandler creates an rbac handler.
func NewHandler(repo *Repository, engine *Engine) *Handler {
	return &Handler{repo: repo, engine: engine}
}

// CreateRoleRequest is the body for POST /roles.
type CreateRoleRequest struct {
	Name         string   `json:"name" binding:"required"`
	Capabilities []string `json:"capabilities" binding:"required"`
}

// SetPermissionsRequest is the body for PUT /roles/:id/permissions.
type SetPermissionsRequest struct {
	Capabilities []string `json:"capabilities" binding:"required"`
}

// Catalog handles GET /roles/catalog.
func (h *Handler) Catalog(c *gin.Context) {
	response.OK(c, Catalog)
}

// List handles GET /roles.
func (h *Handler) List(c *gin.Context) {
	orgID := tenant.OrgID(c)
	roles, err := h.repo.ListByOrganization(c.Request.Context(), orgID)
	if err != nil {
		response.Internal(c, "failed to list roles")
		return
	}
	response.OK(c, roles)
}

// Create handles POST /roles. Capabilities must come from the fixed catalog.
func (h *Handler) Create(c *gin.Context) {
	orgID := tenant.OrgID(c)
	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name and capabilities required")
		return
	}
	for _, key := range req.Capabilities {
		if !IsKnownKey(key) {
			response.BadRequest(c, "unknown capability: "+key)
			return
		}
	}
	role, err := h.repo.Create(c.Request.Context(), orgID, req.Name, req.Capabilities)
	if err != nil {
		response.Internal(c, "failed to create role")
		return
	}
	response.Created(c, role)
}

// SetPermissions handles PUT /roles/:id/permissions and invalidates the
// engine cache so the change applies to in-flight sessions promptly.
func (h *Handler) SetPermissions(c *gin.Context) {
	orgID := tenant.OrgID(c)
	roleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid role id")
		return
	}
	var req SetPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "capabilities required")
		return
	}
	for _, key := range req.Capabilities {
		if !IsKnownKey(key) {
			response.BadRequest(c, "unknown capability: "+key)
			return
		}
	}
	if err := h.repo.SetCapabilities(c.Request.Context(), orgID, roleID, req.Capabilities); err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			response.NotFound(c, "role not found")
			return
		}
		response.Internal(c, "failed to update permissions")
		return
	}
	h.engine.Invalidate(c.Request.Context(), roleID)
	role, err := h.repo.GetByID(c.Request.Context(), orgID, roleID)
	if err != nil {
		response.Internal(c, "failed to load role")
		return
	}
	response.OK(c, role)
}

// Delete handles DELETE /roles/:id.
func (h *Handler) Delete(c *gin.Context) {
	orgID := tenant.OrgID(c)
	roleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid role id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), orgID, roleID); err != nil {
		switch {
		case errors.Is(err, ErrRoleNotFound):
			response.NotFound(c, "role not found")
		case errors.Is(err, ErrRoleInUse):
			response.Conflict(c, "role is assigned to users")
		default:
			response.Internal(c, "failed to delete role")
		}
		return
	}
	h.engine.Invalidate(c.Request.Context(), roleID)
	response.NoContent(c)
}
