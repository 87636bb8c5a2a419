package tenant

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vantage-crm/backend/pkg/response"
	"github.com/vantage-crm/backend/pkg/utils"
)

// Handler exposes signup, the current-organization endpoint, and the
// platform operator endpoints.
type Handler struct {
	repo   *Repository
	seeds  RoleSeeds
	logger *zap.Logger
}

// NewHandler creates a tenant handler. seeds are the capability grants for
// the system roles created at signup.
func NewHandler(repo *Repository, seeds RoleSeeds, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, seeds: seeds, logger: logger}
}

// SignupRequest provisions a new organization with its owner account.
type SignupRequest struct {
	OrganizationName string `json:"organization_name" binding:"required,min=2,max=120"`
	Slug             string `json:"slug" binding:"required,min=2,max=60"`
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"password" binding:"required,min=8"`
	FullName         string `json:"full_name" binding:"required,min=2,max=120"`
}

// Signup handles POST /auth/signup. New organizations start on trial with the
// two system roles and no demo rows.
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	slug := strings.ToLower(strings.TrimSpace(req.Slug))

	if existing, err := h.repo.GetBySlug(c.Request.Context(), slug); err != nil {
		h.logger.Error("slug lookup failed", zap.Error(err))
		response.Internal(c, "failed to create organization")
		return
	} else if existing != nil {
		response.Conflict(c, "organization slug already taken")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to create organization")
		return
	}

	result, err := h.repo.Provision(c.Request.Context(), ProvisionParams{
		Name:              req.OrganizationName,
		Slug:              slug,
		OwnerEmail:        strings.ToLower(req.Email),
		OwnerPasswordHash: hash,
		OwnerFullName:     req.FullName,
		Roles:             h.seeds,
	})
	if err != nil {
		h.logger.Error("organization provisioning failed", zap.Error(err))
		response.Internal(c, "failed to create organization")
		return
	}

	h.logger.Info("organization provisioned",
		zap.String("organization_id", result.Organization.ID.String()),
		zap.String("slug", slug),
	)
	response.Created(c, gin.H{
		"organization": result.Organization,
		"owner":        result.Owner.ToPublic(),
	})
}

// Get handles GET /organization for the resolved tenant.
func (h *Handler) Get(c *gin.Context) {
	org, ok := Org(c)
	if !ok {
		response.Internal(c, "missing tenant context")
		return
	}
	response.OK(c, org)
}

// PlatformList handles GET /platform/organizations.
func (h *Handler) PlatformList(c *gin.Context) {
	orgs, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list organizations", zap.Error(err))
		response.Internal(c, "failed to list organizations")
		return
	}
	response.OK(c, orgs)
}

// PlatformDisable handles POST /platform/organizations/:id/disable. Disabled
// organizations fail tenant resolution on the next request.
func (h *Handler) PlatformDisable(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	org, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("organization lookup failed", zap.Error(err))
		response.Internal(c, "failed to disable organization")
		return
	}
	if org == nil {
		response.NotFound(c, "organization not found")
		return
	}
	if err := h.repo.SetDisabled(c.Request.Context(), id, true); err != nil {
		h.logger.Error("failed to disable organization", zap.Error(err))
		response.Internal(c, "failed to disable organization")
		return
	}
	h.logger.Info("organization disabled", zap.String("organization_id", id.String()))
	response.OK(c, gin.H{"disabled": true})
}
