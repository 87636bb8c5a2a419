package leads

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vantage-crm/backend/internal/tenant"
	"github.com/vantage-crm/backend/internal/models"
	"github.com/vantage-crm/backend/pkg/response"
)

// Handler serves the lead CRUD endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a lead handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

type leadRequest struct {
	Name   string `json:"name" binding:"required,min=1,max=200"`
	Email  string `json:"email" binding:"omitempty,email"`
	Source string `json:"source" binding:"omitempty,max=100"`
	Status string `json:"status" binding:"omitempty,oneof=new contacted qualified lost"`
}

// Create handles POST /leads.
func (h *Handler) Create(c *gin.Context) {
	var req leadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	status := req.Status
	if status == "" {
		status = models.LeadStatusNew
	}
	lead := &models.Lead{
		OrganizationID: tenant.OrgID(c),
		Name:           req.Name,
		Email:          req.Email,
		Source:         req.Source,
		Status:         status,
	}
	if err := h.repo.Create(c.Request.Context(), lead); err != nil {
		h.logger.Error("failed to create lead", zap.Error(err))
		response.Internal(c, "failed to create lead")
		return
	}
	response.Created(c, lead)
}

// List handles GET /leads.
func (h *Handler) List(c *gin.Context) {
	out, err := h.repo.List(c.Request.Context(), tenant.OrgID(c))
	if err != nil {
		h.logger.Error("failed to list leads", zap.Error(err))
		response.Internal(c, "failed to list leads")
		return
	}
	response.OK(c, out)
}

// Get handles GET /leads/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid lead id")
		return
	}
	lead, err := h.repo.GetByID(c.Request.Context(), tenant.OrgID(c), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "lead not found")
			return
		}
		h.logger.Error("failed to get lead", zap.Error(err))
		response.Internal(c, "failed to get lead")
		return
	}
	response.OK(c, lead)
}

// Update handles PUT /leads/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid lead id")
		return
	}
	var req leadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	status := req.Status
	if status == "" {
		status = models.LeadStatusNew
	}
	lead := &models.Lead{
		ID:             id,
		OrganizationID: tenant.OrgID(c),
		Name:           req.Name,
		Email:          req.Email,
		Source:         req.Source,
		Status:         status,
	}
	if err := h.repo.Update(c.Request.Context(), lead); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "lead not found")
			return
		}
		h.logger.Error("failed to update lead", zap.Error(err))
		response.Internal(c, "failed to update lead")
		return
	}
	response.OK(c, lead)
}

// Delete handles DELETE /leads/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid lead id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), tenant.OrgID(c), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "lead not found")
			return
		}
		h.logger.Error("failed to delete lead", zap.Error(err))
		response.Internal(c, "failed to delete lead")
		return
	}
	response.NoContent(c)
}
