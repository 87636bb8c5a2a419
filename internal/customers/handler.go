package customers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vantage-crm/backend/internal/tenant"
	"github.com/vantage-crm/backend/internal/models"
	"github.com/vantage-crm/backend/pkg/response"
)

// Handler serves the customer CRUD endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a customer handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

type customerRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=200"`
	Email   string `json:"email" binding:"omitempty,email"`
	Phone   string `json:"phone" binding:"omitempty,max=40"`
	Company string `json:"company" binding:"omitempty,max=200"`
}

// Create handles POST /customers.
func (h *Handler) Create(c *gin.Context) {
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	cust := &models.Customer{
		OrganizationID: tenant.OrgID(c),
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Company:        req.Company,
	}
	if err := h.store.Create(c.Request.Context(), cust); err != nil {
		h.logger.Error("failed to create customer", zap.Error(err))
		response.Internal(c, "failed to create customer")
		return
	}
	response.Created(c, cust)
}

// List handles GET /customers.
func (h *Handler) List(c *gin.Context) {
	out, err := h.store.List(c.Request.Context(), tenant.OrgID(c))
	if err != nil {
		h.logger.Error("failed to list customers", zap.Error(err))
		response.Internal(c, "failed to list customers")
		return
	}
	response.OK(c, out)
}

// Get handles GET /customers/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid customer id")
		return
	}
	cust, err := h.store.GetByID(c.Request.Context(), tenant.OrgID(c), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "customer not found")
			return
		}
		h.logger.Error("failed to get customer", zap.Error(err))
		response.Internal(c, "failed to get customer")
		return
	}
	response.OK(c, cust)
}

// Update handles PUT /customers/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid customer id")
		return
	}
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	cust := &models.Customer{
		ID:             id,
		OrganizationID: tenant.OrgID(c),
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Company:        req.Company,
	}
	if err := h.store.Update(c.Request.Context(), cust); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "customer not found")
			return
		}
		h.logger.Error("failed to update customer", zap.Error(err))
		response.Internal(c, "failed to update customer")
		return
	}
	response.OK(c, cust)
}

// Delete handles DELETE /customers/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid customer id")
		return
	}
	if err := h.store.Delete(c.Request.Context(), tenant.OrgID(c), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "customer not found")
			return
		}
		h.logger.Error("failed to delete customer", zap.Error(err))
		response.Internal(c, "failed to delete customer")
		return
	}
	response.NoContent(c)
}
