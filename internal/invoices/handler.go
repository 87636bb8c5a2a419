package invoices

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vantage-crm/backend/internal/tenant"
	"github.com/vantage-crm/backend/internal/models"
	"github.com/vantage-crm/backend/pkg/response"
)

// Handler serves the invoice CRUD endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an invoice handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

type invoiceRequest struct {
	CustomerID  *uuid.UUID `json:"customer_id"`
	Number      string     `json:"number" binding:"required,min=1,max=60"`
	AmountCents int64      `json:"amount_cents" binding:"required,gt=0"`
	Currency    string     `json:"currency" binding:"required,len=3"`
	Status      string     `json:"status" binding:"omitempty,oneof=draft sent paid void"`
	DueDate     *time.Time `json:"due_date"`
}

// Create handles POST /invoices.
func (h *Handler) Create(c *gin.Context) {
	var req invoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	status := req.Status
	if status == "" {
		status = models.InvoiceStatusDraft
	}
	inv := &models.Invoice{
		OrganizationID: tenant.OrgID(c),
		CustomerID:     req.CustomerID,
		Number:         req.Number,
		AmountCents:    req.AmountCents,
		Currency:       req.Currency,
		Status:         status,
		DueDate:        req.DueDate,
	}
	if err := h.repo.Create(c.Request.Context(), inv); err != nil {
		h.logger.Error("failed to create invoice", zap.Error(err))
		response.Internal(c, "failed to create invoice")
		return
	}
	response.Created(c, inv)
}

// List handles GET /invoices.
func (h *Handler) List(c *gin.Context) {
	out, err := h.repo.List(c.Request.Context(), tenant.OrgID(c))
	if err != nil {
		h.logger.Error("failed to list invoices", zap.Error(err))
		response.Internal(c, "failed to list invoices")
		return
	}
	response.OK(c, out)
}

// Get handles GET /invoices/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid invoice id")
		return
	}
	inv, err := h.repo.GetByID(c.Request.Context(), tenant.OrgID(c), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "invoice not found")
			return
		}
		h.logger.Error("failed to get invoice", zap.Error(err))
		response.Internal(c, "failed to get invoice")
		return
	}
	response.OK(c, inv)
}

// Update handles PUT /invoices/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid invoice id")
		return
	}
	var req invoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	status := req.Status
	if status == "" {
		status = models.InvoiceStatusDraft
	}
	inv := &models.Invoice{
		ID:             id,
		OrganizationID: tenant.OrgID(c),
		CustomerID:     req.CustomerID,
		Number:         req.Number,
		AmountCents:    req.AmountCents,
		Currency:       req.Currency,
		Status:         status,
		DueDate:        req.DueDate,
	}
	if err := h.repo.Update(c.Request.Context(), inv); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "invoice not found")
			return
		}
		h.logger.Error("failed to update invoice", zap.Error(err))
		response.Internal(c, "failed to update invoice")
		return
	}
	response.OK(c, inv)
}

// Delete handles DELETE /invoices/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid invoice id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), tenant.OrgID(c), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "invoice not found")
			return
		}
		h.logger.Error("failed to delete invoice", zap.Error(err))
		response.Internal(c, "failed to delete invoice")
		return
	}
	response.NoContent(c)
}
