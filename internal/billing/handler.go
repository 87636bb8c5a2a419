package billing

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vantage-crm/backend/internal/tenant"
	"github.com/vantage-crm/backend/internal/models"
	"github.com/vantage-crm/backend/pkg/response"
)

// Handler exposes tenant-facing subscription operations.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a billing handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// Cancel handles POST /organization/cancel. Cancellation is allowed from any
// state and is the only subscription write a tenant can perform directly.
func (h *Handler) Cancel(c *gin.Context) {
	orgID := tenant.OrgID(c)
	from, err := h.repo.Transition(c.Request.Context(), orgID, models.SubscriptionCancelled)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			response.Conflict(c, "subscription is already cancelled")
			return
		}
		h.logger.Error("failed to cancel subscription", zap.Error(err))
		response.Internal(c, "failed to cancel subscription")
		return
	}
	h.logger.Info("subscription cancelled",
		zap.String("organization_id", orgID.String()),
		zap.String("from", string(from)),
	)
	response.OK(c, gin.H{"subscription_status": models.SubscriptionCancelled})
}
