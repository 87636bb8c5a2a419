package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vantage-crm/backend/internal/models"
	"github.com/vantage-crm/backend/pkg/queue"
	"github.com/vantage-crm/backend/pkg/response"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Billing-Signature"

// Webhook event types from the payment provider.
const (
	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionExpired   = "subscription.expired"
	EventSubscriptionCancelled = "subscription.cancelled"
)

// WebhookEvent is the provider's notification payload.
type WebhookEvent struct {
	Type           string    `json:"type"`
	OrganizationID uuid.UUID `json:"organization_id"`
	EventID        string    `json:"event_id"`
}

// WebhookHandler applies verified billing events to subscription state.
type WebhookHandler struct {
	secret []byte
	repo   *Repository
	jobs   *queue.Queue
	logger *zap.Logger
}

// NewWebhookHandler creates the billing webhook handler.
func NewWebhookHandler(secret string, repo *Repository, jobs *queue.Queue, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{secret: []byte(secret), repo: repo, jobs: jobs, logger: logger}
}

// VerifySignature checks the hex HMAC-SHA256 of body against the header value
// in constant time.
func VerifySignature(secret, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Handle processes POST /webhooks/billing. The signature covers the raw body,
// so the body is read before any JSON decoding. Unverifiable payloads are
// logged and rejected without touching subscription state.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "failed to read body")
		return
	}

	signature := c.GetHeader(SignatureHeader)
	if signature == "" || !VerifySignature(h.secret, body, signature) {
		h.logger.Warn("billing webhook signature verification failed",
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", len(body)),
		)
		response.Unauthenticated(c, "invalid webhook signature")
		return
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		response.BadRequest(c, "invalid payload")
		return
	}

	var target models.SubscriptionStatus
	switch event.Type {
	case EventSubscriptionActivated:
		target = models.SubscriptionActive
	case EventSubscriptionExpired:
		target = models.SubscriptionExpired
	case EventSubscriptionCancelled:
		target = models.SubscriptionCancelled
	default:
		h.logger.Info("ignoring unhandled billing event", zap.String("type", event.Type))
		response.OK(c, gin.H{"status": "ignored"})
		return
	}

	from, err := h.repo.Transition(c.Request.Context(), event.OrganizationID, target)
	if err != nil {
		switch {
		case errors.Is(err, ErrOrganizationNotFound):
			response.NotFound(c, "organization not found")
		case errors.Is(err, ErrInvalidTransition):
			// Re-delivered or out-of-order events land here. Acknowledge so
			// the provider stops retrying.
			h.logger.Info("billing event produced no transition",
				zap.String("organization_id", event.OrganizationID.String()),
				zap.String("event_type", event.Type),
			)
			response.OK(c, gin.H{"status": "noop"})
		default:
			h.logger.Error("failed to apply billing event", zap.Error(err))
			response.Internal(c, "failed to process event")
		}
		return
	}

	// First activation ends the trial; any demo-tagged rows the organization
	// carries (imported samples, legacy data) are purged in the background.
	// Signup itself seeds none.
	if target == models.SubscriptionActive && from == models.SubscriptionTrial {
		if err := h.jobs.EnqueueDemoPurge(c.Request.Context(), queue.DemoPurgePayload{
			OrganizationID: event.OrganizationID,
		}); err != nil {
			h.logger.Error("failed to enqueue demo purge",
				zap.String("organization_id", event.OrganizationID.String()),
				zap.Error(err),
			)
		}
	}

	h.logger.Info("subscription transition applied",
		zap.String("organization_id", event.OrganizationID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
	)
	response.OK(c, gin.H{"status": "processed"})
}
