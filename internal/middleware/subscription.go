package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vantage-crm/backend/internal/billing"
	"github.com/vantage-crm/backend/internal/tenant"
	"github.com/vantage-crm/backend/pkg/response"
)

// SubscriptionGuard blocks mutating requests unless the organization's
// subscription permits writes. The status checked is the organization's
// current one from the resolver, not the snapshot in the token, so billing
// transitions take effect without waiting for a token refresh.
func SubscriptionGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		op := billing.OperationRead
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			op = billing.OperationWrite
		}
		org, ok := tenant.Org(c)
		if !ok {
			response.Internal(c, "missing tenant context")
			c.Abort()
			return
		}
		if err := billing.Check(org.SubscriptionStatus, op); err != nil {
			response.UpgradeRequired(c, "an active subscription is required for this operation")
			c.Abort()
			return
		}
		c.Next()
	}
}
