package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/vantage-crm/backend/internal/auth"
	"github.com/vantage-crm/backend/internal/tenant"
	"github.com/vantage-crm/backend/pkg/response"
)

// TenantResolve confirms the organization named by the token still exists and
// is enabled, and stores it in context under the tenant package's keys.
// Super-admin tokens without an organization claim have no tenant scope and
// cannot reach tenant routes.
func TenantResolve(resolver *tenant.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFrom(c)
		if !ok {
			response.Unauthenticated(c, "missing auth context")
			c.Abort()
			return
		}
		if claims.OrgID == "" {
			response.Forbidden(c, "token has no tenant scope")
			c.Abort()
			return
		}
		orgID, err := claims.OrganizationID()
		if err != nil {
			response.Unauthenticated(c, "invalid token")
			c.Abort()
			return
		}
		org, err := resolver.Resolve(c.Request.Context(), orgID)
		if err != nil {
			switch {
			case errors.Is(err, tenant.ErrNotFound):
				response.TenantNotFound(c, "organization not found")
			case errors.Is(err, tenant.ErrDisabled):
				response.TenantDisabled(c, "organization is disabled")
			default:
				response.Internal(c, "failed to resolve organization")
			}
			c.Abort()
			return
		}
		c.Set(tenant.ContextOrg, org)
		c.Set(tenant.ContextOrgID, org.ID)
		c.Next()
	}
}
