package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/vantage-crm/backend/internal/auth"
	"github.com/vantage-crm/backend/pkg/response"
)

// RequireSuperAdmin restricts a route group to platform operators. This is
// the only place the super-admin flag grants anything.
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFrom(c)
		if !ok {
			response.Unauthenticated(c, "missing auth context")
			c.Abort()
			return
		}
		if !claims.SuperAdmin {
			response.Forbidden(c, "super admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}
