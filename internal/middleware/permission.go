package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vantage-crm/backend/internal/auth"
	"github.com/vantage-crm/backend/pkg/response"
)

// PermissionChecker decides whether a role grants a capability.
type PermissionChecker interface {
	HasPermission(ctx context.Context, roleID uuid.UUID, module, action string) (bool, error)
}

// RequirePermission allows the request only if the caller's role grants the
// exact (module, action) capability. There is no hierarchy and no super-admin
// bypass on tenant routes.
func RequirePermission(engine PermissionChecker, module, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFrom(c)
		if !ok {
			response.Unauthenticated(c, "missing auth context")
			c.Abort()
			return
		}
		if claims.RoleID == "" {
			response.Forbidden(c, "no role assigned")
			c.Abort()
			return
		}
		roleID, err := uuid.Parse(claims.RoleID)
		if err != nil {
			response.Forbidden(c, "no role assigned")
			c.Abort()
			return
		}
		allowed, err := engine.HasPermission(c.Request.Context(), roleID, module, action)
		if err != nil {
			response.Internal(c, "permission check failed")
			c.Abort()
			return
		}
		if !allowed {
			response.Forbidden(c, "permission denied")
			c.Abort()
			return
		}
		c.Next()
	}
}
