package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vantage-crm/backend/internal/auth"
	"github.com/vantage-crm/backend/pkg/response"
)

// BearerToken extracts the token from the Authorization header.
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// Auth validates the bearer access token and stores the claims in context.
// Expired tokens get their own code so clients know a refresh may succeed;
// every other failure collapses to UNAUTHENTICATED.
func Auth(validator *auth.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			response.Unauthenticated(c, "missing or malformed authorization header")
			c.Abort()
			return
		}
		claims, err := validator.Validate(c.Request.Context(), token, auth.TokenTypeAccess)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				response.TokenExpired(c, "access token expired")
			} else {
				response.Unauthenticated(c, "invalid token")
			}
			c.Abort()
			return
		}
		c.Set(auth.ContextClaims, claims)
		c.Next()
	}
}
