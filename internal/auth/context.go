package auth

import "github.com/gin-gonic/gin"

// ContextClaims is the gin context key the auth middleware stores validated
// claims under. Handlers must take identity and tenant scope from here, never
// from request parameters.
const ContextClaims = "auth_claims"

// ClaimsFrom returns the validated claims set by the auth middleware.
func ClaimsFrom(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}
