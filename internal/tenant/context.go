package tenant

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vantage-crm/backend/internal/models"
)

const (
	// ContextOrg is the gin context key the tenant middleware stores the
	// resolved *models.Organization under.
	ContextOrg = "tenant_org"
	// ContextOrgID holds the resolved organization uuid.UUID.
	ContextOrgID = "tenant_org_id"
)

// OrgID returns the resolved organization id set by the tenant middleware.
// Handlers and repositories must scope every query with this value, never
// with an id taken from the request.
func OrgID(c *gin.Context) uuid.UUID {
	v, ok := c.Get(ContextOrgID)
	if !ok {
		return uuid.Nil
	}
	id, _ := v.(uuid.UUID)
	return id
}

// Org returns the resolved organization set by the tenant middleware.
func Org(c *gin.Context) (*models.Organization, bool) {
	v, ok := c.Get(ContextOrg)
	if !ok {
		return nil, false
	}
	org, ok := v.(*models.Organization)
	return org, ok
}
