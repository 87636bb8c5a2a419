package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a named bundle of capabilities scoped to an organization.
// A nil OrganizationID marks a system template role.
type Role struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	Name           string     `json:"name"`
	IsSystem       bool       `json:"is_system"`
	Capabilities   []string   `json:"capabilities,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
