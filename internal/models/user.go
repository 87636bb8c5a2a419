package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an authenticated principal. Users belong to exactly one
// organization (platform super-admins have none) and are soft-disabled
// rather than deleted to preserve audit history.
type User struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	Email          string     `json:"email"`
	Password       string     `json:"-"`
	FullName       string     `json:"full_name"`
	RoleID         *uuid.UUID `json:"role_id,omitempty"`
	SuperAdmin     bool       `json:"super_admin"`
	Disabled       bool       `json:"disabled"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	Email          string     `json:"email"`
	FullName       string     `json:"full_name"`
	RoleID         *uuid.UUID `json:"role_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:             u.ID,
		OrganizationID: u.OrganizationID,
		Email:          u.Email,
		FullName:       u.FullName,
		RoleID:         u.RoleID,
		CreatedAt:      u.CreatedAt,
	}
}
