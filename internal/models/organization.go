package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus is the billing lifecycle state of an organization.
// Only "active" permits mutating operations on business data.
type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Valid reports whether s is one of the known subscription states.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionTrial, SubscriptionActive, SubscriptionExpired, SubscriptionCancelled:
		return true
	}
	return false
}

// Organization represents a tenant. All business data is partitioned by
// organization id; organizations are never hard-deleted (audit/billing).
type Organization struct {
	ID                 uuid.UUID          `json:"id"`
	Name               string             `json:"name"`
	Slug               string             `json:"slug"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	Disabled           bool               `json:"disabled"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}
