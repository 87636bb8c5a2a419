package billing

import (
	"errors"

	"github.com/vantage-crm/backend/internal/models"
)

var (
	// ErrUpgradeRequired means the subscription state forbids the attempted
	// write. Recoverable by upgrading, so it carries its own error code.
	ErrUpgradeRequired = errors.New("subscription upgrade required")
	// ErrInvalidTransition rejects a state change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid subscription transition")
)

// OperationKind classifies a request for the guard.
type OperationKind string

const (
	OperationRead  OperationKind = "read"
	OperationWrite OperationKind = "write"
)

// Check gates an operation on the subscription state. Reads are allowed in
// every state; only an active subscription permits writes.
func Check(status models.SubscriptionStatus, op OperationKind) error {
	if op == OperationRead {
		return nil
	}
	if status == models.SubscriptionActive {
		return nil
	}
	return ErrUpgradeRequired
}

// CanTransition encodes the subscription lifecycle. Activations come only
// from verified payment webhooks; expiry from failed payments or scheduled
// checks; cancellation from an explicit request in any state.
func CanTransition(from, to models.SubscriptionStatus) bool {
	if !from.Valid() || !to.Valid() || from == to {
		return false
	}
	switch to {
	case models.SubscriptionActive:
		return from == models.SubscriptionTrial || from == models.SubscriptionExpired
	case models.SubscriptionExpired:
		return from == models.SubscriptionActive || from == models.SubscriptionTrial
	case models.SubscriptionCancelled:
		return true
	}
	return false
}
