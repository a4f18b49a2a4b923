package provision

import (
	"context"
	"time"
)

// Store persists access grants. Grants are keyed by subscription id.
type Store interface {
	// Save inserts the grant or replaces the one with the same subscription id.
	Save(ctx context.Context, g Grant) error

	// Get returns ErrGrantNotFound when no grant exists.
	Get(ctx context.Context, subscriptionID string) (Grant, error)

	// ByCustomer returns the customer's grants, newest first.
	ByCustomer(ctx context.Context, customerID string) ([]Grant, error)

	// Revoke marks the grant revoked at the given time.
	Revoke(ctx context.Context, subscriptionID string, at time.Time) error
}
