package provision

import "time"

// Grant is the access a customer holds after paying for a subscription.
type Grant struct {
	SubscriptionID  string     `json:"subscriptionId"`
	CustomerID      string     `json:"customerId"`
	PlanID          string     `json:"planId"`
	PaymentMethodID string     `json:"paymentMethodId,omitempty"`
	ExpiresAt       time.Time  `json:"expiresAt"`
	GrantedAt       time.Time  `json:"grantedAt"`
	RevokedAt       *time.Time `json:"revokedAt,omitempty"`
}

// Active reports whether the grant is neither revoked nor expired at now.
func (g Grant) Active(now time.Time) bool {
	return g.RevokedAt == nil && now.Before(g.ExpiresAt)
}
