package checkout

// PendingSubscription is a subscription that was created but not paid yet.
// It is only meaningful when all four fields are set.
type PendingSubscription struct {
	SubscriptionID   string
	PriceID          string
	ClientSecret     string
	CurrentPeriodEnd int64 // unix seconds
}

// Complete reports whether every identifying field is populated.
func (p PendingSubscription) Complete() bool {
	return p.SubscriptionID != "" && p.PriceID != "" && p.ClientSecret != "" && p.CurrentPeriodEnd != 0
}

// IncompleteSubscription is what the payment step needs to charge a subscription.
type IncompleteSubscription struct {
	ClientSecret     string `json:"clientSecret"`
	SubscriptionID   string `json:"subscriptionId"`
	CurrentPeriodEnd int64  `json:"currentPeriodEnd"`
}

// IntentStatus is the gateway-owned status of a payment intent.
type IntentStatus string

const (
	StatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	StatusRequiresConfirmation  IntentStatus = "requires_confirmation"
	StatusRequiresAction        IntentStatus = "requires_action"
	StatusProcessing            IntentStatus = "processing"
	StatusRequiresCapture       IntentStatus = "requires_capture"
	StatusCanceled              IntentStatus = "canceled"
	StatusSucceeded             IntentStatus = "succeeded"
)

// PaymentIntent is the state token the payment pipeline steps through.
type PaymentIntent struct {
	ID              string       `json:"id,omitempty"`
	Status          IntentStatus `json:"status"`
	ClientSecret    string       `json:"client_secret"`
	PaymentMethodID string       `json:"payment_method"`
}

// PaymentInput is the card data collected by the gateway widget.
type PaymentInput struct {
	PaymentMethodID string `json:"paymentMethodId"`
	BillingName     string `json:"billingName,omitempty"`
}

// Completion describes a successfully paid subscription.
type Completion struct {
	CustomerID       string `json:"customerId"`
	SubscriptionID   string `json:"subscriptionId"`
	PriceID          string `json:"priceId"`
	CurrentPeriodEnd int64  `json:"currentPeriodEnd"`
	PaymentMethodID  string `json:"paymentMethodId"`
}

// Customer is a backend customer record.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Subscription mirrors the backend's create-subscription response.
type Subscription struct {
	ID               string   `json:"id"`
	LatestInvoice    *Invoice `json:"latest_invoice,omitempty"`
	CurrentPeriodEnd int64    `json:"current_period_end"`
}

// Invoice is the part of the latest invoice the checkout cares about.
type Invoice struct {
	PaymentIntent *PaymentIntent `json:"payment_intent,omitempty"`
}

// ClientSecret returns the client secret of the latest invoice's payment intent, if any.
func (s *Subscription) ClientSecret() string {
	if s == nil || s.LatestInvoice == nil || s.LatestInvoice.PaymentIntent == nil {
		return ""
	}
	return s.LatestInvoice.PaymentIntent.ClientSecret
}

// UpcomingInvoice previews the next charge after a plan change.
type UpcomingInvoice struct {
	AmountDue          int64 `json:"amount_due"`
	NextPaymentAttempt int64 `json:"next_payment_attempt"`
}

// PaymentMethod is a stored card as returned by the backend.
type PaymentMethod struct {
	ID   string `json:"id,omitempty"`
	Card *Card  `json:"card,omitempty"`
}

// Card holds display data of a card.
type Card struct {
	Brand string `json:"brand"`
	Last4 string `json:"last4"`
}
