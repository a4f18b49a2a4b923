package checkout

import "context"

// Backend is the remote payment/subscription backend the checkout drives.
// Implementations are stateless request/response clients.
type Backend interface {
	CreateCustomer(ctx context.Context, email string) (*Customer, error)

	// CreateSubscription creates an incomplete subscription for the customer.
	// A nil subscription with a nil error means the backend returned an empty body.
	CreateSubscription(ctx context.Context, customerID, priceID string) (*Subscription, error)

	CancelSubscription(ctx context.Context, subscriptionID string) error
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	RetrieveUpcomingInvoice(ctx context.Context, customerID, subscriptionID, newPriceID string) (*UpcomingInvoice, error)
	UpdateSubscription(ctx context.Context, subscriptionID, newPriceID string) error
	RetrieveCustomerPaymentMethod(ctx context.Context, paymentMethodID string) (*PaymentMethod, error)
}

// Gateway confirms payment intents with the card collected from the customer.
// Card-level failures are reported as *GatewayError.
type Gateway interface {
	ConfirmPayment(ctx context.Context, clientSecret string, input PaymentInput) (*PaymentIntent, error)

	// HandleRequiredAction runs the additional authentication step (e.g. 3-D Secure)
	// and returns the updated intent.
	HandleRequiredAction(ctx context.Context, clientSecret string) (*PaymentIntent, error)
}

// Provisioner grants access to the service once a subscription is paid.
type Provisioner interface {
	Provision(ctx context.Context, c Completion) error
}
