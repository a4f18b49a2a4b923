package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeConfig holds Stripe credentials and the catalog-to-price mapping.
type StripeConfig struct {
	SecretKey      string `env:"STRIPE_SECRET_KEY,required"`
	PublishableKey string `env:"STRIPE_PUBLISHABLE_KEY,required"`
	// Prices maps catalog plan IDs to Stripe price IDs, e.g. "basic:price_123,premium:price_456".
	// Plan IDs without a mapping are sent to Stripe as-is.
	Prices    map[string]string `env:"STRIPE_PRICES" envSeparator:"," envKeyValSeparator:":"`
	ReturnURL string            `env:"STRIPE_RETURN_URL" envDefault:"http://localhost:8080/account"`
}

// stripeAPI is the subset of the Stripe client used here.
type stripeAPI struct {
	newCustomer        func(params *stripe.CustomerParams) (*stripe.Customer, error)
	updateCustomer     func(id string, params *stripe.CustomerParams) (*stripe.Customer, error)
	newSubscription    func(params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	getSubscription    func(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	updateSubscription func(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	cancelSubscription func(id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error)
	upcomingInvoice    func(params *stripe.InvoiceUpcomingParams) (*stripe.Invoice, error)
	getPaymentMethod   func(id string, params *stripe.PaymentMethodParams) (*stripe.PaymentMethod, error)
	confirmIntent      func(id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)
	getIntent          func(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

func newStripeAPI(secretKey string) stripeAPI {
	sc := client.New(secretKey, nil)
	return stripeAPI{
		newCustomer:        sc.Customers.New,
		updateCustomer:     sc.Customers.Update,
		newSubscription:    sc.Subscriptions.New,
		getSubscription:    sc.Subscriptions.Get,
		updateSubscription: sc.Subscriptions.Update,
		cancelSubscription: sc.Subscriptions.Cancel,
		upcomingInvoice:    sc.Invoices.Upcoming,
		getPaymentMethod:   sc.PaymentMethods.Get,
		confirmIntent:      sc.PaymentIntents.Confirm,
		getIntent:          sc.PaymentIntents.Get,
	}
}

// StripeBackend implements Backend directly against the Stripe API.
type StripeBackend struct {
	api    stripeAPI
	prices map[string]string
}

// NewStripeBackend creates a Backend talking to Stripe with cfg.SecretKey.
func NewStripeBackend(cfg StripeConfig) (*StripeBackend, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingStripeKey
	}
	return &StripeBackend{api: newStripeAPI(cfg.SecretKey), prices: cfg.Prices}, nil
}

func (b *StripeBackend) price(planID string) string {
	if id, ok := b.prices[planID]; ok && id != "" {
		return id
	}
	return planID
}

func (b *StripeBackend) CreateCustomer(ctx context.Context, email string) (*Customer, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	c, err := b.api.newCustomer(params)
	if err != nil {
		return nil, fromStripeError(err)
	}
	return &Customer{ID: c.ID, Email: c.Email}, nil
}

// CreateSubscription creates a subscription in the default_incomplete state so
// the first invoice's payment intent can be confirmed by the customer.
func (b *StripeBackend) CreateSubscription(ctx context.Context, customerID, priceID string) (*Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(b.price(priceID))},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
	}
	params.AddExpand("latest_invoice.payment_intent")
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	sub, err := b.api.newSubscription(params)
	if err != nil {
		return nil, fromStripeError(err)
	}
	return subscriptionFromStripe(sub), nil
}

func (b *StripeBackend) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return errors.New("subscription ID is required")
	}
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	_, err := b.api.cancelSubscription(subscriptionID, params)
	return fromStripeError(err)
}

func (b *StripeBackend) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	params.Context = ctx
	_, err := b.api.updateCustomer(customerID, params)
	return fromStripeError(err)
}

// RetrieveUpcomingInvoice previews the invoice that would follow swapping the
// subscription's only item to newPriceID.
func (b *StripeBackend) RetrieveUpcomingInvoice(ctx context.Context, customerID, subscriptionID, newPriceID string) (*UpcomingInvoice, error) {
	itemID, err := b.firstItemID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	params := &stripe.InvoiceUpcomingParams{
		Customer:     stripe.String(customerID),
		Subscription: stripe.String(subscriptionID),
		SubscriptionItems: []*stripe.SubscriptionItemsParams{
			{ID: stripe.String(itemID), Price: stripe.String(b.price(newPriceID))},
		},
	}
	params.Context = ctx

	inv, err := b.api.upcomingInvoice(params)
	if err != nil {
		return nil, fromStripeError(err)
	}
	return &UpcomingInvoice{AmountDue: inv.AmountDue, NextPaymentAttempt: inv.NextPaymentAttempt}, nil
}

func (b *StripeBackend) UpdateSubscription(ctx context.Context, subscriptionID, newPriceID string) error {
	itemID, err := b.firstItemID(ctx, subscriptionID)
	if err != nil {
		return err
	}

	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(false),
		Items: []*stripe.SubscriptionItemsParams{
			{ID: stripe.String(itemID), Price: stripe.String(b.price(newPriceID))},
		},
	}
	params.Context = ctx
	_, err = b.api.updateSubscription(subscriptionID, params)
	return fromStripeError(err)
}

func (b *StripeBackend) RetrieveCustomerPaymentMethod(ctx context.Context, paymentMethodID string) (*PaymentMethod, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx

	pm, err := b.api.getPaymentMethod(paymentMethodID, params)
	if err != nil {
		return nil, fromStripeError(err)
	}
	out := &PaymentMethod{ID: pm.ID}
	if pm.Card != nil {
		out.Card = &Card{Brand: string(pm.Card.Brand), Last4: pm.Card.Last4}
	}
	return out, nil
}

func (b *StripeBackend) firstItemID(ctx context.Context, subscriptionID string) (string, error) {
	if subscriptionID == "" {
		return "", errors.New("subscription ID is required")
	}
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := b.api.getSubscription(subscriptionID, params)
	if err != nil {
		return "", fromStripeError(err)
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return "", fmt.Errorf("subscription %s has no items", subscriptionID)
	}
	return sub.Items.Data[0].ID, nil
}

func subscriptionFromStripe(sub *stripe.Subscription) *Subscription {
	if sub == nil {
		return nil
	}
	out := &Subscription{ID: sub.ID, CurrentPeriodEnd: sub.CurrentPeriodEnd}
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		out.LatestInvoice = &Invoice{PaymentIntent: intentFromStripe(sub.LatestInvoice.PaymentIntent)}
	}
	return out
}

// StripeGateway confirms payment intents server-side with a PaymentMethod
// tokenized by Stripe.js in the browser.
type StripeGateway struct {
	api       stripeAPI
	returnURL string
}

// NewStripeGateway creates a Gateway talking to Stripe with cfg.SecretKey.
func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingStripeKey
	}
	return &StripeGateway{api: newStripeAPI(cfg.SecretKey), returnURL: cfg.ReturnURL}, nil
}

// ConfirmPayment confirms the intent owning clientSecret with input.PaymentMethodID.
// BillingName is collected by Stripe.js when the PaymentMethod is created and is not resent.
func (g *StripeGateway) ConfirmPayment(ctx context.Context, clientSecret string, input PaymentInput) (*PaymentIntent, error) {
	id, err := intentIDFromSecret(clientSecret)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(input.PaymentMethodID),
	}
	if g.returnURL != "" {
		params.ReturnURL = stripe.String(g.returnURL)
	}
	params.Context = ctx

	pi, err := g.api.confirmIntent(id, params)
	if err != nil {
		return nil, fromStripeError(err)
	}
	return intentFromStripe(pi), nil
}

// HandleRequiredAction reloads the intent. The challenge itself runs in the
// browser (Stripe.js handleCardAction): until the customer has answered it the
// intent still reports requires_action, which pauses the checkout with
// ErrActionRequired. Called again from ResumePayment it reports the outcome.
func (g *StripeGateway) HandleRequiredAction(ctx context.Context, clientSecret string) (*PaymentIntent, error) {
	id, err := intentIDFromSecret(clientSecret)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.api.getIntent(id, params)
	if err != nil {
		return nil, fromStripeError(err)
	}
	return intentFromStripe(pi), nil
}

func intentFromStripe(pi *stripe.PaymentIntent) *PaymentIntent {
	if pi == nil {
		return nil
	}
	out := &PaymentIntent{
		ID:           pi.ID,
		Status:       IntentStatus(pi.Status),
		ClientSecret: pi.ClientSecret,
	}
	if pi.PaymentMethod != nil {
		out.PaymentMethodID = pi.PaymentMethod.ID
	}
	return out
}

// intentIDFromSecret extracts "pi_123" from "pi_123_secret_abc".
func intentIDFromSecret(clientSecret string) (string, error) {
	id, _, ok := strings.Cut(clientSecret, "_secret_")
	if !ok || id == "" {
		return "", ErrMissingSecret
	}
	return id, nil
}

// fromStripeError turns card and request errors into *GatewayError so the
// orchestrator can surface Stripe's customer-facing message.
func fromStripeError(err error) error {
	if err == nil {
		return nil
	}
	var se *stripe.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Type {
	case stripe.ErrorTypeCard, stripe.ErrorTypeInvalidRequest:
		return &GatewayError{
			Message:     se.Msg,
			Code:        string(se.Code),
			DeclineCode: string(se.DeclineCode),
		}
	default:
		return err
	}
}
