package storefront_test

import (
	"context"
	"sync"

	"github.com/dmitrymomot/storefront/pkg/checkout"
)

// fakeBackend is an in-memory checkout.Backend.
type fakeBackend struct {
	mu        sync.Mutex
	next      int
	cancelled []string
	defaults  map[string]string
	failWith  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{defaults: map[string]string{}}
}

func (b *fakeBackend) CreateCustomer(_ context.Context, email string) (*checkout.Customer, error) {
	if b.failWith != nil {
		return nil, b.failWith
	}
	return &checkout.Customer{ID: "cus_1", Email: email}, nil
}

func (b *fakeBackend) CreateSubscription(_ context.Context, _, priceID string) (*checkout.Subscription, error) {
	if b.failWith != nil {
		return nil, b.failWith
	}
	b.mu.Lock()
	b.next++
	n := b.next
	b.mu.Unlock()
	id := "sub_" + priceID + "_" + string(rune('0'+n))
	return &checkout.Subscription{
		ID:               id,
		CurrentPeriodEnd: 1900000000,
		LatestInvoice: &checkout.Invoice{PaymentIntent: &checkout.PaymentIntent{
			ID:           "pi_" + id,
			ClientSecret: "pi_" + id + "_secret_x",
			Status:       checkout.StatusRequiresPaymentMethod,
		}},
	}, nil
}

func (b *fakeBackend) CancelSubscription(_ context.Context, subscriptionID string) error {
	if b.failWith != nil {
		return b.failWith
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelled = append(b.cancelled, subscriptionID)
	return nil
}

func (b *fakeBackend) SetDefaultPaymentMethod(_ context.Context, customerID, paymentMethodID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.defaults[customerID] = paymentMethodID
	return nil
}

func (b *fakeBackend) RetrieveUpcomingInvoice(_ context.Context, _, _, newPriceID string) (*checkout.UpcomingInvoice, error) {
	if newPriceID == "premium" {
		return &checkout.UpcomingInvoice{AmountDue: 1000, NextPaymentAttempt: 1900000000}, nil
	}
	return &checkout.UpcomingInvoice{AmountDue: 500, NextPaymentAttempt: 1900000000}, nil
}

func (b *fakeBackend) UpdateSubscription(context.Context, string, string) error {
	return b.failWith
}

func (b *fakeBackend) RetrieveCustomerPaymentMethod(_ context.Context, paymentMethodID string) (*checkout.PaymentMethod, error) {
	if paymentMethodID == "pm_missing" {
		return nil, &checkout.GatewayError{Message: "No such PaymentMethod: 'pm_missing'"}
	}
	return &checkout.PaymentMethod{ID: paymentMethodID, Card: &checkout.Card{Brand: "visa", Last4: "4242"}}, nil
}

func (b *fakeBackend) defaultPaymentMethod(customerID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.defaults[customerID]
}

func (b *fakeBackend) cancelledIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.cancelled...)
}

// fakeGateway succeeds for every payment method except pm_card_declined.
// pm_card_3ds keeps requiring action until the browser challenge for its
// client secret is answered with authenticate.
type fakeGateway struct {
	mu            sync.Mutex
	methods       map[string]string
	authenticated map[string]bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{methods: map[string]string{}, authenticated: map[string]bool{}}
}

func (g *fakeGateway) ConfirmPayment(_ context.Context, clientSecret string, input checkout.PaymentInput) (*checkout.PaymentIntent, error) {
	if input.PaymentMethodID == "pm_card_declined" {
		return nil, &checkout.GatewayError{Message: "Your card has insufficient funds.", Code: "card_declined"}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.methods[clientSecret] = input.PaymentMethodID

	status := checkout.StatusSucceeded
	if input.PaymentMethodID == "pm_card_3ds" {
		status = checkout.StatusRequiresAction
	}
	return &checkout.PaymentIntent{
		Status:          status,
		ClientSecret:    clientSecret,
		PaymentMethodID: input.PaymentMethodID,
	}, nil
}

func (g *fakeGateway) HandleRequiredAction(_ context.Context, clientSecret string) (*checkout.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	status := checkout.StatusRequiresAction
	if g.authenticated[clientSecret] {
		status = checkout.StatusSucceeded
	}
	return &checkout.PaymentIntent{
		Status:          status,
		ClientSecret:    clientSecret,
		PaymentMethodID: g.methods[clientSecret],
	}, nil
}

func (g *fakeGateway) authenticate(clientSecret string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authenticated[clientSecret] = true
}
