package checkout

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrymomot/storefront/pkg/async"
	"github.com/dmitrymomot/storefront/pkg/logger"
)

// Service is the checkout orchestrator of a single checkout session.
type Service interface {
	// Plans and selection
	Plans() []Plan
	SelectPlan(ctx context.Context, priceID string) error
	SelectedPlan(ctx context.Context) (Plan, error)

	// Signup
	CreateCustomer(ctx context.Context, email string) (*Customer, error)

	// Checkout
	GetOrCreateSubscription(ctx context.Context, customerID, priceID string) (*IncompleteSubscription, error)
	RefreshSubscription(ctx context.Context, customerID, priceID string) (*IncompleteSubscription, error)
	CompletePayment(ctx context.Context, clientSecret string, input PaymentInput) (*PaymentIntent, error)
	Pay(ctx context.Context, customerID string, input PaymentInput) (*Completion, error)
	ResumePayment(ctx context.Context, customerID string) (*Completion, error)
	Submit(ctx context.Context, customerID string, input PaymentInput) (*Completion, error)
	Reset(ctx context.Context) error

	// Account
	PreviewPlanChange(ctx context.Context, customerID, subscriptionID, newPriceID string) (*UpcomingInvoice, error)
	ChangePlan(ctx context.Context, subscriptionID, newPriceID string) error
	CancelSubscription(ctx context.Context, subscriptionID string) error
	PaymentMethodSummary(ctx context.Context, paymentMethodID string) (*Card, error)
}

type service struct {
	backend     Backend
	gateway     Gateway
	pending     PendingStore
	plans       PlanStore
	catalog     *Catalog
	provisioner Provisioner
	metrics     *Metrics
	log         *slog.Logger
	onCancelled func(subscriptionID string, err error)
}

// NewService creates a checkout Service for one session.
// Panics if any dependency is nil.
func NewService(backend Backend, gateway Gateway, pending PendingStore, plans PlanStore, opts ...ServiceOption) Service {
	if backend == nil {
		panic("checkout: Backend is required")
	}
	if gateway == nil {
		panic("checkout: Gateway is required")
	}
	if pending == nil {
		panic("checkout: PendingStore is required")
	}
	if plans == nil {
		panic("checkout: PlanStore is required")
	}

	s := &service{
		backend: backend,
		gateway: gateway,
		pending: pending,
		plans:   plans,
		catalog: DefaultCatalog(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("checkout"))

	return s
}

func (s *service) Plans() []Plan {
	return s.catalog.Plans()
}

// SelectPlan persists the plan the customer intends to buy.
func (s *service) SelectPlan(ctx context.Context, priceID string) error {
	if _, ok := s.catalog.Get(priceID); !ok {
		return ErrPlanNotFound
	}
	return s.plans.Select(ctx, priceID)
}

// SelectedPlan returns the persisted plan selection.
func (s *service) SelectedPlan(ctx context.Context) (Plan, error) {
	id, ok, err := s.plans.Selected(ctx)
	if err != nil {
		return Plan{}, err
	}
	if !ok {
		return Plan{}, ErrNoPlanSelected
	}
	plan, ok := s.catalog.Get(id)
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return plan, nil
}

func (s *service) CreateCustomer(ctx context.Context, email string) (*Customer, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrMissingEmail
	}
	customer, err := s.backend.CreateCustomer(ctx, email)
	if err != nil {
		return nil, err
	}
	if customer == nil || customer.ID == "" {
		return nil, errors.New("backend returned no customer")
	}
	return customer, nil
}

// GetOrCreateSubscription reuses the cached pending subscription when it was
// created for priceID. A pending subscription for another plan is cancelled in
// the background and replaced.
func (s *service) GetOrCreateSubscription(ctx context.Context, customerID, priceID string) (*IncompleteSubscription, error) {
	return s.reconcile(ctx, customerID, priceID, false)
}

// RefreshSubscription always creates a new subscription, cancelling any cached one.
func (s *service) RefreshSubscription(ctx context.Context, customerID, priceID string) (*IncompleteSubscription, error) {
	return s.reconcile(ctx, customerID, priceID, true)
}

func (s *service) reconcile(ctx context.Context, customerID, priceID string, refresh bool) (*IncompleteSubscription, error) {
	if customerID == "" {
		return nil, newError(ErrSubscriptionCreation, MsgSubscriptionCreation, ErrMissingCustomerID)
	}
	if priceID == "" {
		return nil, newError(ErrSubscriptionCreation, MsgSubscriptionCreation, ErrMissingPriceID)
	}

	decision := "created"
	cached, ok, err := s.pending.Read(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "pending subscription unreadable, treating as absent", logger.Error(err))
		ok = false
	}
	if ok {
		if !refresh && cached.PriceID == priceID {
			s.metrics.reconciled("reused")
			return &IncompleteSubscription{
				ClientSecret:     cached.ClientSecret,
				SubscriptionID:   cached.SubscriptionID,
				CurrentPeriodEnd: cached.CurrentPeriodEnd,
			}, nil
		}
		decision = "replaced"
		s.cancelDetached(ctx, cached.SubscriptionID)
	}

	sub, err := s.backend.CreateSubscription(ctx, customerID, priceID)
	if err != nil {
		s.log.WarnContext(ctx, "create subscription failed",
			logger.CustomerID(customerID), logger.PriceID(priceID), logger.Error(err))
		return nil, newError(ErrSubscriptionCreation, MsgSubscriptionCreation, err)
	}
	if sub == nil || sub.ID == "" || sub.ClientSecret() == "" || sub.CurrentPeriodEnd == 0 {
		return nil, newError(ErrSubscriptionCreation, MsgSubscriptionCreation, errMalformedSubscription)
	}

	p := PendingSubscription{
		SubscriptionID:   sub.ID,
		PriceID:          priceID,
		ClientSecret:     sub.ClientSecret(),
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	}
	if err := s.pending.Write(ctx, p); err != nil {
		s.log.ErrorContext(ctx, "cache pending subscription",
			logger.SubscriptionID(sub.ID), logger.Error(err))
	}
	s.metrics.reconciled(decision)

	return &IncompleteSubscription{
		ClientSecret:     p.ClientSecret,
		SubscriptionID:   p.SubscriptionID,
		CurrentPeriodEnd: p.CurrentPeriodEnd,
	}, nil
}

var errMalformedSubscription = errors.New("backend returned no usable subscription")

// cancelDetached fires the stale-subscription cancellation without waiting for it.
// Failures are logged and never reach the caller.
func (s *service) cancelDetached(ctx context.Context, subscriptionID string) {
	async.Detach(ctx, subscriptionID, func(ctx context.Context, id string) error {
		err := s.backend.CancelSubscription(ctx, id)
		if s.onCancelled != nil {
			s.onCancelled(id, err)
		}
		return err
	}, func(id string, err error) {
		s.log.WarnContext(ctx, "cancel stale subscription failed",
			logger.SubscriptionID(id), logger.Error(err))
	})
}

// Submit runs a full checkout for the selected plan: reconcile the
// subscription, drive the payment to a terminal state and finalize.
// Every error returned is an *Error.
func (s *service) Submit(ctx context.Context, customerID string, input PaymentInput) (completion *Completion, err error) {
	defer func() { s.metrics.outcome(err) }()

	priceID, ok, err := s.plans.Selected(ctx)
	if err != nil {
		return nil, newError(ErrUnexpected, MsgUnexpected, err)
	}
	if !ok {
		return nil, newError(ErrNoPlanSelected, MsgNoPlanSelected, nil)
	}
	if _, ok := s.catalog.Get(priceID); !ok {
		return nil, newError(ErrPlanNotFound, MsgNoPlanSelected, nil)
	}

	sub, err := s.GetOrCreateSubscription(ctx, customerID, priceID)
	if err != nil {
		return nil, asUserError(ErrSubscriptionCreation, err)
	}

	intent, err := s.CompletePayment(ctx, sub.ClientSecret, input)
	if err != nil {
		return nil, err
	}

	return s.finalize(ctx, Completion{
		CustomerID:       customerID,
		SubscriptionID:   sub.SubscriptionID,
		PriceID:          priceID,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
		PaymentMethodID:  intent.PaymentMethodID,
	}), nil
}

// Pay charges the session's pending subscription, created earlier by
// GetOrCreateSubscription, and finalizes the checkout like Submit.
func (s *service) Pay(ctx context.Context, customerID string, input PaymentInput) (completion *Completion, err error) {
	defer func() { s.metrics.outcome(err) }()

	p, err := s.pendingPayment(ctx, customerID)
	if err != nil {
		return nil, err
	}
	intent, err := s.CompletePayment(ctx, p.ClientSecret, input)
	if err != nil {
		return nil, err
	}
	return s.finalize(ctx, completionOf(customerID, p, intent)), nil
}

// ResumePayment finishes a payment that stopped with ErrActionRequired after
// the customer authenticated it in the browser.
func (s *service) ResumePayment(ctx context.Context, customerID string) (completion *Completion, err error) {
	defer func() { s.metrics.outcome(err) }()

	p, err := s.pendingPayment(ctx, customerID)
	if err != nil {
		return nil, err
	}
	intent, err := s.resumeAuthenticated(ctx, p.ClientSecret)
	if err != nil {
		return nil, err
	}
	return s.finalize(ctx, completionOf(customerID, p, intent)), nil
}

func (s *service) pendingPayment(ctx context.Context, customerID string) (PendingSubscription, error) {
	if customerID == "" {
		return PendingSubscription{}, ErrMissingCustomerID
	}
	p, ok, err := s.pending.Read(ctx)
	if err != nil {
		return PendingSubscription{}, newError(ErrUnexpected, MsgUnexpected, err)
	}
	if !ok {
		return PendingSubscription{}, newError(ErrNoPendingPayment, MsgNoPendingPayment, nil)
	}
	return p, nil
}

func completionOf(customerID string, p PendingSubscription, intent *PaymentIntent) Completion {
	return Completion{
		CustomerID:       customerID,
		SubscriptionID:   p.SubscriptionID,
		PriceID:          p.PriceID,
		CurrentPeriodEnd: p.CurrentPeriodEnd,
		PaymentMethodID:  intent.PaymentMethodID,
	}
}

// finalize runs the post-payment steps. The payment already succeeded, so
// none of their failures are returned.
func (s *service) finalize(ctx context.Context, c Completion) *Completion {
	if c.PaymentMethodID != "" {
		if err := s.backend.SetDefaultPaymentMethod(ctx, c.CustomerID, c.PaymentMethodID); err != nil {
			s.log.WarnContext(ctx, "set default payment method failed",
				logger.CustomerID(c.CustomerID), logger.Error(err))
		}
	}

	if err := s.pending.Clear(ctx); err != nil {
		s.log.ErrorContext(ctx, "clear pending subscription",
			logger.SubscriptionID(c.SubscriptionID), logger.Error(err))
	}

	if s.provisioner != nil {
		if err := s.provisioner.Provision(ctx, c); err != nil {
			s.log.ErrorContext(ctx, "provision access failed",
				logger.CustomerID(c.CustomerID), logger.SubscriptionID(c.SubscriptionID), logger.Error(err))
		}
	}

	s.log.InfoContext(ctx, "checkout completed",
		logger.CustomerID(c.CustomerID),
		logger.SubscriptionID(c.SubscriptionID),
		logger.PriceID(c.PriceID),
	)
	return &c
}

// Reset drops the pending subscription and the plan selection.
func (s *service) Reset(ctx context.Context) error {
	return errors.Join(s.pending.Clear(ctx), s.plans.Clear(ctx))
}

func (s *service) PreviewPlanChange(ctx context.Context, customerID, subscriptionID, newPriceID string) (*UpcomingInvoice, error) {
	if customerID == "" {
		return nil, ErrMissingCustomerID
	}
	if newPriceID == "" {
		return nil, ErrMissingPriceID
	}
	return s.backend.RetrieveUpcomingInvoice(ctx, customerID, subscriptionID, newPriceID)
}

func (s *service) ChangePlan(ctx context.Context, subscriptionID, newPriceID string) error {
	if newPriceID == "" {
		return ErrMissingPriceID
	}
	if err := s.backend.UpdateSubscription(ctx, subscriptionID, newPriceID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "subscription plan changed",
		logger.SubscriptionID(subscriptionID), logger.PriceID(newPriceID))
	return nil
}

// CancelSubscription cancels an active subscription and waits for the backend.
func (s *service) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if err := s.backend.CancelSubscription(ctx, subscriptionID); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "subscription cancelled", logger.SubscriptionID(subscriptionID))
	return nil
}

// PaymentMethodSummary returns the card brand (capitalized) and last four digits.
func (s *service) PaymentMethodSummary(ctx context.Context, paymentMethodID string) (*Card, error) {
	if paymentMethodID == "" {
		return nil, ErrMissingPaymentData
	}
	pm, err := s.backend.RetrieveCustomerPaymentMethod(ctx, paymentMethodID)
	if err != nil {
		return nil, err
	}
	if pm == nil || pm.Card == nil {
		return nil, errors.New("payment method has no card")
	}
	return &Card{Brand: capitalize(pm.Card.Brand), Last4: pm.Card.Last4}, nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
