package provision

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/storefront/pkg/checkout"
	"github.com/dmitrymomot/storefront/pkg/logger"
)

// Provisioner turns paid checkouts into access grants.
type Provisioner struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

var _ checkout.Provisioner = (*Provisioner)(nil)

// Option configures a Provisioner.
type Option func(*Provisioner)

func WithLogger(log *slog.Logger) Option {
	return func(p *Provisioner) {
		if log != nil {
			p.log = log
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Provisioner) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProvisioner panics on a nil store.
func NewProvisioner(store Store, opts ...Option) *Provisioner {
	if store == nil {
		panic("provision: store is required")
	}
	p := &Provisioner{store: store, log: logger.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With(logger.Component("provision"))
	return p
}

// Provision grants access until the subscription's current period end.
// Provisioning the same subscription twice refreshes the grant.
func (p *Provisioner) Provision(ctx context.Context, c checkout.Completion) error {
	if c.CustomerID == "" || c.SubscriptionID == "" || c.PriceID == "" {
		return ErrInvalidCompletion
	}

	g := Grant{
		SubscriptionID:  c.SubscriptionID,
		CustomerID:      c.CustomerID,
		PlanID:          c.PriceID,
		PaymentMethodID: c.PaymentMethodID,
		ExpiresAt:       time.Unix(c.CurrentPeriodEnd, 0).UTC(),
		GrantedAt:       p.now().UTC(),
	}
	if err := p.store.Save(ctx, g); err != nil {
		return err
	}

	p.log.InfoContext(ctx, "access granted",
		logger.CustomerID(g.CustomerID),
		logger.SubscriptionID(g.SubscriptionID),
		logger.PriceID(g.PlanID),
		slog.Time("expires_at", g.ExpiresAt),
	)
	return nil
}

// Revoke ends access for a cancelled subscription. A missing grant is not an error.
func (p *Provisioner) Revoke(ctx context.Context, subscriptionID string) error {
	err := p.store.Revoke(ctx, subscriptionID, p.now().UTC())
	if err != nil && !errors.Is(err, ErrGrantNotFound) {
		return err
	}
	p.log.InfoContext(ctx, "access revoked", logger.SubscriptionID(subscriptionID))
	return nil
}

// Active returns the customer's grants that are currently in effect.
func (p *Provisioner) Active(ctx context.Context, customerID string) ([]Grant, error) {
	grants, err := p.store.ByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	now := p.now()
	active := grants[:0]
	for _, g := range grants {
		if g.Active(now) {
			active = append(active, g)
		}
	}
	return active, nil
}
