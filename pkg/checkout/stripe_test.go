package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/dmitrymomot/storefront/pkg/logger"
)

func TestStripeConstructors(t *testing.T) {
	t.Parallel()

	_, err := NewStripeBackend(StripeConfig{})
	assert.ErrorIs(t, err, ErrMissingStripeKey)
	_, err = NewStripeGateway(StripeConfig{})
	assert.ErrorIs(t, err, ErrMissingStripeKey)

	b, err := NewStripeBackend(StripeConfig{SecretKey: "sk_test_123"})
	require.NoError(t, err)
	assert.NotNil(t, b.api.newSubscription)
}

func TestStripeBackendCreateSubscription(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var captured *stripe.SubscriptionParams
	b := &StripeBackend{
		prices: map[string]string{"basic": "price_basic"},
		api: stripeAPI{
			newSubscription: func(params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
				captured = params
				return &stripe.Subscription{
					ID:               "sub_1",
					CurrentPeriodEnd: 1700000000,
					LatestInvoice: &stripe.Invoice{
						PaymentIntent: &stripe.PaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret_x"},
					},
				}, nil
			},
		},
	}

	sub, err := b.CreateSubscription(ctx, "cus_1", "basic")
	require.NoError(t, err)
	assert.Equal(t, "sub_1", sub.ID)
	assert.Equal(t, "pi_1_secret_x", sub.ClientSecret())
	assert.Equal(t, int64(1700000000), sub.CurrentPeriodEnd)

	require.NotNil(t, captured)
	assert.Equal(t, "cus_1", *captured.Customer)
	assert.Equal(t, "default_incomplete", *captured.PaymentBehavior)
	require.Len(t, captured.Items, 1)
	assert.Equal(t, "price_basic", *captured.Items[0].Price)
	assert.Contains(t, captured.Expand, stripe.String("latest_invoice.payment_intent"))
	assert.Equal(t, ctx, captured.Context)
	assert.NotNil(t, captured.IdempotencyKey)

	_, err = b.CreateSubscription(ctx, "cus_1", "price_raw")
	require.NoError(t, err)
	assert.Equal(t, "price_raw", *captured.Items[0].Price)
}

func TestStripeBackendPlanChange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var updated *stripe.SubscriptionParams
	var preview *stripe.InvoiceUpcomingParams
	b := &StripeBackend{
		prices: map[string]string{"premium": "price_premium"},
		api: stripeAPI{
			getSubscription: func(id string, _ *stripe.SubscriptionParams) (*stripe.Subscription, error) {
				if id == "sub_empty" {
					return &stripe.Subscription{ID: id, Items: &stripe.SubscriptionItemList{}}, nil
				}
				return &stripe.Subscription{
					ID: id,
					Items: &stripe.SubscriptionItemList{
						Data: []*stripe.SubscriptionItem{{ID: "si_1"}},
					},
				}, nil
			},
			updateSubscription: func(_ string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
				updated = params
				return &stripe.Subscription{}, nil
			},
			upcomingInvoice: func(params *stripe.InvoiceUpcomingParams) (*stripe.Invoice, error) {
				preview = params
				return &stripe.Invoice{AmountDue: 1000, NextPaymentAttempt: 1700000000}, nil
			},
		},
	}

	require.NoError(t, b.UpdateSubscription(ctx, "sub_1", "premium"))
	require.Len(t, updated.Items, 1)
	assert.Equal(t, "si_1", *updated.Items[0].ID)
	assert.Equal(t, "price_premium", *updated.Items[0].Price)
	assert.False(t, *updated.CancelAtPeriodEnd)

	inv, err := b.RetrieveUpcomingInvoice(ctx, "cus_1", "sub_1", "premium")
	require.NoError(t, err)
	assert.Equal(t, &UpcomingInvoice{AmountDue: 1000, NextPaymentAttempt: 1700000000}, inv)
	assert.Equal(t, "cus_1", *preview.Customer)
	require.Len(t, preview.SubscriptionItems, 1)
	assert.Equal(t, "si_1", *preview.SubscriptionItems[0].ID)
	assert.Equal(t, "price_premium", *preview.SubscriptionItems[0].Price)

	assert.Error(t, b.UpdateSubscription(ctx, "sub_empty", "premium"))
	assert.Error(t, b.UpdateSubscription(ctx, "", "premium"))
}

func TestStripeBackendPaymentMethods(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var defaultPM string
	b := &StripeBackend{api: stripeAPI{
		updateCustomer: func(_ string, params *stripe.CustomerParams) (*stripe.Customer, error) {
			defaultPM = *params.InvoiceSettings.DefaultPaymentMethod
			return &stripe.Customer{}, nil
		},
		getPaymentMethod: func(id string, _ *stripe.PaymentMethodParams) (*stripe.PaymentMethod, error) {
			return &stripe.PaymentMethod{
				ID:   id,
				Card: &stripe.PaymentMethodCard{Brand: stripe.PaymentMethodCardBrandVisa, Last4: "4242"},
			}, nil
		},
		cancelSubscription: func(string, *stripe.SubscriptionCancelParams) (*stripe.Subscription, error) {
			return nil, &stripe.Error{Type: stripe.ErrorTypeAPI, Msg: "internal"}
		},
	}}

	require.NoError(t, b.SetDefaultPaymentMethod(ctx, "cus_1", "pm_1"))
	assert.Equal(t, "pm_1", defaultPM)

	pm, err := b.RetrieveCustomerPaymentMethod(ctx, "pm_1")
	require.NoError(t, err)
	assert.Equal(t, &Card{Brand: "visa", Last4: "4242"}, pm.Card)

	err = b.CancelSubscription(ctx, "sub_1")
	var se *stripe.Error
	assert.ErrorAs(t, err, &se)
}

func TestStripeGateway(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("confirm maps intent", func(t *testing.T) {
		t.Parallel()
		var confirmedID string
		var params *stripe.PaymentIntentConfirmParams
		g := &StripeGateway{returnURL: "https://example.com/account", api: stripeAPI{
			confirmIntent: func(id string, p *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error) {
				confirmedID, params = id, p
				return &stripe.PaymentIntent{
					ID:            id,
					Status:        stripe.PaymentIntentStatusRequiresAction,
					ClientSecret:  "pi_1_secret_x",
					PaymentMethod: &stripe.PaymentMethod{ID: "pm_1"},
				}, nil
			},
		}}

		pi, err := g.ConfirmPayment(ctx, "pi_1_secret_x", PaymentInput{PaymentMethodID: "pm_1"})
		require.NoError(t, err)
		assert.Equal(t, "pi_1", confirmedID)
		assert.Equal(t, "pm_1", *params.PaymentMethod)
		assert.Equal(t, "https://example.com/account", *params.ReturnURL)
		assert.Equal(t, &PaymentIntent{
			ID:              "pi_1",
			Status:          StatusRequiresAction,
			ClientSecret:    "pi_1_secret_x",
			PaymentMethodID: "pm_1",
		}, pi)
	})

	t.Run("card errors become gateway errors", func(t *testing.T) {
		t.Parallel()
		g := &StripeGateway{api: stripeAPI{
			confirmIntent: func(string, *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error) {
				return nil, &stripe.Error{
					Type:        stripe.ErrorTypeCard,
					Msg:         "Your card was declined.",
					Code:        stripe.ErrorCodeCardDeclined,
					DeclineCode: stripe.DeclineCodeGenericDecline,
				}
			},
		}}

		_, err := g.ConfirmPayment(ctx, "pi_1_secret_x", PaymentInput{PaymentMethodID: "pm_1"})
		var ge *GatewayError
		require.ErrorAs(t, err, &ge)
		assert.Equal(t, "Your card was declined.", ge.Message)
		assert.Equal(t, "card_declined", ge.Code)
		assert.Equal(t, "generic_decline", ge.DeclineCode)
	})

	t.Run("handle required action reloads intent", func(t *testing.T) {
		t.Parallel()
		g := &StripeGateway{api: stripeAPI{
			getIntent: func(id string, _ *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
				return &stripe.PaymentIntent{ID: id, Status: stripe.PaymentIntentStatusSucceeded}, nil
			},
		}}

		pi, err := g.HandleRequiredAction(ctx, "pi_9_secret_y")
		require.NoError(t, err)
		assert.Equal(t, "pi_9", pi.ID)
		assert.Equal(t, StatusSucceeded, pi.Status)
	})

	t.Run("malformed client secret", func(t *testing.T) {
		t.Parallel()
		g := &StripeGateway{}
		_, err := g.HandleRequiredAction(ctx, "not-a-secret")
		assert.ErrorIs(t, err, ErrMissingSecret)
	})
}

// A 3-D Secure card pauses the checkout until the browser has run the
// challenge, then the resumed payment reads the final intent status.
func TestStripeCheckoutWithCardAuthentication(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var challenged bool
	api := stripeAPI{
		confirmIntent: func(id string, _ *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error) {
			return &stripe.PaymentIntent{
				ID:            id,
				Status:        stripe.PaymentIntentStatusRequiresAction,
				ClientSecret:  id + "_secret_x",
				PaymentMethod: &stripe.PaymentMethod{ID: "pm_3ds"},
			}, nil
		},
		getIntent: func(id string, _ *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			status := stripe.PaymentIntentStatusRequiresAction
			if challenged {
				status = stripe.PaymentIntentStatusSucceeded
			}
			return &stripe.PaymentIntent{ID: id, Status: status, PaymentMethod: &stripe.PaymentMethod{ID: "pm_3ds"}}, nil
		},
		updateCustomer: func(string, *stripe.CustomerParams) (*stripe.Customer, error) {
			return &stripe.Customer{}, nil
		},
	}
	kv := NewMemoryKV()
	pending := NewPendingStore(Prefixed(kv, "pending:"))
	svc := NewService(&StripeBackend{api: api}, &StripeGateway{api: api}, pending, NewPlanStore(Prefixed(kv, "plan:")),
		WithLogger(logger.Discard()))
	require.NoError(t, pending.Write(ctx, PendingSubscription{
		SubscriptionID: "sub_1", PriceID: "basic", ClientSecret: "pi_1_secret_x", CurrentPeriodEnd: 1700000000,
	}))

	_, err := svc.Pay(ctx, "cus_1", PaymentInput{PaymentMethodID: "pm_3ds"})
	secret, ok := ActionRequired(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "pi_1_secret_x", secret)

	challenged = true
	completion, err := svc.ResumePayment(ctx, "cus_1")
	require.NoError(t, err)
	assert.Equal(t, "sub_1", completion.SubscriptionID)
	assert.Equal(t, "pm_3ds", completion.PaymentMethodID)
	assert.Zero(t, kv.Len())
}

func TestFromStripeError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, fromStripeError(nil))

	plain := errors.New("dial tcp")
	assert.Equal(t, plain, fromStripeError(plain))

	var ge *GatewayError
	err := fromStripeError(&stripe.Error{Type: stripe.ErrorTypeInvalidRequest, Msg: "No such price"})
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "No such price", ge.Message)
}
