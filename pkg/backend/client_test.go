package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/backend"
	"github.com/dmitrymomot/storefront/pkg/checkout"
)

func newServer(t *testing.T, handler http.HandlerFunc) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := backend.New(srv.URL + "/")
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "localhost:8080", "://bad"} {
		_, err := backend.New(raw)
		assert.ErrorIs(t, err, backend.ErrInvalidBaseURL, raw)
	}

	c, err := backend.NewFromConfig(backend.Config{URL: "http://localhost:4242", Timeout: time.Second})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestNewFromConfigTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	shared := &http.Client{Transport: srv.Client().Transport}
	c, err := backend.NewFromConfig(backend.Config{URL: srv.URL, Timeout: 50 * time.Millisecond},
		backend.WithHTTPClient(shared))
	require.NoError(t, err)
	assert.Zero(t, shared.Timeout, "caller's client must not be modified")

	_, err = c.PublishableKey(context.Background())
	assert.ErrorIs(t, err, backend.ErrRequestFailed)
}

func TestCreateSubscription(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("decodes subscription", func(t *testing.T) {
		t.Parallel()
		c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, backend.PathCreateSubscription, r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var req backend.CreateSubscriptionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, backend.CreateSubscriptionRequest{CustomerID: "cus_1", PriceID: "basic"}, req)

			_, _ = w.Write([]byte(`{"id":"sub_1","latest_invoice":{"payment_intent":{"client_secret":"secret_1"}},"current_period_end":1700000000}`))
		})

		sub, err := c.CreateSubscription(ctx, "cus_1", "basic")
		require.NoError(t, err)
		assert.Equal(t, "sub_1", sub.ID)
		assert.Equal(t, "secret_1", sub.ClientSecret())
		assert.Equal(t, int64(1700000000), sub.CurrentPeriodEnd)
	})

	t.Run("empty body is nil subscription", func(t *testing.T) {
		t.Parallel()
		for _, body := range []string{"", "null", "  \n"} {
			c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			sub, err := c.CreateSubscription(ctx, "cus_1", "basic")
			require.NoError(t, err)
			assert.Nil(t, sub)
		}
	})

	t.Run("error object carries message", func(t *testing.T) {
		t.Parallel()
		c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte(`{"error":{"message":"No such price: 'gold'"}}`))
		})

		_, err := c.CreateSubscription(ctx, "cus_1", "gold")
		assert.ErrorIs(t, err, backend.ErrUnexpectedStatus)
		var ge *checkout.GatewayError
		require.ErrorAs(t, err, &ge)
		assert.Equal(t, "No such price: 'gold'", ge.Message)
	})

	t.Run("error object with 200", func(t *testing.T) {
		t.Parallel()
		c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"error":{"message":"declined"}}`))
		})

		_, err := c.CreateSubscription(ctx, "cus_1", "basic")
		assert.Equal(t, "declined", checkout.UserMessage(err))
	})

	t.Run("garbage body", func(t *testing.T) {
		t.Parallel()
		c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		})

		_, err := c.CreateSubscription(ctx, "cus_1", "basic")
		assert.ErrorIs(t, err, backend.ErrDecodeResponse)
	})
}

func TestAccountEndpoints(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	seen := make(chan string, 16)
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		seen <- r.URL.Path
		switch r.URL.Path {
		case backend.PathCreateCustomer:
			_, _ = w.Write([]byte(`{"customer":{"id":"cus_1","email":"a@b.c"}}`))
		case backend.PathRetrieveUpcomingInvoice:
			var req backend.RetrieveUpcomingInvoiceRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			assert.Equal(t, "premium", req.NewPriceID)
			_, _ = w.Write([]byte(`{"amount_due":1000,"next_payment_attempt":1700000000}`))
		case backend.PathRetrieveCustomerPaymentMethod:
			_, _ = w.Write([]byte(`{"id":"pm_1","card":{"brand":"visa","last4":"4242"}}`))
		case backend.PathConfig:
			assert.Equal(t, http.MethodGet, r.Method)
			_, _ = w.Write([]byte(`{"publishableKey":"pk_test_1"}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	})

	cust, err := c.CreateCustomer(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, "cus_1", cust.ID)

	inv, err := c.RetrieveUpcomingInvoice(ctx, "cus_1", "sub_1", "premium")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), inv.AmountDue)

	pm, err := c.RetrieveCustomerPaymentMethod(ctx, "pm_1")
	require.NoError(t, err)
	assert.Equal(t, "4242", pm.Card.Last4)

	require.NoError(t, c.CancelSubscription(ctx, "sub_1"))
	require.NoError(t, c.SetDefaultPaymentMethod(ctx, "cus_1", "pm_1"))
	require.NoError(t, c.UpdateSubscription(ctx, "sub_1", "premium"))

	key, err := c.PublishableKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pk_test_1", key)

	close(seen)
	var paths []string
	for p := range seen {
		paths = append(paths, p)
	}
	assert.ElementsMatch(t, []string{
		backend.PathCreateCustomer,
		backend.PathRetrieveUpcomingInvoice,
		backend.PathRetrieveCustomerPaymentMethod,
		backend.PathCancelSubscription,
		backend.PathSetDefaultPaymentMethod,
		backend.PathUpdateSubscription,
		backend.PathConfig,
	}, paths)
}

func TestCircuitBreaker(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	cb := backend.NewCircuitBreaker(2, time.Hour)
	c, err := backend.New(srv.URL, backend.WithCircuitBreaker(cb), backend.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	for range 2 {
		err := c.CancelSubscription(ctx, "sub_1")
		assert.ErrorIs(t, err, backend.ErrUnexpectedStatus)
	}
	assert.Equal(t, backend.CircuitOpen, cb.State())

	err = c.CancelSubscription(ctx, "sub_1")
	assert.True(t, errors.Is(err, backend.ErrCircuitOpen))
	assert.Equal(t, int32(2), calls.Load())
}

func TestCircuitBreakerRecovery(t *testing.T) {
	t.Parallel()

	cb := backend.NewCircuitBreaker(1, 10*time.Millisecond)
	assert.Equal(t, "closed", cb.State().String())

	cb.RecordFailure()
	assert.False(t, cb.Allow())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, backend.CircuitHalfOpen, cb.State())
	assert.True(t, cb.Allow())

	cb.RecordFailure()
	assert.Equal(t, backend.CircuitOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	require.True(t, cb.Allow())
	cb.RecordSuccess()
	assert.Equal(t, backend.CircuitClosed, cb.State())
}
