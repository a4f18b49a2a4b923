package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/storefront/pkg/checkout"
)

// Config configures the backend client.
type Config struct {
	URL     string        `env:"BACKEND_URL"`
	Timeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"15s"`
}

// maxBodySize caps how much of a response is read.
const maxBodySize = 1 << 20

// Client is a JSON-over-HTTP checkout.Backend.
type Client struct {
	baseURL string
	client  *http.Client
	breaker *CircuitBreaker
}

var _ checkout.Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. Nil is ignored.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.client = c
		}
	}
}

// WithCircuitBreaker makes the client fail fast with ErrCircuitOpen while the backend is down.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(cl *Client) {
		cl.breaker = cb
	}
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromConfig is New with cfg.Timeout applied to the HTTP client.
// A client passed with WithHTTPClient is copied, never modified.
func NewFromConfig(cfg Config, opts ...Option) (*Client, error) {
	c, err := New(cfg.URL, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		hc := *c.client
		hc.Timeout = cfg.Timeout
		c.client = &hc
	}
	return c, nil
}

func (c *Client) CreateCustomer(ctx context.Context, email string) (*checkout.Customer, error) {
	var resp CreateCustomerResponse
	if _, err := c.do(ctx, http.MethodPost, PathCreateCustomer, CreateCustomerRequest{Email: email}, &resp); err != nil {
		return nil, err
	}
	if resp.Customer == nil {
		return nil, fmt.Errorf("%w: missing customer", ErrDecodeResponse)
	}
	return resp.Customer, nil
}

// CreateSubscription returns nil, nil when the backend answers with an empty body.
func (c *Client) CreateSubscription(ctx context.Context, customerID, priceID string) (*checkout.Subscription, error) {
	var sub checkout.Subscription
	empty, err := c.do(ctx, http.MethodPost, PathCreateSubscription,
		CreateSubscriptionRequest{CustomerID: customerID, PriceID: priceID}, &sub)
	if err != nil || empty {
		return nil, err
	}
	return &sub, nil
}

func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	_, err := c.do(ctx, http.MethodPost, PathCancelSubscription,
		CancelSubscriptionRequest{SubscriptionID: subscriptionID}, nil)
	return err
}

func (c *Client) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	_, err := c.do(ctx, http.MethodPost, PathSetDefaultPaymentMethod,
		SetDefaultPaymentMethodRequest{CustomerID: customerID, PaymentMethodID: paymentMethodID}, nil)
	return err
}

func (c *Client) RetrieveUpcomingInvoice(ctx context.Context, customerID, subscriptionID, newPriceID string) (*checkout.UpcomingInvoice, error) {
	var inv checkout.UpcomingInvoice
	empty, err := c.do(ctx, http.MethodPost, PathRetrieveUpcomingInvoice, RetrieveUpcomingInvoiceRequest{
		CustomerID:     customerID,
		SubscriptionID: subscriptionID,
		NewPriceID:     newPriceID,
	}, &inv)
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, fmt.Errorf("%w: empty invoice", ErrDecodeResponse)
	}
	return &inv, nil
}

func (c *Client) UpdateSubscription(ctx context.Context, subscriptionID, newPriceID string) error {
	_, err := c.do(ctx, http.MethodPost, PathUpdateSubscription,
		UpdateSubscriptionRequest{SubscriptionID: subscriptionID, NewPriceID: newPriceID}, nil)
	return err
}

func (c *Client) RetrieveCustomerPaymentMethod(ctx context.Context, paymentMethodID string) (*checkout.PaymentMethod, error) {
	var pm checkout.PaymentMethod
	empty, err := c.do(ctx, http.MethodPost, PathRetrieveCustomerPaymentMethod,
		RetrieveCustomerPaymentMethodRequest{PaymentMethodID: paymentMethodID}, &pm)
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, fmt.Errorf("%w: empty payment method", ErrDecodeResponse)
	}
	return &pm, nil
}

// PublishableKey fetches the gateway publishable key from /config.
func (c *Client) PublishableKey(ctx context.Context) (string, error) {
	var cfg ConfigResponse
	if _, err := c.do(ctx, http.MethodGet, PathConfig, nil, &cfg); err != nil {
		return "", err
	}
	return cfg.PublishableKey, nil
}

// do sends in as JSON and decodes the response into out (if non-nil).
// It reports whether the response body was empty or a JSON null.
// An {"error":{"message"}} body is returned as *checkout.GatewayError joined
// with ErrUnexpectedStatus so the message can reach the customer.
func (c *Client) do(ctx context.Context, method, path string, in, out any) (bool, error) {
	if c.breaker != nil && !c.breaker.Allow() {
		return false, ErrCircuitOpen
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return false, errors.Join(ErrRequestFailed, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return false, errors.Join(ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.recordFailure()
		return false, errors.Join(ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		c.recordFailure()
		return false, errors.Join(ErrRequestFailed, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.recordFailure()
	} else {
		c.recordSuccess()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, statusError(resp.StatusCode, raw)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true, nil
	}

	// Some backends answer 200 with an error object.
	var errResp ErrorResponse
	if json.Unmarshal(trimmed, &errResp) == nil && errResp.Error.Message != "" {
		return false, errors.Join(ErrUnexpectedStatus, &checkout.GatewayError{Message: errResp.Error.Message})
	}

	if out == nil {
		return false, nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return false, errors.Join(ErrDecodeResponse, err)
	}
	return false, nil
}

func statusError(status int, raw []byte) error {
	var errResp ErrorResponse
	if json.Unmarshal(raw, &errResp) == nil && errResp.Error.Message != "" {
		return errors.Join(
			fmt.Errorf("%w: status %d", ErrUnexpectedStatus, status),
			&checkout.GatewayError{Message: errResp.Error.Message},
		)
	}

	snippet := strings.ReplaceAll(string(raw), "\n", " ")
	if len(snippet) > 200 {
		snippet = snippet[:200] + "..."
	}
	return fmt.Errorf("%w: status %d: %s", ErrUnexpectedStatus, status, snippet)
}

func (c *Client) recordFailure() {
	if c.breaker != nil {
		c.breaker.RecordFailure()
	}
}

func (c *Client) recordSuccess() {
	if c.breaker != nil {
		c.breaker.RecordSuccess()
	}
}
