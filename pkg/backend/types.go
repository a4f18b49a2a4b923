package backend

import "github.com/dmitrymomot/storefront/pkg/checkout"

// Wire types of the backend endpoints. The storefront server decodes the
// same structs, so client and server cannot drift apart.

type CreateCustomerRequest struct {
	Email string `json:"email"`
}

type CreateCustomerResponse struct {
	Customer *checkout.Customer `json:"customer"`
}

type CreateSubscriptionRequest struct {
	CustomerID string `json:"customerId"`
	PriceID    string `json:"priceId"`
}

type CancelSubscriptionRequest struct {
	SubscriptionID string `json:"subscriptionId"`
}

type SetDefaultPaymentMethodRequest struct {
	CustomerID      string `json:"customerId"`
	PaymentMethodID string `json:"paymentMethodId"`
}

type RetrieveUpcomingInvoiceRequest struct {
	CustomerID     string `json:"customerId"`
	SubscriptionID string `json:"subscriptionId"`
	NewPriceID     string `json:"newPriceId"`
}

type UpdateSubscriptionRequest struct {
	SubscriptionID string `json:"subscriptionId"`
	NewPriceID     string `json:"newPriceId"`
}

type RetrieveCustomerPaymentMethodRequest struct {
	PaymentMethodID string `json:"paymentMethodId"`
}

type ConfigResponse struct {
	PublishableKey string `json:"publishableKey"`
}

// ErrorResponse is the error body of every endpoint: {"error":{"message":"..."}}.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Message string `json:"message"`
}

// Endpoint paths.
const (
	PathCreateCustomer                = "/create-customer"
	PathCreateSubscription            = "/create-subscription"
	PathCancelSubscription            = "/cancel-subscription"
	PathSetDefaultPaymentMethod       = "/set-default-payment-method"
	PathRetrieveUpcomingInvoice       = "/retrieve-upcoming-invoice"
	PathUpdateSubscription            = "/update-subscription"
	PathRetrieveCustomerPaymentMethod = "/retrieve-customer-payment-method"
	PathConfig                        = "/config"
)
