package checkout

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the checkout flow. Compare with errors.Is.
var (
	ErrSubscriptionCreation = errors.New("subscription creation failed")
	ErrGatewayConfirmation  = errors.New("payment confirmation failed")
	ErrCardDeclined         = errors.New("card declined")
	ErrUnexpected           = errors.New("unexpected checkout error")

	// ErrActionRequired pauses a payment until the customer has completed the
	// authentication challenge in the browser. The *Error carries the client
	// secret the browser needs; the payment continues with ResumePayment.
	ErrActionRequired = errors.New("customer action required")
)

var (
	ErrPlanNotFound       = errors.New("plan not found")
	ErrNoPlanSelected     = errors.New("no plan selected")
	ErrNoPendingPayment   = errors.New("no subscription awaiting payment")
	ErrInvalidCatalog     = errors.New("invalid plan catalog")
	ErrMissingCustomerID  = errors.New("customer ID is required")
	ErrMissingEmail       = errors.New("billing email is required")
	ErrMissingPriceID     = errors.New("price ID is required")
	ErrMissingSecret      = errors.New("client secret is required")
	ErrMissingPaymentData = errors.New("payment method is required")
	ErrMissingStripeKey   = errors.New("stripe secret key is required")
)

// User-facing messages.
const (
	MsgSubscriptionCreation = "There was a problem creating the subscription."
	MsgCardDeclined         = "Your card was declined."
	MsgActionRequired       = "Please complete the additional authentication requested by your bank."
	MsgNoPendingPayment     = "There is no subscription awaiting payment. Please start the checkout again."
	MsgPaymentNotCompleted  = "The payment could not be completed. Please try again."
	MsgNoPlanSelected       = "Please select a plan before paying."
	MsgUnexpected           = "Unexpected error. Try again or contact our support team."
)

// Error is the uniform failure shape of the checkout flow.
// Message is safe to show to the customer; Err keeps the underlying cause for logs.
// ClientSecret is only set for ErrActionRequired.
type Error struct {
	Kind         error
	Message      string
	Err          error
	ClientSecret string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// ActionRequired reports whether err pauses the payment for customer
// authentication and returns the client secret to authenticate.
func ActionRequired(err error) (string, bool) {
	var ce *Error
	if !errors.As(err, &ce) || !errors.Is(ce.Kind, ErrActionRequired) || ce.ClientSecret == "" {
		return "", false
	}
	return ce.ClientSecret, true
}

// GatewayError is an error reported by the payment gateway for a card or intent.
// Message comes from the gateway and is meant for the customer.
type GatewayError struct {
	Message     string
	Code        string
	DeclineCode string
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway error (%s): %s", e.Code, e.Message)
	}
	return "gateway error: " + e.Message
}

// UserMessage returns the single message that should be rendered for err.
// Errors that are not recognized checkout errors collapse into MsgUnexpected.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	var ge *GatewayError
	if errors.As(err, &ge) && ge.Message != "" {
		return ge.Message
	}
	return MsgUnexpected
}

// asUserError normalizes any error into *Error.
// Gateway errors keep their message under the given kind, everything else becomes ErrUnexpected.
func asUserError(gatewayKind error, err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	var ge *GatewayError
	if errors.As(err, &ge) {
		msg := ge.Message
		if msg == "" {
			msg = MsgPaymentNotCompleted
		}
		return newError(gatewayKind, msg, err)
	}
	return newError(ErrUnexpected, MsgUnexpected, err)
}
