// Package checkout implements the subscription checkout flow of the storefront.
//
// A Service is built per checkout session around four collaborators: a
// Backend (customer, subscription, invoice and payment method operations), a
// Gateway (payment intent confirmation and the additional authentication
// step), a PendingStore holding at most one created-but-unpaid subscription,
// and a PlanStore holding the customer's plan selection under its own keys.
//
// # Reconciliation
//
// GetOrCreateSubscription returns the cached pending subscription when it was
// created for the requested plan, without calling the backend. When the plan
// changed, the stale subscription is cancelled in a detached goroutine (its
// outcome is only logged) and a new subscription is created and cached.
// Partial cache records read as absent.
//
// # Payment
//
// CompletePayment is a fixed pipeline with early return:
//
//	Confirm -> RequireAction -> RequirePaymentMethod -> Finalize
//
// Only succeeded and processing intents finish the pipeline; every other
// status fails closed. Submit chains plan lookup, reconciliation, payment and
// the post-payment steps (default payment method, cache clear, provisioning).
// Pay does the same for a subscription reconciled by an earlier call.
//
// An intent that still requires action after the authentication step stops
// the pipeline with ErrActionRequired. The *Error carries the intent's client
// secret so the browser can run the card challenge, after which
// ResumePayment picks up at RequireAction and finalizes the checkout.
//
// # Errors
//
// Every checkout failure is an *Error whose Kind is one of
// ErrSubscriptionCreation, ErrGatewayConfirmation, ErrCardDeclined or
// ErrUnexpected (plus ErrNoPlanSelected / ErrPlanNotFound from Submit,
// ErrNoPendingPayment from Pay and ResumePayment, and ErrActionRequired).
// UserMessage returns the single message to show the customer.
//
// # Stripe
//
// StripeBackend and StripeGateway implement Backend and Gateway with
// stripe-go. The pkg/backend package provides an HTTP Backend for a remote
// server exposing the same operations.
package checkout
