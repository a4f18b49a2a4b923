// Package storefront is the HTTP surface of the subscription checkout.
//
// BackendAPI serves the payment backend endpoints (/create-customer,
// /create-subscription, /cancel-subscription, /set-default-payment-method,
// /retrieve-upcoming-invoice, /update-subscription,
// /retrieve-customer-payment-method and /config) on top of a
// checkout.Backend.
//
// CheckoutAPI drives a checkout.Service per session. The session id travels
// in the X-Checkout-Session header; each session gets its own namespace in
// the key-value store for the pending subscription and the plan selection.
//
// Every error is rendered as {"error":{"message":"..."}} with the message a
// customer may see.
package storefront
