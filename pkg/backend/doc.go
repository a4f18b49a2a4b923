// Package backend is the HTTP client for the storefront payment backend.
//
// Client implements checkout.Backend by POSTing JSON to the backend
// endpoints (/create-customer, /create-subscription, /cancel-subscription,
// ...). Error bodies of the form {"error":{"message":"..."}} surface as a
// *checkout.GatewayError joined with ErrUnexpectedStatus, so the message can
// be shown to the customer. An optional CircuitBreaker makes calls fail fast
// with ErrCircuitOpen while the backend keeps failing.
//
// The request and response structs in types.go are shared with the server
// side in modules/storefront.
package backend
