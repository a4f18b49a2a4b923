// Package async provides small generic helpers for running work in goroutines.
//
// Async starts a function and returns a Future that can be awaited, awaited with
// a timeout, or polled with IsComplete. Detach is for fire-and-forget side effects:
// the work keeps running after the caller's context is cancelled and its failure
// is reported to a callback instead of the caller.
//
// # Usage
//
//	// Cancel a stale subscription without making the customer wait for it.
//	async.Detach(ctx, subscriptionID, backend.CancelSubscription, func(id string, err error) {
//	    log.WarnContext(ctx, "stale subscription cancel failed", "subscription_id", id, "error", err)
//	})
package async
