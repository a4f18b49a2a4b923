// Package requestid correlates a checkout across the storefront and the
// payment backend. Middleware assigns every incoming request an id,
// LoggerExtractor puts it on log records and Transport forwards it to the
// backend on outgoing calls.
package requestid
