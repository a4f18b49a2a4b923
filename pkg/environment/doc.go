// Package environment carries the deployment environment (development,
// staging, production) through context.Context, HTTP requests and logs.
//
// Parse turns the APP_ENV value into an Environment; Middleware stamps it on
// every request and LoggerExtractor exposes it to the slog handler built by
// pkg/logger.
package environment
