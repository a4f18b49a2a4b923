// Package logger builds the storefront's *slog.Logger.
//
// New returns a logger whose handler is wrapped by LogHandlerDecorator, which
// runs registered ContextExtractor callbacks on every record so request-scoped
// values (request id, environment) are logged without threading them through
// call sites. WithEnvironment selects text output at debug level for
// development and JSON at info level for staging and production.
//
// attr.go holds constructors for the attributes used across the checkout flow
// (CustomerID, SubscriptionID, PriceID, Stage, ...) so keys stay consistent.
//
//	log := logger.New(
//	    logger.WithEnvironment(environment.Production, "storefront"),
//	    logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.WarnContext(ctx, "payment stage failed", logger.Stage("confirm"), logger.Error(err))
package logger
