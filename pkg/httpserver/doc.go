// Package httpserver runs the storefront's http.Server with graceful
// shutdown and serves liveness and readiness probes.
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	srv := httpserver.New(cfg, router, httpserver.WithLogger(log))
//	if err := srv.Run(ctx); err != nil {
//	    log.Error("server stopped", logger.Error(err))
//	}
//
// Readiness takes named probes (for example redis.Healthcheck and
// pg.Healthcheck) and answers 503 with the names of the failing ones.
// Run wraps listen errors with ErrStart and drain errors with ErrShutdown.
package httpserver
