package storefront

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/storefront/pkg/environment"
	"github.com/dmitrymomot/storefront/pkg/httpserver"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/requestid"
)

// RouterOptions configures which parts of the storefront are mounted.
// Backend and Checkout are optional; a storefront that talks to a remote
// backend mounts only Checkout.
type RouterOptions struct {
	Backend     *BackendAPI
	Checkout    *CheckoutAPI
	Environment environment.Environment
	Probes      map[string]httpserver.Probe
	Gatherer    prometheus.Gatherer
	Logger      *slog.Logger
}

// Router builds the storefront HTTP handler.
//
//	r := storefront.Router(storefront.RouterOptions{
//	    Backend:  storefront.NewBackendAPI(stripeBackend, cfg.Stripe.PublishableKey, log),
//	    Checkout: storefront.NewCheckoutAPI(factory, provisioner, log),
//	})
func Router(opts RouterOptions) chi.Router {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	env := opts.Environment
	if env == "" {
		env = environment.Development
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer,
		requestid.Middleware,
		environment.Middleware(env),
		accessLog(log),
	)

	r.Get("/healthz", httpserver.Liveness())
	r.Get("/readyz", httpserver.Readiness(log, opts.Probes))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if opts.Backend != nil {
		opts.Backend.Routes(r)
	}
	if opts.Checkout != nil {
		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware)
			opts.Checkout.Routes(r)
		})
	}

	return r
}

func accessLog(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.InfoContext(r.Context(), "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				logger.Duration(time.Since(start)),
			)
		})
	}
}
