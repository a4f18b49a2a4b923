package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/storefront/modules/storefront"
	"github.com/dmitrymomot/storefront/pkg/backend"
	"github.com/dmitrymomot/storefront/pkg/checkout"
	"github.com/dmitrymomot/storefront/pkg/config"
	"github.com/dmitrymomot/storefront/pkg/environment"
	"github.com/dmitrymomot/storefront/pkg/httpserver"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/pg"
	"github.com/dmitrymomot/storefront/pkg/provision"
	"github.com/dmitrymomot/storefront/pkg/redis"
	"github.com/dmitrymomot/storefront/pkg/requestid"
)

type appConfig struct {
	Env         string        `env:"APP_ENV" envDefault:"development"`
	Name        string        `env:"APP_NAME" envDefault:"storefront"`
	CatalogPath string        `env:"CATALOG_PATH"`
	CacheTTL    time.Duration `env:"CHECKOUT_CACHE_TTL" envDefault:"24h"`

	HTTP     httpserver.Config
	Redis    redis.Config
	Postgres pg.Config
	Stripe   checkout.StripeConfig
	Backend  backend.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("storefront stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	env := environment.Parse(cfg.Env)
	log := logger.New(
		logger.WithEnvironment(env, cfg.Name),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			storefront.SessionLoggerExtractor(),
		),
	)
	logger.SetAsDefault(log)

	catalog := checkout.DefaultCatalog()
	if cfg.CatalogPath != "" {
		c, err := checkout.LoadCatalogFile(cfg.CatalogPath)
		if err != nil {
			return err
		}
		catalog = c
	}

	rdb, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()
	kv := redis.NewStorage(rdb, redis.WithPrefix(cfg.Redis.KeyPrefix), redis.WithTTL(cfg.CacheTTL))

	probes := map[string]httpserver.Probe{"redis": redis.Healthcheck(rdb)}

	var grants provision.Store = provision.NewMemoryStore()
	if cfg.Postgres.Enabled() {
		pool, err := pg.Connect(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := pg.Migrate(ctx, pool, provision.Migrations, provision.MigrationsDir, cfg.Postgres, log); err != nil {
			return err
		}
		grants = provision.NewPostgresStore(pool)
		probes["postgres"] = pg.Healthcheck(pool)
	} else {
		log.WarnContext(ctx, "PG_CONN_URL is empty, access grants are kept in memory")
	}
	provisioner := provision.NewProvisioner(grants, provision.WithLogger(log))

	gateway, err := checkout.NewStripeGateway(cfg.Stripe)
	if err != nil {
		return err
	}

	var (
		paymentBackend checkout.Backend
		backendAPI     *storefront.BackendAPI
	)
	if cfg.Backend.URL != "" {
		client, err := backend.NewFromConfig(cfg.Backend,
			backend.WithHTTPClient(&http.Client{Transport: &requestid.Transport{}}),
			backend.WithCircuitBreaker(backend.NewCircuitBreaker(5, 30*time.Second)),
		)
		if err != nil {
			return err
		}
		paymentBackend = client
		log.InfoContext(ctx, "using remote payment backend", slog.String("url", cfg.Backend.URL))
	} else {
		stripeBackend, err := checkout.NewStripeBackend(cfg.Stripe)
		if err != nil {
			return err
		}
		paymentBackend = stripeBackend
		backendAPI = storefront.NewBackendAPI(stripeBackend, cfg.Stripe.PublishableKey, log)
	}

	factory := storefront.NewServiceFactory(kv, paymentBackend, gateway,
		checkout.WithLogger(log),
		checkout.WithCatalog(catalog),
		checkout.WithProvisioner(provisioner),
		checkout.WithMetrics(checkout.DefaultMetrics()),
	)

	router := storefront.Router(storefront.RouterOptions{
		Backend:     backendAPI,
		Checkout:    storefront.NewCheckoutAPI(factory, provisioner, log),
		Environment: env,
		Probes:      probes,
		Gatherer:    prometheus.DefaultGatherer,
		Logger:      log,
	})

	srv := httpserver.New(cfg.HTTP, router, httpserver.WithLogger(log))
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
