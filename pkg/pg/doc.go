// Package pg bootstraps PostgreSQL with pgx/v5 and goose/v3.
//
// Postgres is optional for the storefront: it stores the access grants
// written after a successful checkout. When PG_CONN_URL is empty the server
// keeps grants in memory instead.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, provision.Migrations, "migrations", cfg, log); err != nil {
//	    return err
//	}
//
// Healthcheck returns a func(context.Context) error for the readiness probe.
// IsNotFoundError and IsDuplicateKeyError classify pgx errors.
package pg
