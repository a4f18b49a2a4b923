package provision

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/storefront/pkg/pg"
)

// Migrations holds the goose migrations of the access_grants table.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations passed to pg.Migrate.
const MigrationsDir = "migrations"

// dbtx is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps grants in the access_grants table.
type PostgresStore struct {
	db dbtx
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore panics on a nil db.
func NewPostgresStore(db dbtx) *PostgresStore {
	if db == nil {
		panic("provision: db is required")
	}
	return &PostgresStore{db: db}
}

const grantColumns = `subscription_id, customer_id, plan_id, payment_method_id, expires_at, granted_at, revoked_at`

func (s *PostgresStore) Save(ctx context.Context, g Grant) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO access_grants (`+grantColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (subscription_id)
DO UPDATE SET customer_id = EXCLUDED.customer_id,
              plan_id = EXCLUDED.plan_id,
              payment_method_id = EXCLUDED.payment_method_id,
              expires_at = EXCLUDED.expires_at,
              granted_at = EXCLUDED.granted_at,
              revoked_at = EXCLUDED.revoked_at
`, g.SubscriptionID, g.CustomerID, g.PlanID, g.PaymentMethodID, g.ExpiresAt, g.GrantedAt, g.RevokedAt)
	if err != nil {
		return errors.Join(ErrSaveGrant, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, subscriptionID string) (Grant, error) {
	row := s.db.QueryRow(ctx, `SELECT `+grantColumns+` FROM access_grants WHERE subscription_id = $1`, subscriptionID)
	g, err := scanGrant(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Grant{}, ErrGrantNotFound
		}
		return Grant{}, errors.Join(ErrLoadGrant, err)
	}
	return g, nil
}

func (s *PostgresStore) ByCustomer(ctx context.Context, customerID string) ([]Grant, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+grantColumns+`
FROM access_grants
WHERE customer_id = $1
ORDER BY granted_at DESC`, customerID)
	if err != nil {
		return nil, errors.Join(ErrLoadGrant, err)
	}
	defer rows.Close()

	var out []Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, errors.Join(ErrLoadGrant, err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrLoadGrant, err)
	}
	return out, nil
}

func (s *PostgresStore) Revoke(ctx context.Context, subscriptionID string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `UPDATE access_grants SET revoked_at = $2 WHERE subscription_id = $1`, subscriptionID, at)
	if err != nil {
		return errors.Join(ErrSaveGrant, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGrantNotFound
	}
	return nil
}

func scanGrant(row pgx.Row) (Grant, error) {
	var g Grant
	err := row.Scan(&g.SubscriptionID, &g.CustomerID, &g.PlanID, &g.PaymentMethodID, &g.ExpiresAt, &g.GrantedAt, &g.RevokedAt)
	return g, err
}
