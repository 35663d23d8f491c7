package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/db"
)

// Postgres keeps entries in a shared Postgres table so several hosts can
// reuse the same resolutions.
type Postgres struct {
	pool    db.Pool
	table   string
	ttlDays int
}

// PostgresOption configures a Postgres cache.
type PostgresOption func(*Postgres)

// WithTable overrides the cache table name.
func WithTable(table string) PostgresOption {
	return func(p *Postgres) {
		p.table = table
	}
}

// WithTTLDays ignores entries cached more than days ago. Zero disables expiry.
func WithTTLDays(days int) PostgresOption {
	return func(p *Postgres) {
		p.ttlDays = days
	}
}

// NewPostgres returns a Postgres cache on pool.
func NewPostgres(pool db.Pool, opts ...PostgresOption) *Postgres {
	p := &Postgres{pool: pool, table: "public.geocode_cache"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Migrate creates the cache table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			cache_key TEXT PRIMARY KEY,
			value     BYTEA NOT NULL,
			cached_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, p.table))
	if err != nil {
		return eris.Wrap(err, "cache: postgres migrate")
	}
	return nil
}

// Get implements Cache.
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := fmt.Sprintf("SELECT value FROM %s WHERE cache_key = $1", p.table)
	if p.ttlDays > 0 {
		query += fmt.Sprintf(" AND cached_at > now() - interval '%d days'", p.ttlDays)
	}

	var value []byte
	err := p.pool.QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "cache: postgres get %s", key)
	}

	zap.L().Debug("postgres cache hit", zap.String("key", key))
	return value, true, nil
}

// Put implements Cache.
func (p *Postgres) Put(ctx context.Context, key string, value []byte) error {
	_, err := p.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (cache_key, value, cached_at)
		VALUES ($1, $2, now())
		ON CONFLICT (cache_key) DO UPDATE SET
			value = EXCLUDED.value,
			cached_at = now()`, p.table),
		key, value,
	)
	if err != nil {
		return eris.Wrapf(err, "cache: postgres put %s", key)
	}
	return nil
}
