package provider

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-cli/internal/db"
)

// PostgresStore reads providers from Postgres tables that keep the legacy
// column names as quoted identifiers.
type PostgresStore struct {
	pool   db.Pool
	schema string
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithSchema sets the schema holding the providers and ppo tables.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) {
		s.schema = schema
	}
}

// NewPostgres returns a PostgresStore over pool. The pool is shared, so
// Close is a no-op.
func NewPostgres(pool db.Pool, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{pool: pool, schema: "public"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PostgresOpener returns a StoreOpener handing out stores over pool.
func PostgresOpener(pool db.Pool, opts ...PostgresOption) StoreOpener {
	return func(_ context.Context) (Store, error) {
		return NewPostgres(pool, opts...), nil
	}
}

func (s *PostgresStore) table(name string) string {
	return s.schema + "." + name
}

// Close implements Store.
func (s *PostgresStore) Close() error { return nil }

func (s *PostgresStore) ListProviders(ctx context.Context) ([]Row, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			"PrimaryKey"::text,
			"DBA Name Billing Name",
			"TIN",
			"State",
			"Status",
			"Provider Type",
			"Provider Network",
			"City",
			lat::text,
			lon::text,
			"Email",
			"Fax Number",
			"Phone",
			"Website"
		FROM `+s.table("providers")+`
		WHERE lat IS NOT NULL
		AND lon IS NOT NULL
		AND lat::text <> ''
		AND lon::text <> ''`)
	if err != nil {
		return nil, eris.Wrap(err, "provider: postgres list providers")
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var cols [14]*string
		ptrs := make([]any, len(cols))
		for i := range cols {
			ptrs[i] = &cols[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrap(err, "provider: postgres scan provider")
		}
		out = append(out, Row{
			PrimaryKey:   deref(cols[0]),
			DisplayName:  deref(cols[1]),
			TIN:          deref(cols[2]),
			State:        deref(cols[3]),
			Status:       deref(cols[4]),
			ProviderType: deref(cols[5]),
			Network:      deref(cols[6]),
			City:         deref(cols[7]),
			Lat:          deref(cols[8]),
			Lon:          deref(cols[9]),
			Email:        deref(cols[10]),
			Fax:          deref(cols[11]),
			Phone:        deref(cols[12]),
			Website:      deref(cols[13]),
		})
	}
	return out, eris.Wrap(rows.Err(), "provider: postgres iterate providers")
}

func (s *PostgresStore) LookupRate(ctx context.Context, tin, procCode string) (*float64, error) {
	var rate *float64
	err := s.pool.QueryRow(ctx,
		`SELECT rate::float8 FROM `+s.table("ppo")+` WHERE TRIM("TIN") = $1 AND TRIM(UPPER(proc_cd)) = $2 LIMIT 1`,
		tin, procCode,
	).Scan(&rate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "provider: postgres rate %s/%s", tin, procCode)
	}
	return rate, nil
}

func (s *PostgresStore) Counts(ctx context.Context) (int, int, error) {
	var total, withCoords int
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE lat IS NOT NULL AND lon IS NOT NULL AND lat::text <> '' AND lon::text <> '')
		FROM `+s.table("providers")).Scan(&total, &withCoords)
	if err != nil {
		return 0, 0, eris.Wrap(err, "provider: postgres count providers")
	}
	return total, withCoords, nil
}

func (s *PostgresStore) Columns(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = 'providers' ORDER BY ordinal_position`,
		s.schema,
	)
	if err != nil {
		return nil, eris.Wrap(err, "provider: postgres columns")
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "provider: postgres scan column")
		}
		cols = append(cols, name)
	}
	return cols, eris.Wrap(rows.Err(), "provider: postgres iterate columns")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
