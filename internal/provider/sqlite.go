package provider

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore reads providers from a SQLite database using the legacy
// column naming (bracketed names with spaces).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens the provider database at dsn.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "provider: sqlite open")
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "provider: sqlite pragma")
	}
	return &SQLiteStore{db: db}, nil
}

// SQLiteOpener returns a StoreOpener for dsn.
func SQLiteOpener(dsn string) StoreOpener {
	return func(_ context.Context) (Store, error) {
		return NewSQLite(dsn)
	}
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS providers (
	PrimaryKey                TEXT PRIMARY KEY,
	[DBA Name Billing Name]   TEXT,
	TIN                       TEXT,
	State                     TEXT,
	Status                    TEXT,
	[Provider Type]           TEXT,
	[Provider Network]        TEXT,
	City                      TEXT,
	lat                       TEXT,
	lon                       TEXT,
	Email                     TEXT,
	[Fax Number]              TEXT,
	Phone                     TEXT,
	Website                   TEXT
);

CREATE TABLE IF NOT EXISTS ppo (
	TIN     TEXT,
	proc_cd TEXT,
	rate    REAL
);

CREATE INDEX IF NOT EXISTS idx_ppo_tin_proc ON ppo(TIN, proc_cd);
`

// Migrate creates the providers and ppo tables when missing.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	return eris.Wrap(err, "provider: sqlite migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListProviders(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			PrimaryKey,
			[DBA Name Billing Name],
			TIN,
			State,
			Status,
			[Provider Type],
			[Provider Network],
			City,
			lat,
			lon,
			Email,
			[Fax Number],
			Phone,
			Website
		FROM providers
		WHERE lat IS NOT NULL
		AND lon IS NOT NULL
		AND lat != ''
		AND lon != ''`)
	if err != nil {
		return nil, eris.Wrap(err, "provider: sqlite list providers")
	}
	defer rows.Close() //nolint:errcheck

	var out []Row
	for rows.Next() {
		var cols [14]sql.NullString
		ptrs := make([]any, len(cols))
		for i := range cols {
			ptrs[i] = &cols[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrap(err, "provider: sqlite scan provider")
		}
		out = append(out, Row{
			PrimaryKey:   cols[0].String,
			DisplayName:  cols[1].String,
			TIN:          cols[2].String,
			State:        cols[3].String,
			Status:       cols[4].String,
			ProviderType: cols[5].String,
			Network:      cols[6].String,
			City:         cols[7].String,
			Lat:          cols[8].String,
			Lon:          cols[9].String,
			Email:        cols[10].String,
			Fax:          cols[11].String,
			Phone:        cols[12].String,
			Website:      cols[13].String,
		})
	}
	return out, eris.Wrap(rows.Err(), "provider: sqlite iterate providers")
}

func (s *SQLiteStore) LookupRate(ctx context.Context, tin, procCode string) (*float64, error) {
	var rate sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT rate FROM ppo WHERE TRIM(TIN) = ? AND TRIM(UPPER(proc_cd)) = ?`,
		tin, procCode,
	).Scan(&rate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "provider: sqlite rate %s/%s", tin, procCode)
	}
	if !rate.Valid {
		return nil, nil
	}
	return &rate.Float64, nil
}

func (s *SQLiteStore) Counts(ctx context.Context) (int, int, error) {
	var total, withCoords int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM providers`).Scan(&total); err != nil {
		return 0, 0, eris.Wrap(err, "provider: sqlite count providers")
	}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM providers WHERE lat IS NOT NULL AND lon IS NOT NULL AND lat != '' AND lon != ''`,
	).Scan(&withCoords)
	if err != nil {
		return 0, 0, eris.Wrap(err, "provider: sqlite count located providers")
	}
	return total, withCoords, nil
}

func (s *SQLiteStore) Columns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info('providers')`)
	if err != nil {
		return nil, eris.Wrap(err, "provider: sqlite table info")
	}
	defer rows.Close() //nolint:errcheck

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "provider: sqlite scan column")
		}
		cols = append(cols, name)
	}
	return cols, eris.Wrap(rows.Err(), "provider: sqlite iterate columns")
}
