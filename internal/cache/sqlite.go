package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLite keeps entries in a single SQLite table.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
}

const sqliteCacheMigration = `
CREATE TABLE IF NOT EXISTS kv_cache (
	key       TEXT PRIMARY KEY,
	value     BLOB NOT NULL,
	cached_at DATETIME NOT NULL
);
`

// NewSQLite opens the database at dsn and creates the cache table.
func NewSQLite(ctx context.Context, dsn string, ttl time.Duration) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cache: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "cache: sqlite exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteCacheMigration); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "cache: sqlite migrate")
	}
	return &SQLite{db: db, ttl: ttl}, nil
}

// Get implements Cache.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var cachedAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT value, cached_at FROM kv_cache WHERE key = ?`, key,
	).Scan(&value, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "cache: sqlite get %s", key)
	}
	if expired(cachedAt, s.ttl) {
		return nil, false, nil
	}
	return value, true, nil
}

// Put implements Cache.
func (s *SQLite) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_cache (key, value, cached_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, cached_at = excluded.cached_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "cache: sqlite put %s", key)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
