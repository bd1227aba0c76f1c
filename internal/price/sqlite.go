package price

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS prices (
	key        TEXT PRIMARY KEY,
	price      TEXT NOT NULL,
	fetched_at TEXT NOT NULL
)`

// SQLiteStore is a Store backed by a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the price cache database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening price cache %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating price cache schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (decimal.Decimal, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT price FROM prices WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("reading cached price %s: %w", key, err)
	}
	p, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("parsing cached price %q: %w", raw, err)
	}
	return p, true, nil
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, key string, p decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO prices (key, price, fetched_at) VALUES (?, ?, ?)",
		key, p.String(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing cached price %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
