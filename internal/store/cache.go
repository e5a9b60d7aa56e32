// Package store persists display preferences and the last good exchange
// rate table in SQLite. Records themselves are never stored.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/theirongolddev/finburn/internal/currency"
	"github.com/theirongolddev/finburn/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Preference keys.
const (
	KeyCurrency    = "fin_currency"
	KeySort        = "fin_sort"
	KeyExcludeFree = "fin_exclude_free"
)

// Store is the SQLite-backed state database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the state database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the platform-appropriate state directory.
func Dir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "finburn")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "finburn")
}

// Path returns the full path to the state database.
func Path() string {
	return filepath.Join(Dir(), "state.db")
}

// Get returns the raw value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores value under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO preferences (key, value, updated_at) VALUES (?, ?, ?)",
		key, value, s.now().UTC().Format(time.RFC3339))
	return err
}

// LoadPreferences reads the three display preferences. Missing or
// invalid values fall back to their defaults individually.
func (s *Store) LoadPreferences(ctx context.Context) (model.Preferences, error) {
	p := model.DefaultPreferences()

	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM preferences WHERE key IN (?, ?, ?)",
		KeyCurrency, KeySort, KeyExcludeFree)
	if err != nil {
		return p, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return model.DefaultPreferences(), err
		}
		switch k {
		case KeyCurrency:
			if c, ok := currency.ParseCode(v); ok {
				p.Currency = c
			}
		case KeySort:
			if key := model.SortKey(v); key.Valid() {
				p.Sort = key
			}
		case KeyExcludeFree:
			if b, err := strconv.ParseBool(v); err == nil {
				p.ExcludeFree = b
			}
		}
	}
	return p, rows.Err()
}

// SavePreferences writes all three preferences in one transaction.
func (s *Store) SavePreferences(ctx context.Context, p model.Preferences) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UTC().Format(time.RFC3339)
	values := [][2]string{
		{KeyCurrency, string(p.Currency)},
		{KeySort, string(p.Sort)},
		{KeyExcludeFree, strconv.FormatBool(p.ExcludeFree)},
	}
	for _, kv := range values {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO preferences (key, value, updated_at) VALUES (?, ?, ?)",
			kv[0], kv[1], now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveRates stores t as the last good table for the base currency.
// Fallback tables are not worth keeping and are ignored.
func (s *Store) SaveRates(ctx context.Context, t currency.Table) error {
	if t.Fallback || t.Len() == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	base := string(currency.Base)
	if _, err := tx.ExecContext(ctx, "DELETE FROM rate_snapshots WHERE base = ?", base); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO rate_snapshots (base, source, fetched_at, saved_at) VALUES (?, ?, ?, ?)",
		base, t.Source, t.FetchedAt.UTC().Format(time.RFC3339Nano), s.now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	for code, rate := range t.Rates() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO snapshot_rates (base, code, rate) VALUES (?, ?, ?)",
			base, string(code), rate); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadRates returns the last saved table, if any.
func (s *Store) LoadRates(ctx context.Context) (currency.Table, bool, error) {
	base := string(currency.Base)

	var source, fetched string
	err := s.db.QueryRowContext(ctx,
		"SELECT source, fetched_at FROM rate_snapshots WHERE base = ?", base).Scan(&source, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return currency.Table{}, false, nil
	}
	if err != nil {
		return currency.Table{}, false, err
	}
	fetchedAt, _ := time.Parse(time.RFC3339Nano, fetched)

	rows, err := s.db.QueryContext(ctx, "SELECT code, rate FROM snapshot_rates WHERE base = ?", base)
	if err != nil {
		return currency.Table{}, false, err
	}
	defer func() { _ = rows.Close() }()

	rates := make(map[currency.Code]float64)
	for rows.Next() {
		var code string
		var rate float64
		if err := rows.Scan(&code, &rate); err != nil {
			return currency.Table{}, false, err
		}
		rates[currency.Code(code)] = rate
	}
	if err := rows.Err(); err != nil {
		return currency.Table{}, false, err
	}
	return currency.NewTable(rates, source, fetchedAt), true, nil
}
