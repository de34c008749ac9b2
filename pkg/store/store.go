// Package store opens the SQLite database that holds the normalized watch
// history and manages its schema.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ArseniyKD/yt-history-analysis/pkg/logging"
	_ "github.com/mattn/go-sqlite3"
)

// ErrInvalidConfig is returned by Open when the configuration fails validation.
var ErrInvalidConfig = errors.New("invalid store config")

// Config holds configuration for the SQLite store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string
	// Synchronous sets the SQLite synchronous pragma.
	// "NORMAL" is the default; "FULL" trades speed for durability.
	Synchronous string
	// BusyTimeoutMs is how long a connection waits on a locked database.
	BusyTimeoutMs int
	// CacheSizeKB is the page cache size in KB.
	CacheSizeKB int
}

// DefaultConfig returns a default configuration for the given database path.
func DefaultConfig(dbPath string) Config {
	return Config{
		DBPath:        dbPath,
		Synchronous:   "NORMAL",
		BusyTimeoutMs: 5000,
		CacheSizeKB:   65536, // 64MB
	}
}

// Validate checks configuration values and returns an error for invalid settings.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("%w: DBPath is required", ErrInvalidConfig)
	}
	switch c.Synchronous {
	case "", "OFF", "NORMAL", "FULL":
	default:
		return fmt.Errorf("%w: invalid Synchronous value %q: must be OFF, NORMAL, or FULL", ErrInvalidConfig, c.Synchronous)
	}
	if c.BusyTimeoutMs < 0 {
		return fmt.Errorf("%w: BusyTimeoutMs must be non-negative, got %d", ErrInvalidConfig, c.BusyTimeoutMs)
	}
	if c.CacheSizeKB < 0 {
		return fmt.Errorf("%w: CacheSizeKB must be non-negative, got %d", ErrInvalidConfig, c.CacheSizeKB)
	}
	return nil
}

// dsn builds the go-sqlite3 connection string. Settings that must hold on
// every pooled connection are passed as DSN parameters rather than PRAGMAs.
func (c *Config) dsn() string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_foreign_keys", "on")
	if c.Synchronous != "" {
		params.Set("_synchronous", c.Synchronous)
	}
	if c.BusyTimeoutMs > 0 {
		params.Set("_busy_timeout", strconv.Itoa(c.BusyTimeoutMs))
	}
	return c.DBPath + "?" + params.Encode()
}

// Querier is the read side of a storage handle. Both *sql.DB and *sql.Tx
// satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Execer is the write side of a storage handle.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ReadTx runs fn against a read-only transaction so that every statement fn
// issues sees the same committed snapshot. A q that cannot begin a
// transaction (for example one that already is a *sql.Tx) is passed through
// unchanged.
func ReadTx(ctx context.Context, q Querier, fn func(Querier) error) error {
	b, ok := q.(interface {
		BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	})
	if !ok {
		return fn(q)
	}

	tx, err := b.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("end read transaction: %w", err)
	}
	return nil
}

// Open opens (creating if needed) the SQLite database described by cfg.
// The schema is not created; call InitSchema.
func Open(cfg Config) (*sql.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logging.WithPhase("store_open")

	db, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	pragmas := []string{
		"PRAGMA temp_store=MEMORY",
	}
	if cfg.CacheSizeKB > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA cache_size=-%d", cfg.CacheSizeKB))
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute pragma %q: %w", pragma, err)
		}
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Str("synchronous", cfg.Synchronous).
		Msg("opened SQLite store")

	return db, nil
}
