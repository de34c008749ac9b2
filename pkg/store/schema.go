package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ArseniyKD/yt-history-analysis/pkg/history"
	"github.com/ArseniyKD/yt-history-analysis/pkg/logging"
)

// Table names.
const (
	ChannelsTable = "channels"
	VideosTable   = "videos"
	ViewsTable    = "views"
)

// schemaStatements create tables and indexes. views.channel_id duplicates
// the video's channel so per-channel queries avoid a join.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS channels (
		channel_id TEXT PRIMARY KEY,
		channel_name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS videos (
		video_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		FOREIGN KEY (channel_id) REFERENCES channels(channel_id)
	)`,
	`CREATE TABLE IF NOT EXISTS views (
		view_id INTEGER PRIMARY KEY AUTOINCREMENT,
		video_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		FOREIGN KEY (video_id) REFERENCES videos(video_id),
		FOREIGN KEY (channel_id) REFERENCES channels(channel_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_views_channel ON views(channel_id)`,
	`CREATE INDEX IF NOT EXISTS idx_views_channel_timestamp ON views(channel_id, timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_views_timestamp ON views(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_views_year ON views(strftime('%Y', timestamp))`,
}

// InitSchema creates the channels, videos and views tables with their
// indexes and seeds the sentinel channel. It is safe to call repeatedly.
func InitSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO channels (channel_id, channel_name) VALUES (?, ?)",
		history.SentinelChannelID, history.SentinelChannelName,
	); err != nil {
		return fmt.Errorf("insert sentinel channel: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}

	log := logging.WithPhase("schema")
	log.Debug().Msg("schema initialized")
	return nil
}

// DropAllTables removes every table (and with them their indexes).
// Callers must run InitSchema again before ingesting.
func DropAllTables(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin drop transaction: %w", err)
	}
	defer tx.Rollback()

	// Children first so foreign keys never dangle.
	for _, table := range []string{ViewsTable, VideosTable, ChannelsTable} {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit drop: %w", err)
	}

	log := logging.WithPhase("schema")
	log.Info().Msg("dropped all tables")
	return nil
}

// Reset drops and recreates the schema, leaving an empty store with only the
// sentinel channel.
func Reset(ctx context.Context, db *sql.DB) error {
	if err := DropAllTables(ctx, db); err != nil {
		return err
	}
	return InitSchema(ctx, db)
}

// TableExists reports whether a table with the given name exists.
func TableExists(ctx context.Context, q Querier, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return n > 0, nil
}

// IndexNames returns the names of the explicitly created indexes on a table.
func IndexNames(ctx context.Context, q Querier, table string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND sql IS NOT NULL ORDER BY name",
		table,
	)
	if err != nil {
		return nil, fmt.Errorf("list indexes on %s: %w", table, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan index name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// RowCount returns the number of rows in table.
func RowCount(ctx context.Context, q Querier, table string) (int64, error) {
	switch table {
	case ChannelsTable, VideosTable, ViewsTable:
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int64
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// TableStatus describes one table of the store.
type TableStatus struct {
	Name    string   `json:"name"`
	Exists  bool     `json:"exists"`
	Rows    int64    `json:"rows"`
	Indexes []string `json:"indexes"`
}

// Inspect reports, from one snapshot, whether each store table exists along
// with its row count and indexes. Missing tables are reported, not treated
// as errors.
func Inspect(ctx context.Context, q Querier) ([]TableStatus, error) {
	var out []TableStatus
	err := ReadTx(ctx, q, func(q Querier) error {
		out = make([]TableStatus, 0, 3)
		for _, table := range []string{ChannelsTable, VideosTable, ViewsTable} {
			ts := TableStatus{Name: table, Indexes: []string{}}
			ok, err := TableExists(ctx, q, table)
			if err != nil {
				return err
			}
			if ok {
				ts.Exists = true
				if ts.Rows, err = RowCount(ctx, q, table); err != nil {
					return err
				}
				names, err := IndexNames(ctx, q, table)
				if err != nil {
					return err
				}
				ts.Indexes = append(ts.Indexes, names...)
			}
			out = append(out, ts)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
