// Package ingest writes parsed watch-history records into the store.
//
// A batch is one transaction: every accepted record appends exactly one view,
// channels and videos are inserted on first sight, and any parse or storage
// error rolls the whole batch back.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ArseniyKD/yt-history-analysis/internal/logctx"
	"github.com/ArseniyKD/yt-history-analysis/pkg/history"
	"github.com/ArseniyKD/yt-history-analysis/pkg/logging"
	"github.com/ArseniyKD/yt-history-analysis/pkg/metrics"
)

// Stats summarizes one ingestion batch.
type Stats struct {
	RecordsTotal     int `json:"records_total"`
	RecordsProcessed int `json:"records_processed"`
	RecordsSkipped   int `json:"records_skipped"`
	ChannelsInserted int `json:"channels_inserted"`
	VideosInserted   int `json:"videos_inserted"`
	ViewsInserted    int `json:"views_inserted"`
}

const (
	insertChannelSQL = "INSERT OR IGNORE INTO channels (channel_id, channel_name) VALUES (?, ?)"
	insertVideoSQL   = "INSERT OR IGNORE INTO videos (video_id, title, channel_id) VALUES (?, ?, ?)"
	insertViewSQL    = "INSERT INTO views (video_id, channel_id, timestamp) VALUES (?, ?, ?)"
)

// Loader owns the write transaction for a single batch.
type Loader struct {
	db *sql.DB
	tx *sql.Tx

	channelStmt *sql.Stmt
	videoStmt   *sql.Stmt
	viewStmt    *sql.Stmt

	// IDs already written in this batch.
	seenChannels map[string]struct{}
	seenVideos   map[string]struct{}

	stats Stats
}

// NewLoader returns a loader writing to db. The schema must already exist.
func NewLoader(db *sql.DB) *Loader {
	return &Loader{db: db}
}

// Begin starts a new batch transaction and prepares the insert statements.
func (l *Loader) Begin(ctx context.Context) error {
	if l.tx != nil {
		return fmt.Errorf("transaction already in progress")
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	l.tx = tx

	stmts := []struct {
		dst  **sql.Stmt
		sql  string
		name string
	}{
		{&l.channelStmt, insertChannelSQL, "channel"},
		{&l.videoStmt, insertVideoSQL, "video"},
		{&l.viewStmt, insertViewSQL, "view"},
	}
	for _, s := range stmts {
		stmt, err := tx.PrepareContext(ctx, s.sql)
		if err != nil {
			_ = l.Rollback()
			return fmt.Errorf("prepare %s insert: %w", s.name, err)
		}
		*s.dst = stmt
	}

	l.seenChannels = make(map[string]struct{})
	l.seenVideos = make(map[string]struct{})
	l.stats = Stats{}
	return nil
}

// Add parses rec and writes it into the current batch. Non-video records are
// counted as skipped and leave storage untouched.
func (l *Loader) Add(ctx context.Context, rec history.Record) (skipped bool, err error) {
	if l.tx == nil {
		return false, fmt.Errorf("no transaction in progress")
	}
	l.stats.RecordsTotal++

	fact, ok, err := history.Parse(rec)
	if err != nil {
		return false, err
	}
	if !ok {
		l.stats.RecordsSkipped++
		return true, nil
	}

	if _, seen := l.seenChannels[fact.ChannelID]; !seen {
		res, err := l.channelStmt.ExecContext(ctx, fact.ChannelID, fact.ChannelName)
		if err != nil {
			return false, fmt.Errorf("insert channel %s: %w", fact.ChannelID, err)
		}
		if inserted(res) {
			l.stats.ChannelsInserted++
		}
		l.seenChannels[fact.ChannelID] = struct{}{}
	}

	if _, seen := l.seenVideos[fact.VideoID]; !seen {
		res, err := l.videoStmt.ExecContext(ctx, fact.VideoID, fact.Title, fact.ChannelID)
		if err != nil {
			return false, fmt.Errorf("insert video %s: %w", fact.VideoID, err)
		}
		if inserted(res) {
			l.stats.VideosInserted++
		}
		l.seenVideos[fact.VideoID] = struct{}{}
	}

	if _, err := l.viewStmt.ExecContext(ctx, fact.VideoID, fact.ChannelID, fact.Timestamp); err != nil {
		return false, fmt.Errorf("insert view of %s: %w", fact.VideoID, err)
	}
	l.stats.ViewsInserted++
	l.stats.RecordsProcessed++
	return false, nil
}

// inserted reports whether an INSERT OR IGNORE actually wrote a row. The
// sentinel channel already exists, so it never counts as inserted.
func inserted(res sql.Result) bool {
	n, err := res.RowsAffected()
	return err == nil && n > 0
}

// Stats returns the counts accumulated by the current batch.
func (l *Loader) Stats() Stats {
	return l.stats
}

// Commit commits the current batch.
func (l *Loader) Commit() error {
	if l.tx == nil {
		return fmt.Errorf("no transaction in progress")
	}
	l.closeStmts()

	err := l.tx.Commit()
	l.tx = nil
	l.seenChannels, l.seenVideos = nil, nil
	if err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback discards every write of the current batch. It is a no-op when no
// batch is open.
func (l *Loader) Rollback() error {
	if l.tx == nil {
		return nil
	}
	l.closeStmts()

	err := l.tx.Rollback()
	l.tx = nil
	l.seenChannels, l.seenVideos = nil, nil
	return err
}

func (l *Loader) closeStmts() {
	// Close errors are ignored; the transaction outcome is what matters.
	for _, stmt := range []**sql.Stmt{&l.channelStmt, &l.videoStmt, &l.viewStmt} {
		if *stmt != nil {
			_ = (*stmt).Close()
			*stmt = nil
		}
	}
}

// Load ingests records as a single all-or-nothing batch. On any error the
// batch is rolled back and the error is returned wrapped with the index of
// the offending record.
func Load(ctx context.Context, db *sql.DB, records []history.Record) (Stats, error) {
	ctx = logctx.WithPhase(ctx, "ingest")
	log := logctx.FromContext(ctx)
	start := time.Now()

	l := NewLoader(db)
	if err := l.Begin(ctx); err != nil {
		return Stats{}, err
	}

	tracker := logging.NewProgressTracker("ingest", int64(len(records)), log)
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return Stats{}, abort(ctx, l, start, fmt.Errorf("record %d: %w", i, err))
		}
		skipped, err := l.Add(ctx, rec)
		if err != nil {
			return Stats{}, abort(ctx, l, start, fmt.Errorf("record %d: %w", i, err))
		}
		if skipped {
			tracker.RecordSkip()
		} else {
			tracker.RecordProcessed()
		}
	}

	stats := l.Stats()
	if err := l.Commit(); err != nil {
		metrics.RecordIngestRolledBack(time.Since(start))
		return Stats{}, err
	}

	elapsed := time.Since(start)
	metrics.RecordIngestCommitted(metrics.BatchCounts{
		Processed:        stats.RecordsProcessed,
		Skipped:          stats.RecordsSkipped,
		ChannelsInserted: stats.ChannelsInserted,
		VideosInserted:   stats.VideosInserted,
		ViewsInserted:    stats.ViewsInserted,
	}, elapsed)

	logging.BatchComplete(log, "ingest", elapsed).
		Count("records_total", int64(stats.RecordsTotal)).
		Count("records_processed", int64(stats.RecordsProcessed)).
		Count("records_skipped", int64(stats.RecordsSkipped)).
		Count("channels_inserted", int64(stats.ChannelsInserted)).
		Count("videos_inserted", int64(stats.VideosInserted)).
		Count("views_inserted", int64(stats.ViewsInserted)).
		Rate(int64(stats.RecordsTotal)).
		Log("ingestion batch committed")

	return stats, nil
}

func abort(ctx context.Context, l *Loader, start time.Time, cause error) error {
	log := logctx.FromContext(ctx)
	if err := l.Rollback(); err != nil {
		log.Error().Err(err).Msg("rollback failed")
	}
	metrics.RecordIngestRolledBack(time.Since(start))
	log.Error().Err(cause).Msg("ingestion batch rolled back")
	return cause
}
