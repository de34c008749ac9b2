package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ArseniyKD/yt-history-analysis/internal/logctx"
	"github.com/ArseniyKD/yt-history-analysis/pkg/history"
	"github.com/ArseniyKD/yt-history-analysis/pkg/logging"
	"github.com/ArseniyKD/yt-history-analysis/pkg/s3fetch"
	"github.com/ArseniyKD/yt-history-analysis/pkg/store"
)

// FileOptions configures File.
type FileOptions struct {
	// Reset drops every table before loading, for a clean re-ingest.
	Reset bool
	// S3 configures the client used for s3:// sources.
	S3 s3fetch.Options
}

// ReadRecords loads the watch-history export at src, which is either a local
// path or an s3://bucket/key URI.
func ReadRecords(ctx context.Context, src string, s3opts s3fetch.Options) ([]history.Record, error) {
	if !s3fetch.IsS3URI(src) {
		return history.LoadFile(src)
	}

	client, err := s3fetch.NewClient(ctx, s3opts)
	if err != nil {
		return nil, err
	}
	body, result, err := client.Open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	log := logctx.FromContext(ctx)
	log.Info().
		Str("source", src).
		Int64("bytes", result.Bytes).
		Dur("download", result.Duration).
		Msg("fetched history export")

	records, err := history.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", src, err)
	}
	return records, nil
}

// File opens the store described by cfg, ensures the schema exists
// (recreating it first when opts.Reset is set) and ingests the export at src
// as one batch.
func File(ctx context.Context, cfg store.Config, src string, opts FileOptions) (Stats, error) {
	ctx = logctx.WithStr(ctx, "source", src)
	log := logctx.FromContext(ctx)
	start := time.Now()

	records, err := ReadRecords(ctx, src, opts.S3)
	if err != nil {
		return Stats{}, fmt.Errorf("read records: %w", err)
	}
	ctx = logctx.WithInt(ctx, "records", len(records))
	log = logctx.FromContext(ctx)
	log.Info().Msg("loaded history export")

	db, err := store.Open(cfg)
	if err != nil {
		return Stats{}, err
	}
	defer db.Close()

	if opts.Reset {
		err = store.Reset(ctx, db)
	} else {
		err = store.InitSchema(ctx, db)
	}
	if err != nil {
		return Stats{}, err
	}

	stats, err := Load(ctx, db, records)
	if err != nil {
		return Stats{}, err
	}

	logging.PhaseComplete(log, "ingest", time.Since(start)).
		Str("db_path", cfg.DBPath).
		Count("views_inserted", int64(stats.ViewsInserted)).
		Log("ingestion complete")
	return stats, nil
}
