// Package export writes the view log to Parquet for use in external tools.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ArseniyKD/yt-history-analysis/internal/logctx"
	"github.com/ArseniyKD/yt-history-analysis/pkg/fileutil"
	"github.com/ArseniyKD/yt-history-analysis/pkg/logging"
	"github.com/ArseniyKD/yt-history-analysis/pkg/s3fetch"
	"github.com/ArseniyKD/yt-history-analysis/pkg/store"
	"github.com/parquet-go/parquet-go"
)

// BatchSize is the number of rows buffered before each Parquet write.
const BatchSize = 4096

// ViewRow is one exported view, denormalized with its video and channel.
type ViewRow struct {
	ViewID      int64  `parquet:"view_id"`
	VideoID     string `parquet:"video_id,dict"`
	Title       string `parquet:"title,dict"`
	ChannelID   string `parquet:"channel_id,dict"`
	ChannelName string `parquet:"channel_name,dict"`
	Timestamp   string `parquet:"timestamp"`
}

const viewsSQL = `
	SELECT v.view_id, v.video_id, vid.title, v.channel_id, c.channel_name, v.timestamp
	FROM views v
	JOIN videos vid ON v.video_id = vid.video_id
	JOIN channels c ON v.channel_id = c.channel_id
	ORDER BY v.view_id`

// WriteViews streams every view, ordered by view_id, into a Zstd-compressed
// Parquet file written to w. It returns the number of rows written. An empty
// store produces a valid file with no rows.
func WriteViews(ctx context.Context, q store.Querier, w io.Writer) (int64, error) {
	rows, err := q.QueryContext(ctx, viewsSQL)
	if err != nil {
		return 0, fmt.Errorf("query views: %w", err)
	}
	defer rows.Close()

	pw := parquet.NewGenericWriter[ViewRow](w, parquet.Compression(&parquet.Zstd))
	batch := make([]ViewRow, 0, BatchSize)
	var total int64

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := pw.Write(batch); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
		total += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for rows.Next() {
		var r ViewRow
		if err := rows.Scan(&r.ViewID, &r.VideoID, &r.Title, &r.ChannelID, &r.ChannelName, &r.Timestamp); err != nil {
			return 0, fmt.Errorf("scan view: %w", err)
		}
		batch = append(batch, r)
		if len(batch) == BatchSize {
			if err := flush(); err != nil {
				return 0, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("rows iteration: %w", err)
	}
	if err := flush(); err != nil {
		return 0, err
	}
	if err := pw.Close(); err != nil {
		return 0, fmt.Errorf("close parquet writer: %w", err)
	}
	return total, nil
}

// ToFile exports the view log to dest, which is either a local path or an
// s3://bucket/key URI. S3 destinations are staged in a temp file and uploaded.
func ToFile(ctx context.Context, db *sql.DB, dest string, s3opts s3fetch.Options) (int64, error) {
	log := logctx.FromContext(logctx.WithPhase(ctx, "export"))
	start := time.Now()

	var n int64
	var err error
	if s3fetch.IsS3URI(dest) {
		n, err = toS3(ctx, db, dest, s3opts)
	} else {
		n, err = toLocal(ctx, db, dest)
	}
	if err != nil {
		return 0, err
	}

	logging.FileCreated(log, "export", time.Since(start)).
		Str("path", dest).
		Count("rows", n).
		Rate(n).
		Log("exported views")
	return n, nil
}

func toLocal(ctx context.Context, db *sql.DB, path string) (int64, error) {
	var n int64
	err := fileutil.WriteTmpThenMove(path, func(w io.Writer) error {
		var err error
		n, err = WriteViews(ctx, db, w)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	return n, nil
}

func toS3(ctx context.Context, db *sql.DB, uri string, s3opts s3fetch.Options) (int64, error) {
	if _, _, err := s3fetch.ParseObjectURI(uri); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(s3opts.Transfer.TempDir, "ythist-export-*.parquet")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	n, err := WriteViews(ctx, db, tmp)
	if err != nil {
		return 0, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewind export file: %w", err)
	}

	client, err := s3fetch.NewClient(ctx, s3opts)
	if err != nil {
		return 0, err
	}
	if _, err := client.Put(ctx, uri, tmp); err != nil {
		return 0, err
	}
	return n, nil
}
