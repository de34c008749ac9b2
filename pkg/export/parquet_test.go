package export

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/ArseniyKD/yt-history-analysis/pkg/history"
	"github.com/ArseniyKD/yt-history-analysis/pkg/ingest"
	"github.com/ArseniyKD/yt-history-analysis/pkg/s3fetch"
	"github.com/ArseniyKD/yt-history-analysis/pkg/store"
	"github.com/parquet-go/parquet-go"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.Open(store.DefaultConfig(filepath.Join(t.TempDir(), "test.db")))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := store.InitSchema(context.Background(), db); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}
	return db
}

func seed(t *testing.T, db *sql.DB) {
	t.Helper()
	records := []history.Record{
		{
			Title:    "Watched First",
			TitleURL: "https://www.youtube.com/watch?v=a1",
			Time:     "2024-01-15T10:30:00.000Z",
			Subtitles: []history.Subtitle{{
				Name: "Chan",
				URL:  "https://www.youtube.com/channel/UC1",
			}},
		},
		{
			Title:    "Watched https://www.youtube.com/watch?v=gone",
			TitleURL: "https://www.youtube.com/watch?v=gone",
			Time:     "2024-01-16T10:30:00.000Z",
		},
		{
			Title:    "Watched First",
			TitleURL: "https://www.youtube.com/watch?v=a1",
			Time:     "2024-01-17T10:30:00.000Z",
			Subtitles: []history.Subtitle{{
				Name: "Chan",
				URL:  "https://www.youtube.com/channel/UC1",
			}},
		},
	}
	if _, err := ingest.Load(context.Background(), db, records); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
}

func TestWriteViews(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)

	var buf bytes.Buffer
	n, err := WriteViews(context.Background(), db, &buf)
	if err != nil {
		t.Fatalf("WriteViews failed: %v", err)
	}
	if n != 3 {
		t.Errorf("WriteViews wrote %d rows, want 3", n)
	}

	rows, err := parquet.Read[ViewRow](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("parquet.Read failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("read %d rows, want 3", len(rows))
	}

	want := []ViewRow{
		{ViewID: 1, VideoID: "a1", Title: "First", ChannelID: "UC1", ChannelName: "Chan", Timestamp: "2024-01-15T10:30:00.000Z"},
		{ViewID: 2, VideoID: "gone", Title: "https://www.youtube.com/watch?v=gone", ChannelID: history.SentinelChannelID, ChannelName: history.SentinelChannelName, Timestamp: "2024-01-16T10:30:00.000Z"},
		{ViewID: 3, VideoID: "a1", Title: "First", ChannelID: "UC1", ChannelName: "Chan", Timestamp: "2024-01-17T10:30:00.000Z"},
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, rows[i], want[i])
		}
	}
}

func TestWriteViewsEmpty(t *testing.T) {
	db := openTestDB(t)

	var buf bytes.Buffer
	n, err := WriteViews(context.Background(), db, &buf)
	if err != nil {
		t.Fatalf("WriteViews failed: %v", err)
	}
	if n != 0 {
		t.Errorf("WriteViews wrote %d rows, want 0", n)
	}

	rows, err := parquet.Read[ViewRow](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("empty export is not a valid parquet file: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("read %d rows, want 0", len(rows))
	}
}

func TestToFile(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)
	path := filepath.Join(t.TempDir(), "views.parquet")

	n, err := ToFile(context.Background(), db, path, s3fetch.Options{})
	if err != nil {
		t.Fatalf("ToFile failed: %v", err)
	}
	if n != 3 {
		t.Errorf("ToFile wrote %d rows, want 3", n)
	}

	rows, err := parquet.ReadFile[ViewRow](path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("read %d rows, want 3", len(rows))
	}
}

func TestToFileBadDestination(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := ToFile(ctx, db, "s3://bucket-only/", s3fetch.Options{}); err == nil {
		t.Error("expected error for S3 URI without key")
	}

	missingDir := filepath.Join(t.TempDir(), "missing", "views.parquet")
	if _, err := ToFile(ctx, db, missingDir, s3fetch.Options{}); err == nil {
		t.Error("expected error for missing directory")
	}
	if _, err := os.Stat(missingDir); !os.IsNotExist(err) {
		t.Error("no file should be left behind")
	}
}
