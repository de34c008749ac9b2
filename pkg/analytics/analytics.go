// Package analytics answers read-only questions about an ingested watch
// history: overview, channel rankings, rewatch counts and gap-filled
// per-year and per-month series.
//
// Every function takes the storage handle explicitly and re-reads storage
// on each call. An empty store is not an error; each function documents the
// zero result it returns instead.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ArseniyKD/yt-history-analysis/internal/logctx"
	"github.com/ArseniyKD/yt-history-analysis/pkg/logging"
	"github.com/ArseniyKD/yt-history-analysis/pkg/metrics"
	"github.com/ArseniyKD/yt-history-analysis/pkg/store"
	"github.com/goccy/go-json"
)

// Output layouts for formatted timestamps.
const (
	DayLayout   = "2006-01-02"
	MonthLayout = "2006-01"
)

// Overview is the dataset-wide summary. It always counts every view,
// including those attributed to the sentinel channel.
type Overview struct {
	// FirstView and LastView are YYYY-MM-DD, null when the store is empty.
	FirstView      OptionalDate `json:"first_view"`
	LastView       OptionalDate `json:"last_view"`
	TotalViews     int64        `json:"total_views"`
	UniqueVideos   int64        `json:"unique_videos"`
	UniqueChannels int64        `json:"unique_channels"`
	TotalRewatches int64        `json:"total_rewatches"`
}

// ChannelStats is one row of a channel ranking.
type ChannelStats struct {
	ChannelID    string `json:"channel_id"`
	ChannelName  string `json:"channel_name"`
	TotalViews   int64  `json:"total_views"`
	UniqueVideos int64  `json:"unique_videos"`
	Rewatches    int64  `json:"rewatches"`
	// FirstView and LastView are YYYY-MM.
	FirstView string `json:"first_view"`
	LastView  string `json:"last_view"`
}

// YearSummary aggregates one calendar year. Years without views carry zero
// counts and null first/last view.
type YearSummary struct {
	Year           int          `json:"year"`
	TotalViews     int64        `json:"total_views"`
	UniqueVideos   int64        `json:"unique_videos"`
	UniqueChannels int64        `json:"unique_channels"`
	Rewatches      int64        `json:"rewatches"`
	FirstView      OptionalDate `json:"first_view"`
	LastView       OptionalDate `json:"last_view"`
}

// OptionalDate is a formatted date that encodes as JSON null when empty.
type OptionalDate string

// MarshalJSON implements json.Marshaler.
func (d OptionalDate) MarshalJSON() ([]byte, error) {
	if d == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

// UnmarshalJSON implements json.Unmarshaler. null decodes to "".
func (d *OptionalDate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*d = OptionalDate(s)
	return nil
}

// MonthCount is the number of views in one YYYY-MM month.
type MonthCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// MonthView is a single view listed by VideosForMonth.
type MonthView struct {
	ViewID      int64  `json:"view_id"`
	Timestamp   string `json:"timestamp"`
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
}

// DateRange is the full-precision span of the dataset.
type DateRange struct {
	First time.Time
	Last  time.Time
}

// Empty reports whether the range came from an empty store.
func (r DateRange) Empty() bool {
	return r.First.IsZero() && r.Last.IsZero()
}

// observe records query duration and failures. Call it deferred with a
// pointer to the named error result.
func observe(ctx context.Context, query string, start time.Time, errp *error) {
	err := *errp
	metrics.ObserveQuery(query, start, err)

	log := logctx.FromContext(ctx)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("analytics query failed")
		return
	}
	logging.NewCompletionEvent(log, "query_completed", "analytics", time.Since(start)).
		Str("query", query).
		LogDebug("analytics query")
}

// queryAndScan runs query and calls scan once per row.
func queryAndScan(ctx context.Context, q store.Querier, query string, args []any, scan func(*sql.Rows) error) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows iteration: %w", err)
	}
	return nil
}

// parseTimestamp parses a stored view timestamp.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// formatTimestamp reformats a nullable stored timestamp with layout. NULL
// yields an empty string.
func formatTimestamp(s sql.NullString, layout string) (string, error) {
	if !s.Valid || s.String == "" {
		return "", nil
	}
	t, err := parseTimestamp(s.String)
	if err != nil {
		return "", err
	}
	return t.Format(layout), nil
}

func optionalDate(s sql.NullString, layout string) (OptionalDate, error) {
	d, err := formatTimestamp(s, layout)
	return OptionalDate(d), err
}

// yearKey is the strftime('%Y', ...) representation of year.
func yearKey(year int) string {
	return fmt.Sprintf("%04d", year)
}
