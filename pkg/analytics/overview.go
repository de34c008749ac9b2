package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ArseniyKD/yt-history-analysis/pkg/store"
)

// GetOverview returns dataset-wide totals, read from one snapshot. An empty
// store yields zero counts and empty first/last view.
func GetOverview(ctx context.Context, q store.Querier) (ov Overview, err error) {
	defer observe(ctx, "overview", time.Now(), &err)

	err = store.ReadTx(ctx, q, func(q store.Querier) error {
		var err error
		ov, err = overview(ctx, q)
		return err
	})
	if err != nil {
		return Overview{}, err
	}
	return ov, nil
}

func overview(ctx context.Context, q store.Querier) (Overview, error) {
	var ov Overview
	var first, last sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT
			MIN(timestamp),
			MAX(timestamp),
			COUNT(*),
			COUNT(DISTINCT video_id),
			COUNT(DISTINCT channel_id)
		FROM views`,
	).Scan(&first, &last, &ov.TotalViews, &ov.UniqueVideos, &ov.UniqueChannels)
	if err != nil {
		return Overview{}, fmt.Errorf("query overview: %w", err)
	}
	if ov.TotalViews == 0 {
		return Overview{}, nil
	}

	if ov.FirstView, err = optionalDate(first, DayLayout); err != nil {
		return Overview{}, err
	}
	if ov.LastView, err = optionalDate(last, DayLayout); err != nil {
		return Overview{}, err
	}
	if ov.TotalRewatches, err = rewatchCount(ctx, q, rewatchFilter{}); err != nil {
		return Overview{}, err
	}
	return ov, nil
}

// DatasetDateRange returns the earliest and latest view timestamps at full
// precision. An empty store yields a zero DateRange.
func DatasetDateRange(ctx context.Context, q store.Querier) (r DateRange, err error) {
	defer observe(ctx, "dataset_date_range", time.Now(), &err)
	return dateRange(ctx, q)
}

func dateRange(ctx context.Context, q store.Querier) (DateRange, error) {
	var first, last sql.NullString
	if err := q.QueryRowContext(ctx, "SELECT MIN(timestamp), MAX(timestamp) FROM views").Scan(&first, &last); err != nil {
		return DateRange{}, fmt.Errorf("query date range: %w", err)
	}
	if !first.Valid || !last.Valid {
		return DateRange{}, nil
	}

	var r DateRange
	var err error
	if r.First, err = parseTimestamp(first.String); err != nil {
		return DateRange{}, err
	}
	if r.Last, err = parseTimestamp(last.String); err != nil {
		return DateRange{}, err
	}
	return r, nil
}
