package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/ArseniyKD/yt-history-analysis/pkg/store"
)

// PerYearSummary returns one summary per calendar year from the dataset's
// first year to its last, inclusive, newest first, read from one snapshot.
// Years without views are present with zero counts. An empty store yields
// an empty list.
func PerYearSummary(ctx context.Context, q store.Querier) (out []YearSummary, err error) {
	defer observe(ctx, "per_year_summary", time.Now(), &err)

	err = store.ReadTx(ctx, q, func(q store.Querier) error {
		var err error
		out, err = perYearSummary(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func perYearSummary(ctx context.Context, q store.Querier) ([]YearSummary, error) {
	r, err := dateRange(ctx, q)
	if err != nil {
		return nil, err
	}
	if r.Empty() {
		return []YearSummary{}, nil
	}

	byYear := make(map[int]*YearSummary)
	err = queryAndScan(ctx, q, `
		SELECT
			strftime('%Y', timestamp) AS year,
			COUNT(*),
			COUNT(DISTINCT video_id),
			COUNT(DISTINCT channel_id),
			MIN(timestamp),
			MAX(timestamp)
		FROM views
		GROUP BY year`, nil,
		func(rows *sql.Rows) error {
			var ys YearSummary
			var year string
			var first, last sql.NullString
			if err := rows.Scan(&year, &ys.TotalViews, &ys.UniqueVideos, &ys.UniqueChannels, &first, &last); err != nil {
				return err
			}
			var err error
			if ys.Year, err = strconv.Atoi(year); err != nil {
				return fmt.Errorf("parse year %q: %w", year, err)
			}
			if ys.FirstView, err = optionalDate(first, DayLayout); err != nil {
				return err
			}
			if ys.LastView, err = optionalDate(last, DayLayout); err != nil {
				return err
			}
			byYear[ys.Year] = &ys
			return nil
		})
	if err != nil {
		return nil, err
	}

	err = queryAndScan(ctx, q, `
		SELECT year, COUNT(*)
		FROM (
			SELECT strftime('%Y', timestamp) AS year, video_id
			FROM views
			GROUP BY year, video_id
			HAVING COUNT(*) > 1
		)
		GROUP BY year`, nil,
		func(rows *sql.Rows) error {
			var year string
			var n int64
			if err := rows.Scan(&year, &n); err != nil {
				return err
			}
			y, err := strconv.Atoi(year)
			if err != nil {
				return fmt.Errorf("parse year %q: %w", year, err)
			}
			if ys, ok := byYear[y]; ok {
				ys.Rewatches = n
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	out := make([]YearSummary, 0, r.Last.Year()-r.First.Year()+1)
	for y := r.Last.Year(); y >= r.First.Year(); y-- {
		if ys, ok := byYear[y]; ok {
			out = append(out, *ys)
			continue
		}
		out = append(out, YearSummary{Year: y})
	}
	return out, nil
}

// MonthlyViewCounts returns the number of views in every month from the
// dataset's first month to its last, newest first, read from one snapshot.
// Months without views are present with a zero count. An empty store
// yields an empty list.
func MonthlyViewCounts(ctx context.Context, q store.Querier) (out []MonthCount, err error) {
	defer observe(ctx, "monthly_view_counts", time.Now(), &err)

	err = store.ReadTx(ctx, q, func(q store.Querier) error {
		var err error
		out, err = monthlyViewCounts(ctx, q)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func monthlyViewCounts(ctx context.Context, q store.Querier) ([]MonthCount, error) {
	r, err := dateRange(ctx, q)
	if err != nil {
		return nil, err
	}
	if r.Empty() {
		return []MonthCount{}, nil
	}

	counts := make(map[string]int64)
	err = queryAndScan(ctx, q, `
		SELECT strftime('%Y-%m', timestamp) AS month, COUNT(*)
		FROM views
		GROUP BY month`, nil,
		func(rows *sql.Rows) error {
			var month string
			var n int64
			if err := rows.Scan(&month, &n); err != nil {
				return err
			}
			counts[month] = n
			return nil
		})
	if err != nil {
		return nil, err
	}

	months := GenerateMonthRange(r.First, r.Last)
	out := make([]MonthCount, 0, len(months))
	for _, m := range months {
		out = append(out, MonthCount{Month: m, Count: counts[m]})
	}
	return out, nil
}

// GenerateMonthRange returns every YYYY-MM month from start's month to
// end's month inclusive, newest first. Only the year and month of each
// argument are used. If start is after end the result is empty.
func GenerateMonthRange(start, end time.Time) []string {
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	cur := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)

	months := []string{}
	for !cur.Before(first) {
		months = append(months, cur.Format(MonthLayout))
		cur = cur.AddDate(0, -1, 0)
	}
	return months
}

// VideosForMonth lists every view in the given calendar month, oldest first.
// A month without views yields an empty list.
func VideosForMonth(ctx context.Context, q store.Querier, year, month int) (out []MonthView, err error) {
	defer observe(ctx, "videos_for_month", time.Now(), &err)

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	out = []MonthView{}
	err = queryAndScan(ctx, q, `
		SELECT v.view_id, v.timestamp, v.video_id, vid.title, v.channel_id, c.channel_name
		FROM views v
		JOIN videos vid ON v.video_id = vid.video_id
		JOIN channels c ON v.channel_id = c.channel_id
		WHERE v.timestamp >= ? AND v.timestamp < ?
		ORDER BY v.timestamp ASC, v.view_id ASC`,
		[]any{from.Format(MonthLayout), to.Format(MonthLayout)},
		func(rows *sql.Rows) error {
			var mv MonthView
			if err := rows.Scan(&mv.ViewID, &mv.Timestamp, &mv.VideoID, &mv.Title, &mv.ChannelID, &mv.ChannelName); err != nil {
				return err
			}
			out = append(out, mv)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}
