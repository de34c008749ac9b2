package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ArseniyKD/yt-history-analysis/pkg/store"
)

// rewatchFilter scopes a rewatch count. Zero values mean "no filter".
type rewatchFilter struct {
	channelID string
	year      int
}

// rewatchCount counts distinct videos with two or more views in scope.
// Extra views are never summed: a video watched three times counts once.
func rewatchCount(ctx context.Context, q store.Querier, f rewatchFilter) (int64, error) {
	conds := []string{"1 = 1"}
	var args []any
	if f.channelID != "" {
		conds = append(conds, "channel_id = ?")
		args = append(args, f.channelID)
	}
	if f.year != 0 {
		conds = append(conds, "strftime('%Y', timestamp) = ?")
		args = append(args, yearKey(f.year))
	}

	query := `
		SELECT COUNT(*) FROM (
			SELECT video_id
			FROM views
			WHERE ` + strings.Join(conds, " AND ") + `
			GROUP BY video_id
			HAVING COUNT(*) > 1
		)`

	var n int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rewatches: %w", err)
	}
	return n, nil
}

// TotalRewatches returns the number of distinct videos watched more than
// once across the whole dataset.
func TotalRewatches(ctx context.Context, q store.Querier) (n int64, err error) {
	defer observe(ctx, "total_rewatches", time.Now(), &err)
	return rewatchCount(ctx, q, rewatchFilter{})
}

// ChannelRewatches returns the number of the channel's videos watched more
// than once. A year of 0 counts across all years; otherwise only views in
// that calendar year are considered.
func ChannelRewatches(ctx context.Context, q store.Querier, channelID string, year int) (n int64, err error) {
	defer observe(ctx, "channel_rewatches", time.Now(), &err)
	return rewatchCount(ctx, q, rewatchFilter{channelID: channelID, year: year})
}

// YearRewatches returns the number of videos watched more than once within
// the calendar year.
func YearRewatches(ctx context.Context, q store.Querier, year int) (n int64, err error) {
	defer observe(ctx, "year_rewatches", time.Now(), &err)
	return rewatchCount(ctx, q, rewatchFilter{year: year})
}
