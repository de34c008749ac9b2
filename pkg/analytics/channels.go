package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ArseniyKD/yt-history-analysis/pkg/history"
	"github.com/ArseniyKD/yt-history-analysis/pkg/store"
)

// topChannelsSQL ranks channels by views. The rewatched CTE counts, per
// channel, the videos with more than one view in the same scope as the
// outer query. %[1]s is the scope condition applied to both.
const topChannelsSQL = `
	WITH rewatched AS (
		SELECT channel_id, COUNT(*) AS rewatches
		FROM (
			SELECT channel_id, video_id
			FROM views
			WHERE %[1]s
			GROUP BY channel_id, video_id
			HAVING COUNT(*) > 1
		)
		GROUP BY channel_id
	)
	SELECT
		c.channel_id,
		c.channel_name,
		COUNT(*) AS total_views,
		COUNT(DISTINCT v.video_id) AS unique_videos,
		COALESCE(r.rewatches, 0) AS rewatches,
		MIN(v.timestamp) AS first_view,
		MAX(v.timestamp) AS last_view
	FROM views v
	JOIN channels c ON v.channel_id = c.channel_id
	LEFT JOIN rewatched r ON r.channel_id = c.channel_id
	WHERE (c.channel_id != ? OR ? = 1) AND %[2]s
	GROUP BY c.channel_id, c.channel_name, r.rewatches
	ORDER BY total_views DESC, c.channel_id
	LIMIT ?`

// TopChannels ranks channels by total views across the whole dataset. The
// sentinel channel is only ranked when includeDeleted is set. limit is
// trusted to be already bounded by the caller.
func TopChannels(ctx context.Context, q store.Querier, limit int, includeDeleted bool) (out []ChannelStats, err error) {
	defer observe(ctx, "top_channels", time.Now(), &err)
	return topChannels(ctx, q, 0, limit, includeDeleted)
}

// TopChannelsForYear is TopChannels restricted to views in one calendar
// year, with rewatches also counted within that year.
func TopChannelsForYear(ctx context.Context, q store.Querier, year, limit int, includeDeleted bool) (out []ChannelStats, err error) {
	defer observe(ctx, "top_channels_for_year", time.Now(), &err)
	return topChannels(ctx, q, year, limit, includeDeleted)
}

func topChannels(ctx context.Context, q store.Querier, year, limit int, includeDeleted bool) ([]ChannelStats, error) {
	scope, outerScope := "1 = 1", "1 = 1"
	var scopeArgs []any
	if year != 0 {
		scope = "strftime('%Y', timestamp) = ?"
		outerScope = "strftime('%Y', v.timestamp) = ?"
		scopeArgs = []any{yearKey(year)}
	}

	query := fmt.Sprintf(topChannelsSQL, scope, outerScope)

	args := make([]any, 0, 5)
	args = append(args, scopeArgs...)
	args = append(args, history.SentinelChannelID, boolArg(includeDeleted))
	args = append(args, scopeArgs...)
	args = append(args, limit)

	out := []ChannelStats{}
	err := queryAndScan(ctx, q, query, args, func(rows *sql.Rows) error {
		var cs ChannelStats
		var first, last sql.NullString
		if err := rows.Scan(&cs.ChannelID, &cs.ChannelName, &cs.TotalViews, &cs.UniqueVideos,
			&cs.Rewatches, &first, &last); err != nil {
			return err
		}
		var err error
		if cs.FirstView, err = formatTimestamp(first, MonthLayout); err != nil {
			return err
		}
		if cs.LastView, err = formatTimestamp(last, MonthLayout); err != nil {
			return err
		}
		out = append(out, cs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func boolArg(b bool) int {
	if b {
		return 1
	}
	return 0
}
