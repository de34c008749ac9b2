package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ArseniyKD/yt-history-analysis/pkg/analytics"
	"github.com/ArseniyKD/yt-history-analysis/pkg/history"
	"github.com/ArseniyKD/yt-history-analysis/pkg/store"
	"github.com/go-chi/chi/v5"
)

// channelEntry is a ranked channel with a link to the channel page.
type channelEntry struct {
	analytics.ChannelStats
	ChannelURL string `json:"channel_url,omitempty"`
}

type yearChannels struct {
	Year     int            `json:"year"`
	Channels []channelEntry `json:"channels"`
}

type monthViews struct {
	Year  int                   `json:"year"`
	Month int                   `json:"month"`
	Views []analytics.MonthView `json:"views"`
}

// ChannelURL returns the channel page for id, or "" for the sentinel channel.
func ChannelURL(id string) string {
	if id == "" || id == history.SentinelChannelID {
		return ""
	}
	return "https://www.youtube.com/channel/" + id
}

func withURLs(in []analytics.ChannelStats) []channelEntry {
	out := make([]channelEntry, len(in))
	for i, c := range in {
		out[i] = channelEntry{ChannelStats: c, ChannelURL: ChannelURL(c.ChannelID)}
	}
	return out
}

// limitParam reads ?limit, falling back to the default when absent or
// unparsable and clamping to [1, MaxLimit].
func (s *Server) limitParam(r *http.Request) int {
	limit := s.cfg.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	return max(1, min(limit, s.cfg.MaxLimit))
}

func includeDeletedParam(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("include_deleted"), "true")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, codeUnhealthy, "database unavailable", err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"database": "ok"})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := analytics.GetOverview(r.Context(), s.db)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, codeQuery, "failed to load overview", err)
		return
	}
	respondJSON(w, r, http.StatusOK, ov)
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := analytics.TopChannels(r.Context(), s.db, s.limitParam(r), includeDeletedParam(r))
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, codeQuery, "failed to load channels", err)
		return
	}
	respondJSON(w, r, http.StatusOK, withURLs(channels))
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	years, err := analytics.PerYearSummary(r.Context(), s.db)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, codeQuery, "failed to load years", err)
		return
	}
	respondJSON(w, r, http.StatusOK, years)
}

// handleYearChannels ranks channels within a year. A year outside the
// dataset, or one that does not parse, falls back to the latest year. The
// range lookup and the ranking read the same snapshot.
func (s *Server) handleYearChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, includeDeleted := s.limitParam(r), includeDeletedParam(r)

	yc := yearChannels{Channels: []channelEntry{}}
	err := store.ReadTx(ctx, s.db, func(q store.Querier) error {
		dr, err := analytics.DatasetDateRange(ctx, q)
		if err != nil {
			return err
		}
		if dr.Empty() {
			return nil
		}

		year, err := strconv.Atoi(chi.URLParam(r, "year"))
		if err != nil || year < dr.First.Year() || year > dr.Last.Year() {
			year = dr.Last.Year()
		}

		channels, err := analytics.TopChannelsForYear(ctx, q, year, limit, includeDeleted)
		if err != nil {
			return err
		}
		yc = yearChannels{Year: year, Channels: withURLs(channels)}
		return nil
	})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, codeQuery, "failed to load channels", err)
		return
	}
	respondJSON(w, r, http.StatusOK, yc)
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	months, err := analytics.MonthlyViewCounts(r.Context(), s.db)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, codeQuery, "failed to load months", err)
		return
	}
	respondJSON(w, r, http.StatusOK, months)
}

func (s *Server) handleMonthViews(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, codeBadRequest, "year must be an integer", nil)
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		respondError(w, r, http.StatusBadRequest, codeBadRequest, "month must be between 1 and 12", nil)
		return
	}

	views, err := analytics.VideosForMonth(r.Context(), s.db, year, month)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, codeQuery, "failed to load views", err)
		return
	}
	respondJSON(w, r, http.StatusOK, monthViews{Year: year, Month: month, Views: views})
}
