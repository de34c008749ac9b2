package server

import (
	"net/http"
	"time"

	"github.com/ArseniyKD/yt-history-analysis/internal/config"
	"github.com/ArseniyKD/yt-history-analysis/internal/logctx"
	"github.com/ArseniyKD/yt-history-analysis/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// requestLogger attaches a request-scoped logger to the context and logs
// each completed request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logctx.WithStr(r.Context(), "request_id", chimiddleware.GetReqID(r.Context()))
		r = r.WithContext(ctx)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		log := logctx.FromContext(ctx)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// recordMetrics counts requests by route pattern so path parameters do not
// explode label cardinality.
func recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordHTTPRequest(r.Method, route, status, time.Since(start))
	})
}

// corsMiddleware allows the configured browser origins. With no origins
// configured it is a pass-through.
func corsMiddleware(cfg config.ServerConfig) func(http.Handler) http.Handler {
	if len(cfg.CORSOrigins) == 0 {
		return passThrough
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         86400,
	})
}

// rateLimit limits requests per client IP. A zero request budget disables it.
func rateLimit(cfg config.ServerConfig) func(http.Handler) http.Handler {
	if cfg.RateLimitRequests <= 0 {
		return passThrough
	}
	return httprate.Limit(
		cfg.RateLimitRequests,
		cfg.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
		}),
	)
}

func passThrough(next http.Handler) http.Handler {
	return next
}
