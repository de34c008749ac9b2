// Package server exposes the analytics queries over a JSON HTTP API.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ArseniyKD/yt-history-analysis/internal/config"
	"github.com/ArseniyKD/yt-history-analysis/pkg/logging"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Server serves the watch-history API from a single store.
type Server struct {
	db     *sql.DB
	cfg    config.ServerConfig
	router chi.Router
}

// New builds a server reading from db. The schema must already exist.
func New(db *sql.DB, cfg config.ServerConfig) *Server {
	s := &Server{db: db, cfg: cfg}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(recordMetrics)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(corsMiddleware(s.cfg))
		r.Use(rateLimit(s.cfg))

		r.Get("/overview", s.handleOverview)
		r.Get("/channels", s.handleChannels)
		r.Get("/years", s.handleYears)
		r.Get("/years/{year}/channels", s.handleYearChannels)
		r.Get("/months", s.handleMonths)
		r.Get("/months/{year}/{month}", s.handleMonthViews)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, codeNotFound, "no such endpoint", nil)
	})
	return r
}

// Run listens on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	log := logging.WithPhase("serve")

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		start := time.Now()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		logging.PhaseComplete(log, "serve", time.Since(start)).Log("server stopped")
		return nil
	})
	return g.Wait()
}
