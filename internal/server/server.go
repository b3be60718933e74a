// Package server exposes the current catalog and deal queries over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bulliondeals/internal/logger"
	"bulliondeals/internal/optimizer"
)

const shutdownTimeout = 10 * time.Second

// Server serves read-only views of catalog snapshots.
type Server struct {
	snapshots   *Snapshots
	gatherer    prometheus.Gatherer
	bestOfLimit int
	logger      *logger.Logger
}

// New creates a server. A nil gatherer disables /metrics and a bestOfLimit
// below 1 selects optimizer.DefaultLimit.
func New(snapshots *Snapshots, gatherer prometheus.Gatherer, bestOfLimit int, log *logger.Logger) *Server {
	if bestOfLimit < 1 {
		bestOfLimit = optimizer.DefaultLimit
	}

	if log == nil {
		log = logger.Nop()
	}

	return &Server{
		snapshots:   snapshots,
		gatherer:    gatherer,
		bestOfLimit: bestOfLimit,
		logger:      log,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, s.withLogger)

	s.RegisterRoutes(r)

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Slog().Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	s.logger.Info("server shutting down")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}

func (s *Server) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := s.logger.With("request_id", middleware.GetReqID(r.Context()), "path", r.URL.Path)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), log)))

		log.Log(r.Context(), requestLevel(ww.Status()), "request served",
			"method", r.Method,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

// requestLevel keeps successful requests at debug.
func requestLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	}

	return slog.LevelDebug
}

func (s *Server) metricsHandler() http.Handler {
	return promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
}
