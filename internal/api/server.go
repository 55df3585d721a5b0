// Package api serves computed swing data over HTTP: swing listings, angle
// series and an on-demand pipeline refresh, plus health and metrics
// endpoints.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obplab/swingmech/internal/cache"
	"github.com/obplab/swingmech/internal/config"
	"github.com/obplab/swingmech/internal/log"
	"github.com/obplab/swingmech/internal/pipeline"
	"github.com/obplab/swingmech/internal/store"
)

// Server wires the store, cache and pipeline behind the HTTP API.
type Server struct {
	cfg config.AppConfig
	st  *store.Store
	ch  cache.Cache
	run *pipeline.Runner

	httpSrv    *http.Server
	ready      atomic.Bool
	refreshing atomic.Bool
	lastRun    atomic.Pointer[pipeline.Summary]
}

// New assembles a Server. The store and cache must be non-nil; the runner
// powers POST /api/refresh.
func New(cfg config.AppConfig, st *store.Store, ch cache.Cache, run *pipeline.Runner) *Server {
	s := &Server{cfg: cfg, st: st, ch: ch, run: run}
	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router builds the route table. Exposed separately so tests can drive the
// handlers through httptest without binding a port.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(httprate.LimitByIP(s.cfg.RateLimit, time.Minute))
		}
		r.Get("/status", s.handleStatus)
		r.Get("/swings", s.handleListSwings)
		r.Get("/swings/{sessionSwing}/angles", s.handleGetAngles)
		r.Post("/refresh", s.handleRefresh)
	})
	return r
}

// Start runs the HTTP server until ctx is cancelled, then drains it within
// the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	logger := log.WithComponent("api")
	s.ready.Store(true)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("event", "api.listening").
			Str("addr", s.cfg.ListenAddr).
			Msg("http server listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.ready.Store(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	logger.Info().Str("event", "api.shutdown").Msg("draining http server")
	return s.httpSrv.Shutdown(shutdownCtx)
}
