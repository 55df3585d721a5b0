package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/obplab/swingmech/internal/log"
	"github.com/obplab/swingmech/internal/store"
)

// refreshTimeout bounds a full pipeline run triggered over HTTP.
const refreshTimeout = 10 * time.Minute

type swingResponse struct {
	SessionSwing string    `json:"session_swing"`
	UserID       string    `json:"user_id"`
	SessionID    string    `json:"session_id"`
	BatterHand   string    `json:"batter_hand"`
	HeightIn     int       `json:"height_in"`
	WeightLb     int       `json:"weight_lb"`
	SwingNumber  int       `json:"swing_number"`
	ExitVelo     float64   `json:"exit_velo"`
	ComputedAt   time.Time `json:"computed_at"`
}

type anglesResponse struct {
	SessionSwing string      `json:"session_swing"`
	Columns      []string    `json:"columns"`
	Times        []float64   `json:"times"`
	Values       [][]float64 `json:"values"`
}

type statusResponse struct {
	Version    string     `json:"version"`
	Ready      bool       `json:"ready"`
	Refreshing bool       `json:"refreshing"`
	Swings     int        `json:"swings"`
	LastRunID  string     `json:"last_run_id,omitempty"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	CacheHits  int64      `json:"cache_hits"`
	CacheMiss  int64      `json:"cache_misses"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.cfg.Version,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	if err := s.st.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	recs, err := s.st.ListSwings(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "list swings", err)
		return
	}

	stats := s.ch.Stats()
	resp := statusResponse{
		Version:    s.cfg.Version,
		Ready:      s.ready.Load(),
		Refreshing: s.refreshing.Load(),
		Swings:     len(recs),
		CacheHits:  stats.Hits,
		CacheMiss:  stats.Misses,
	}
	if sum := s.lastRun.Load(); sum != nil {
		resp.LastRunID = sum.RunID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSwings(w http.ResponseWriter, r *http.Request) {
	recs, err := s.st.ListSwings(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "list swings", err)
		return
	}

	out := make([]swingResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, swingResponse{
			SessionSwing: rec.SessionSwing,
			UserID:       rec.UserID,
			SessionID:    rec.SessionID,
			BatterHand:   rec.BatterHand,
			HeightIn:     rec.HeightIn,
			WeightLb:     rec.WeightLb,
			SwingNumber:  rec.SwingNumber,
			ExitVelo:     rec.ExitVelo,
			ComputedAt:   rec.ComputedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAngles(w http.ResponseWriter, r *http.Request) {
	sessionSwing := chi.URLParam(r, "sessionSwing")
	key := "angles:" + sessionSwing

	if cached, ok := s.ch.Get(r.Context(), key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)
		return
	}

	set, err := s.st.GetAngles(r.Context(), sessionSwing)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":  "not_found",
			"detail": "unknown session swing " + sessionSwing,
		})
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "load angles", err)
		return
	}

	body, err := json.Marshal(anglesResponse{
		SessionSwing: sessionSwing,
		Columns:      set.Columns,
		Times:        set.Times,
		Values:       set.Values,
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "encode angles", err)
		return
	}
	s.ch.Set(r.Context(), key, body, s.cfg.CacheTTL)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	if !s.refreshing.CompareAndSwap(false, true) {
		logger.Warn().
			Str("event", "refresh.conflict").
			Msg("refresh already in progress")
		w.Header().Set("Retry-After", "30")
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":  "conflict",
			"detail": "a refresh is already in progress",
		})
		return
	}
	defer s.refreshing.Store(false)

	// The run must outlive a disconnecting client.
	runCtx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	sum, err := s.run.Run(runCtx)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "pipeline run", err)
		return
	}
	s.lastRun.Store(&sum)
	s.ch.Clear(runCtx)

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":    sum.RunID,
		"scanned":   sum.Scanned,
		"processed": sum.Processed,
		"failed":    sum.Failed,
		"duration":  sum.Duration.String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, what string, err error) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Error().
		Str("event", "http.error").
		Str("path", r.URL.Path).
		Err(err).
		Msg(what + " failed")
	writeJSON(w, status, map[string]string{
		"error":  http.StatusText(status),
		"detail": what + " failed",
	})
}
