// Package api serves the three published blobs over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"peninsula.dev/transit/kv"
	"peninsula.dev/transit/metrics"
	"peninsula.dev/transit/model"
)

// Per-path cache lifetimes, in seconds. The schedule changes daily
// at most, the realtime blob every couple of minutes.
const (
	scheduleMaxAge = 3600
	metaMaxAge     = 60
	realtimeMaxAge = 30
)

// Server holds the read-only HTTP surface. Handlers are stateless
// and only ever read from the store; the workers own all writes.
type Server struct {
	Store   kv.Store
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// TimeNow is swapped out in tests.
	TimeNow func() time.Time
}

func NewServer(store kv.Store, logger *slog.Logger, m *metrics.Metrics) *Server {
	return &Server{
		Store:   store,
		Logger:  logger,
		Metrics: m,
		TimeNow: time.Now,
	}
}

// Handler builds the full middleware and routing stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(s.instrument)
	r.Use(preflight)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))
	r.Use(newRateLimiter(10, 20).handler)

	r.Get("/api/schedule", s.handleSchedule)
	r.Get("/api/meta", s.handleMeta)
	r.Get("/api/realtime", s.handleRealtime)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Method("GET", "/metrics", promhttp.HandlerFor(
		s.Metrics.Registry, promhttp.HandlerOpts{}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return gzhttp.GzipHandler(r)
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	value, err := s.Store.Get(r.Context(), model.KeySchedule)
	if errors.Is(err, kv.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No schedule data")
		return
	}
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	writeJSON(w, scheduleMaxAge, value)
}

// handleMeta serves the stored metadata with realtimeAge attached:
// seconds since the last realtime feed timestamp, when one exists.
func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	value, err := s.Store.Get(r.Context(), model.KeyMeta)
	if errors.Is(err, kv.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No metadata")
		return
	}
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	var meta model.ScheduleMeta
	if err := json.Unmarshal(value, &meta); err != nil {
		s.storeError(w, r, fmt.Errorf("unmarshaling %s: %w", model.KeyMeta, err))
		return
	}

	if t, ok := s.realtimeTimestamp(r); ok {
		age := s.TimeNow().Unix() - t
		meta.RealtimeAge = &age
	}

	body, err := json.Marshal(meta)
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	writeJSON(w, metaMaxAge, body)
}

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	value, metadata, err := s.Store.GetWithMetadata(r.Context(), model.KeyRealtime)
	if errors.Is(err, kv.ErrNotFound) {
		writeError(w, http.StatusNotFound, "No realtime data")
		return
	}
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	// Caching headers are identical on 200 and 304, as required
	// for conditional GET.
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", realtimeMaxAge))

	var rtMeta model.RealtimeMetadata
	if len(metadata) > 0 && json.Unmarshal(metadata, &rtMeta) == nil && rtMeta.T > 0 {
		etag := fmt.Sprintf(`W/"%d"`, rtMeta.T)
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write(value)
}

func (s *Server) realtimeTimestamp(r *http.Request) (int64, bool) {
	_, metadata, err := s.Store.GetWithMetadata(r.Context(), model.KeyRealtime)
	if err != nil || len(metadata) == 0 {
		return 0, false
	}
	var rtMeta model.RealtimeMetadata
	if json.Unmarshal(metadata, &rtMeta) != nil || rtMeta.T == 0 {
		return 0, false
	}
	return rtMeta.T, true
}

func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	s.Logger.Error("request failed",
		"path", r.URL.Path,
		"request_id", w.Header().Get("X-Request-Id"),
		"error", err)
	writeError(w, http.StatusInternalServerError, "Internal error")
}

func writeJSON(w http.ResponseWriter, maxAge int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
