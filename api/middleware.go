package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// requestID tags every request with a uuid, echoed back in the
// response so client reports can be matched to server logs.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

// preflight answers any OPTIONS under /api/ with an empty 204 and
// permissive CORS headers. It sits ahead of the cors middleware,
// which would answer preflights with a 200 instead.
func preflight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions && strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "*")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// instrument records request counts, latencies, and an access log
// line per request.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		// Metrics get the matched route pattern rather than the
		// raw path, which scanners would turn into an unbounded
		// label set. Requests that never match a route share one
		// bucket.
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}

		elapsed := time.Since(start)
		s.Metrics.HTTPRequestsTotal.WithLabelValues(
			r.Method, route, strconv.Itoa(sw.status)).Inc()
		s.Metrics.HTTPRequestDuration.WithLabelValues(
			r.Method, route).Observe(elapsed.Seconds())

		s.Logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", w.Header().Get("X-Request-Id"))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wrote {
		w.wrote = true
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(b)
}

// rateLimiter applies a token bucket per client IP. The blob
// endpoints are cheap, so the default limits are generous; this only
// guards against runaway clients.
type rateLimiter struct {
	mutex    sync.Mutex
	clients  map[string]*rate.Limiter
	perSec   rate.Limit
	burst    int
	lastSeen map[string]time.Time
}

func newRateLimiter(perSec float64, burst int) *rateLimiter {
	return &rateLimiter{
		clients:  map[string]*rate.Limiter{},
		lastSeen: map[string]time.Time{},
		perSec:   rate.Limit(perSec),
		burst:    burst,
	}
}

func (rl *rateLimiter) handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	limiter, ok := rl.clients[ip]
	if !ok {
		// Drop buckets idle for over an hour before adding a
		// new one, so the maps can't grow without bound.
		for seen, at := range rl.lastSeen {
			if now.Sub(at) > time.Hour {
				delete(rl.clients, seen)
				delete(rl.lastSeen, seen)
			}
		}
		limiter = rate.NewLimiter(rl.perSec, rl.burst)
		rl.clients[ip] = limiter
	}
	rl.lastSeen[ip] = now

	return limiter.Allow()
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
