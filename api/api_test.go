package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peninsula.dev/transit/api"
	"peninsula.dev/transit/kv"
	"peninsula.dev/transit/metrics"
	"peninsula.dev/transit/model"
)

func testServer(store kv.Store) *api.Server {
	s := api.NewServer(store, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics.New())
	s.TimeNow = func() time.Time { return time.Unix(1735689700, 0) }
	return s
}

func get(t *testing.T, handler http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestScheduleEndpoint(t *testing.T) {
	store := kv.NewMemoryStore()
	handler := testServer(store).Handler()

	// Absent key: JSON 404.
	rec := get(t, handler, "/api/schedule", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"No schedule data"}`, rec.Body.String())

	require.NoError(t, store.Put(context.Background(), model.KeySchedule,
		[]byte(`{"m":{"v":"abc","e":20261231,"sv":3}}`), kv.PutOptions{}))

	rec = get(t, handler, "/api/schedule", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, `{"m":{"v":"abc","e":20261231,"sv":3}}`, rec.Body.String())
}

func TestMetaEndpoint(t *testing.T) {
	store := kv.NewMemoryStore()
	handler := testServer(store).Handler()

	rec := get(t, handler, "/api/meta", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, store.Put(context.Background(), model.KeyMeta,
		[]byte(`{"v":"abc","e":20261231,"sv":3}`), kv.PutOptions{}))

	// Without realtime data there's no realtimeAge.
	rec = get(t, handler, "/api/meta", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))
	var meta map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.NotContains(t, meta, "realtimeAge")

	// With a realtime write 100 seconds old, the served metadata
	// carries the derived age.
	require.NoError(t, store.Put(context.Background(), model.KeyRealtime,
		[]byte(`{"t":1735689600,"byTrip":{},"a":[]}`), kv.PutOptions{
			TTL:      3 * time.Minute,
			Metadata: json.RawMessage(`{"t":1735689600}`),
		}))

	rec = get(t, handler, "/api/meta", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var served model.ScheduleMeta
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &served))
	assert.Equal(t, "abc", served.Version)
	require.NotNil(t, served.RealtimeAge)
	assert.Equal(t, int64(100), *served.RealtimeAge)
}

func TestRealtimeEndpointETag(t *testing.T) {
	store := kv.NewMemoryStore()
	handler := testServer(store).Handler()

	rec := get(t, handler, "/api/realtime", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"No realtime data"}`, rec.Body.String())

	body := `{"t":1735689600,"byTrip":{"101":{"d":300}},"a":[]}`
	require.NoError(t, store.Put(context.Background(), model.KeyRealtime,
		[]byte(body), kv.PutOptions{Metadata: json.RawMessage(`{"t":1735689600}`)}))

	// First request: full body with a weak ETag.
	rec = get(t, handler, "/api/realtime", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `W/"1735689600"`, rec.Header().Get("ETag"))
	assert.Equal(t, "public, max-age=30", rec.Header().Get("Cache-Control"))
	assert.Equal(t, body, rec.Body.String())

	// Conditional request: 304, no body, same caching headers.
	rec = get(t, handler, "/api/realtime", map[string]string{
		"If-None-Match": `W/"1735689600"`,
	})
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, `W/"1735689600"`, rec.Header().Get("ETag"))
	assert.Equal(t, "public, max-age=30", rec.Header().Get("Cache-Control"))

	// A newer write invalidates the old validator.
	newBody := `{"t":1735689720,"byTrip":{},"a":[]}`
	require.NoError(t, store.Put(context.Background(), model.KeyRealtime,
		[]byte(newBody), kv.PutOptions{Metadata: json.RawMessage(`{"t":1735689720}`)}))

	rec = get(t, handler, "/api/realtime", map[string]string{
		"If-None-Match": `W/"1735689600"`,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `W/"1735689720"`, rec.Header().Get("ETag"))
	assert.Equal(t, newBody, rec.Body.String())
}

func TestOptionsReturns204(t *testing.T) {
	handler := testServer(kv.NewMemoryStore()).Handler()

	for _, path := range []string{"/api/schedule", "/api/meta", "/api/realtime"} {
		req := httptest.NewRequest("OPTIONS", path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code, path)
		assert.Empty(t, rec.Body.String())
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCORSHeadersOnGet(t *testing.T) {
	store := kv.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), model.KeySchedule,
		[]byte(`{}`), kv.PutOptions{}))
	handler := testServer(store).Handler()

	rec := get(t, handler, "/api/schedule", map[string]string{
		"Origin": "https://app.example.com",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownPathsAndMethods(t *testing.T) {
	handler := testServer(kv.NewMemoryStore()).Handler()

	rec := get(t, handler, "/api/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, handler, "/totally/elsewhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest("POST", "/api/schedule", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	handler := testServer(kv.NewMemoryStore()).Handler()

	rec := get(t, handler, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	// A request has been served, so the counters exist.
	rec = get(t, handler, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "transit_http_requests_total")
}

func TestMetricsLabelPaths(t *testing.T) {
	handler := testServer(kv.NewMemoryStore()).Handler()

	// Scanner-style traffic to arbitrary paths must not mint one
	// label value per path; only matched route patterns and a
	// single bucket for everything else may appear.
	get(t, handler, "/api/schedule", nil)
	get(t, handler, "/wp-login.php", nil)
	get(t, handler, "/.env", nil)

	rec := get(t, handler, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `path="/api/schedule"`)
	assert.Contains(t, body, `path="unmatched"`)
	assert.NotContains(t, body, "wp-login")
	assert.NotContains(t, body, ".env")
}

func TestRequestIDHeader(t *testing.T) {
	handler := testServer(kv.NewMemoryStore()).Handler()

	first := get(t, handler, "/healthz", nil)
	second := get(t, handler, "/healthz", nil)
	assert.NotEmpty(t, first.Header().Get("X-Request-Id"))
	assert.NotEqual(t, first.Header().Get("X-Request-Id"), second.Header().Get("X-Request-Id"))
}

func TestRateLimiting(t *testing.T) {
	handler := testServer(kv.NewMemoryStore()).Handler()

	// Burst is 20; a tight loop from one client eventually trips
	// the limiter.
	limited := false
	for i := 0; i < 40; i++ {
		rec := get(t, handler, "/healthz", nil)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited)
}
