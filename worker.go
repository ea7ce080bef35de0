package transit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"peninsula.dev/transit/downloader"
	"peninsula.dev/transit/kv"
	"peninsula.dev/transit/metrics"
	"peninsula.dev/transit/model"
	"peninsula.dev/transit/parse"
)

// The two periodic workers. Each owns its KV keys exclusively, runs
// at most once at a time, and keeps no state between runs; on any
// failure a run aborts without writing, so readers keep seeing the
// previous value.

const (
	DefaultRealtimeInterval = 2 * time.Minute
	DefaultRealtimeTimeout  = 10 * time.Second
	DefaultRealtimeTTL      = 3 * time.Minute
	DefaultRealtimeMaxSize  = 1 << 20 // 1 MB per feed

	DefaultScheduleInterval = 24 * time.Hour
	DefaultScheduleTimeout  = 60 * time.Second
	DefaultScheduleMaxSize  = 64 << 20 // 64 MB archive

	// Re-serve a fetched archive for this long. Shields the upstream
	// from crash loops without delaying a real daily update.
	scheduleCacheTTL = 10 * time.Minute
)

// ErrScheduleUnchanged signals that a schedule run completed but the
// archive hash matched what's already published, so nothing was
// written.
var ErrScheduleUnchanged = errors.New("schedule unchanged")

// FeedURLs holds the four upstream endpoints. The API key is not
// part of these; it gets appended at fetch time.
type FeedURLs struct {
	Static           string
	TripUpdates      string
	VehiclePositions string
	Alerts           string
}

// RealtimeWorker fetches the three realtime feeds on a short
// cadence, merges them, and publishes the result with a TTL. Two
// consecutive missed runs let the published value expire.
type RealtimeWorker struct {
	APIKey     string
	URLs       FeedURLs
	Store      kv.Store
	Downloader downloader.Downloader
	Logger     *slog.Logger
	Metrics    *metrics.Metrics

	Interval time.Duration
	Timeout  time.Duration
	TTL      time.Duration
	MaxSize  int
}

func NewRealtimeWorker(apiKey string, urls FeedURLs, store kv.Store, logger *slog.Logger, m *metrics.Metrics) *RealtimeWorker {
	return &RealtimeWorker{
		APIKey:     apiKey,
		URLs:       urls,
		Store:      store,
		Downloader: downloader.NewCachingDownloader(),
		Logger:     logger,
		Metrics:    m,

		Interval: DefaultRealtimeInterval,
		Timeout:  DefaultRealtimeTimeout,
		TTL:      DefaultRealtimeTTL,
		MaxSize:  DefaultRealtimeMaxSize,
	}
}

// Run executes RunOnce immediately and then on every tick until the
// context is canceled. Runs never overlap.
func (w *RealtimeWorker) Run(ctx context.Context) {
	w.logRun(ctx)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.logRun(ctx)
		}
	}
}

func (w *RealtimeWorker) logRun(ctx context.Context) {
	err := w.RunOnce(ctx)
	if err != nil {
		w.Metrics.RunsTotal.WithLabelValues("realtime", "error").Inc()
		w.Logger.Error("realtime refresh failed", "error", Redact(err.Error(), w.APIKey))
		return
	}
	w.Metrics.RunsTotal.WithLabelValues("realtime", "ok").Inc()
}

// RunOnce performs one fetch-decode-merge-publish cycle. Callers
// that log the returned error must pass it through Redact first.
func (w *RealtimeWorker) RunOnce(ctx context.Context) error {
	if w.APIKey == "" {
		w.Logger.Warn("no API key configured, skipping realtime refresh")
		return nil
	}

	// One deadline shared by all three fetches. Canceling it
	// cancels whatever is still in flight.
	ctx, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()

	feeds := []struct {
		name string
		url  string
	}{
		{"tripupdates", w.URLs.TripUpdates},
		{"vehiclepositions", w.URLs.VehiclePositions},
		{"alerts", w.URLs.Alerts},
	}

	bodies := make([][]byte, len(feeds))
	errs := make([]error, len(feeds))
	var wg sync.WaitGroup
	for i, feed := range feeds {
		wg.Add(1)
		go func(i int, name, url string) {
			defer wg.Done()
			start := time.Now()
			body, err := w.Downloader.Get(
				ctx,
				downloader.KeyedURL(url, w.APIKey),
				nil,
				downloader.GetOptions{MaxSize: w.MaxSize},
			)
			w.Metrics.FetchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
			if err != nil {
				w.Metrics.FetchesTotal.WithLabelValues(name, "error").Inc()
				errs[i] = fmt.Errorf("fetching %s: %w", name, err)
				return
			}
			w.Metrics.FetchesTotal.WithLabelValues(name, "ok").Inc()
			bodies[i] = body
		}(i, feed.name, feed.url)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return err
	}

	decoded := make([]*gtfsrt.FeedMessage, len(feeds))
	for i, feed := range feeds {
		msg, err := parse.ParseRealtime(bodies[i])
		if err != nil {
			return fmt.Errorf("decoding %s: %w", feed.name, err)
		}
		decoded[i] = msg
	}

	status := MergeRealtime(decoded[0], decoded[1], decoded[2])

	value, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshaling status: %w", err)
	}
	metadata, err := json.Marshal(model.RealtimeMetadata{T: status.Timestamp})
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	err = w.Store.Put(ctx, model.KeyRealtime, value, kv.PutOptions{
		TTL:      w.TTL,
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", model.KeyRealtime, err)
	}

	w.Metrics.LastPublished.WithLabelValues(model.KeyRealtime).SetToCurrentTime()
	w.Logger.Info("realtime published",
		"trips", len(status.ByTrip),
		"alerts", len(status.Alerts),
		"timestamp", status.Timestamp)

	return nil
}

// ScheduleWorker rebuilds the schedule bundle from the static
// archive once a day. Both schedule keys persist without TTL until
// the next successful run replaces them.
type ScheduleWorker struct {
	APIKey     string
	StaticURL  string
	Store      kv.Store
	Downloader downloader.Downloader
	Logger     *slog.Logger
	Metrics    *metrics.Metrics

	Interval   time.Duration
	Timeout    time.Duration
	MaxSize    int
	MinEndDate int // YYYYMMDD lower bound for the validator
}

func NewScheduleWorker(apiKey, staticURL string, store kv.Store, logger *slog.Logger, m *metrics.Metrics) *ScheduleWorker {
	now := time.Now()
	return &ScheduleWorker{
		APIKey:     apiKey,
		StaticURL:  staticURL,
		Store:      store,
		Downloader: downloader.NewCachingDownloader(),
		Logger:     logger,
		Metrics:    m,

		Interval:   DefaultScheduleInterval,
		Timeout:    DefaultScheduleTimeout,
		MaxSize:    DefaultScheduleMaxSize,
		MinEndDate: now.Year()*10000 + int(now.Month())*100 + now.Day(),
	}
}

// Run executes RunOnce immediately and then on every tick until the
// context is canceled.
func (w *ScheduleWorker) Run(ctx context.Context) {
	w.logRun(ctx)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.logRun(ctx)
		}
	}
}

func (w *ScheduleWorker) logRun(ctx context.Context) {
	err := w.RunOnce(ctx)
	if errors.Is(err, ErrScheduleUnchanged) {
		w.Metrics.RunsTotal.WithLabelValues("schedule", "unchanged").Inc()
		w.Logger.Info("schedule unchanged, nothing to publish")
		return
	}
	if err != nil {
		w.Metrics.RunsTotal.WithLabelValues("schedule", "error").Inc()
		w.Logger.Error("schedule refresh failed", "error", Redact(err.Error(), w.APIKey))
		return
	}
	w.Metrics.RunsTotal.WithLabelValues("schedule", "ok").Inc()
}

// RunOnce fetches the archive, builds and validates the bundle, and
// publishes it if its version differs from what's already stored.
// Returns ErrScheduleUnchanged when the archive hash matches the
// published version. Callers that log other errors must pass them
// through Redact first.
func (w *ScheduleWorker) RunOnce(ctx context.Context) error {
	if w.APIKey == "" {
		w.Logger.Warn("no API key configured, skipping schedule refresh")
		return nil
	}

	start := time.Now()
	archive, err := w.Downloader.Get(
		ctx,
		downloader.KeyedURL(w.StaticURL, w.APIKey),
		nil,
		downloader.GetOptions{
			MaxSize:  w.MaxSize,
			Timeout:  w.Timeout,
			Cache:    true,
			CacheTTL: scheduleCacheTTL,
		},
	)
	w.Metrics.FetchDuration.WithLabelValues("static").Observe(time.Since(start).Seconds())
	if err != nil {
		w.Metrics.FetchesTotal.WithLabelValues("static", "error").Inc()
		return fmt.Errorf("fetching archive: %w", err)
	}
	w.Metrics.FetchesTotal.WithLabelValues("static", "ok").Inc()

	buildStart := time.Now()
	schedule, err := BuildSchedule(archive)
	if err != nil {
		return fmt.Errorf("building schedule: %w", err)
	}
	w.Metrics.BuildDuration.Observe(time.Since(buildStart).Seconds())

	if violations := Validate(schedule, w.MinEndDate); len(violations) > 0 {
		w.Metrics.ValidationFails.Inc()
		for _, v := range violations {
			w.Logger.Error("schedule validation failed", "violation", v)
		}
		return fmt.Errorf("schedule failed validation with %d violations", len(violations))
	}

	// Skip the write when the archive hasn't changed since the
	// last publish.
	current, err := w.Store.Get(ctx, model.KeyMeta)
	if err == nil {
		var meta model.ScheduleMeta
		if json.Unmarshal(current, &meta) == nil && meta.Version == schedule.Meta.Version {
			return ErrScheduleUnchanged
		}
	} else if !errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("reading %s: %w", model.KeyMeta, err)
	}

	value, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("marshaling schedule: %w", err)
	}
	meta, err := json.Marshal(schedule.Meta)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	if err := w.Store.Put(ctx, model.KeySchedule, value, kv.PutOptions{}); err != nil {
		return fmt.Errorf("writing %s: %w", model.KeySchedule, err)
	}
	if err := w.Store.Put(ctx, model.KeyMeta, meta, kv.PutOptions{}); err != nil {
		return fmt.Errorf("writing %s: %w", model.KeyMeta, err)
	}

	w.Metrics.LastPublished.WithLabelValues(model.KeySchedule).SetToCurrentTime()
	w.Logger.Info("schedule published",
		"version", schedule.Meta.Version,
		"stations", len(schedule.Stations),
		"trips", len(schedule.Trips),
		"patterns", len(schedule.Patterns))

	return nil
}
