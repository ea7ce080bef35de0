// Package metrics holds the prometheus collectors for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every collector with its registry so tests can run
// isolated instances side by side.
type Metrics struct {
	Registry *prometheus.Registry

	// Upstream fetches, labeled by feed (static, tripupdates,
	// vehiclepositions, alerts) and outcome (ok, error).
	FetchesTotal  *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec

	// Pipeline runs.
	BuildDuration   prometheus.Histogram
	LastPublished   *prometheus.GaugeVec
	RunsTotal       *prometheus.CounterVec
	ValidationFails prometheus.Counter

	// HTTP surface.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		FetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transit_upstream_fetches_total",
				Help: "Upstream HTTP fetches by feed and outcome",
			},
			[]string{"feed", "outcome"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "transit_upstream_fetch_duration_seconds",
				Help:    "Upstream fetch latency by feed",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"feed"},
		),
		BuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "transit_schedule_build_duration_seconds",
				Help:    "Time spent building the schedule bundle",
				Buckets: prometheus.DefBuckets,
			},
		),
		LastPublished: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "transit_last_published_timestamp_seconds",
				Help: "Unix time of the last successful publish, by key",
			},
			[]string{"key"},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transit_worker_runs_total",
				Help: "Worker runs by worker and outcome",
			},
			[]string{"worker", "outcome"},
		),
		ValidationFails: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "transit_schedule_validation_failures_total",
				Help: "Schedule builds rejected by the validator",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transit_http_requests_total",
				Help: "HTTP requests by method, path and status",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "transit_http_request_duration_seconds",
				Help:    "HTTP request latency by method and path",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	m.Registry.MustRegister(
		m.FetchesTotal,
		m.FetchDuration,
		m.BuildDuration,
		m.LastPublished,
		m.RunsTotal,
		m.ValidationFails,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}
