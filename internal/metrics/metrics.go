// Package metrics defines the Prometheus instrumentation of the pipeline
// and the API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics
	PipelineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swingmech_pipeline_runs_total",
		Help: "Pipeline runs by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	PipelineDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swingmech_pipeline_duration_seconds",
		Help:    "Wall time of a full pipeline run",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	SwingsDiscovered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swingmech_swings_discovered",
		Help: "Number of capture files found in the last dataset scan",
	})

	SwingsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swingmech_swings_processed_total",
		Help: "Per-swing processing attempts by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	SwingProcessingSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swingmech_swing_processing_seconds",
		Help:    "Time to compute joint angles for one swing",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	MarkersPerCapture = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swingmech_markers_per_capture",
		Help:    "Marker trajectories decoded per capture file",
		Buckets: prometheus.LinearBuckets(10, 10, 10),
	})

	// Dataset metrics
	ParseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swingmech_capture_name_parse_failures_total",
		Help: "Capture files skipped because their name did not parse",
	})

	// Cache metrics
	CacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swingmech_cache_requests_total",
		Help: "Angle cache lookups by result",
	}, []string{"result"}) // result=hit|miss|error

	// Watcher metrics
	WatchEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swingmech_watch_events_total",
		Help: "Filesystem events observed under the dataset root",
	})

	WatchRefreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swingmech_watch_refreshes_total",
		Help: "Pipeline refreshes triggered by the dataset watcher",
	})

	// API metrics
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swingmech_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swingmech_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)
