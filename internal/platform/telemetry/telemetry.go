// Package telemetry exposes Prometheus metrics for the HTTP surface and the
// record-processing pipeline.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the instruments registered for the service.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	TimelineRebuilds        *prometheus.CounterVec
	TimelineRebuildDuration prometheus.Histogram
	TimelineEvents          prometheus.Gauge

	ExtractionTransitions *prometheus.CounterVec
	ValuesClassified      *prometheus.CounterVec
	ValuesConfirmed       prometheus.Counter
}

// New creates a Metrics set on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carelog",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "carelog",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		TimelineRebuilds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carelog",
			Name:      "timeline_rebuilds_total",
			Help:      "Timeline rebuilds by outcome.",
		}, []string{"outcome"}),
		TimelineRebuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "carelog",
			Name:      "timeline_rebuild_duration_seconds",
			Help:      "Time spent rebuilding a patient timeline.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		TimelineEvents: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "carelog",
			Name:      "timeline_events_last_rebuild",
			Help:      "Number of events produced by the most recent rebuild.",
		}),
		ExtractionTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carelog",
			Name:      "extraction_transitions_total",
			Help:      "Extraction state transitions by target state.",
		}, []string{"state"}),
		ValuesClassified: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carelog",
			Name:      "lab_values_classified_total",
			Help:      "Lab values classified by status.",
		}, []string{"status"}),
		ValuesConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "carelog",
			Name:      "lab_values_confirmed_total",
			Help:      "Individually confirmed lab values.",
		}),
	}
}

// Middleware records request counts and latency per route.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			// Use the route pattern, not the raw path, to bound cardinality.
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method

			m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(c.Response().Status)).Inc()
			m.HTTPDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the metrics scrape endpoint.
func (m *Metrics) Handler() echo.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return echo.WrapHandler(h)
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
