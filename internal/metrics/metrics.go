// Package metrics exposes pipeline, host and HTTP metrics of a formatting run.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dischargefmt"

// Set is the registry of one process together with its collectors
type Set struct {
	Registry *prometheus.Registry
	Pipeline *Pipeline
	HTTP     *HTTPMetrics
}

// New creates a registry with the pipeline and HTTP collectors registered.
// Host metrics are added by NewSystemCollector when enabled.
func New() *Set {
	reg := prometheus.NewRegistry()
	return &Set{
		Registry: reg,
		Pipeline: NewPipeline(reg),
		HTTP:     NewHTTPMetrics(reg),
	}
}

// HTTPMetrics counts requests served by the metrics server
type HTTPMetrics struct {
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	activeConnections prometheus.Gauge
}

// NewHTTPMetrics creates and registers the HTTP collectors
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	h := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "status"},
		),
		activeConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_active_connections",
				Help: "Number of active HTTP connections",
			},
		),
	}
	reg.MustRegister(h.requestsTotal, h.requestDuration, h.activeConnections)
	return h
}

// RecordRequest records metrics for an HTTP request
func (h *HTTPMetrics) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	h.requestsTotal.WithLabelValues(method, endpoint, status).Inc()
	h.requestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}
