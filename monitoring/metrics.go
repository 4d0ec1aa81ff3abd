// Package monitoring exposes Prometheus metrics and the realtime
// prediction feed for the pricing service.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Latency buckets in milliseconds. The pipeline normally answers well
// under a millisecond from cache and within a few from the forest.
var defaultBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000}

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace string
	registry  prometheus.Registerer

	predictionsServed *prometheus.CounterVec
	pipelineFailures  *prometheus.CounterVec
	predictionLatency prometheus.Histogram
	cacheHits         prometheus.Counter
	modelReloads      prometheus.Counter

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	wsClients prometheus.Gauge
}

// Option configures a Manager.
type Option func(*Manager)

// WithRegistry registers collectors on a custom registry instead of
// the default one.
func WithRegistry(r prometheus.Registerer) Option {
	return func(m *Manager) { m.registry = r }
}

// Global manager instance; a process has exactly one metrics surface.
var globalManager *Manager

// Custom registry keeps the exposition page free of default Go metrics.
var customRegistry = prometheus.NewRegistry()

func init() {
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "cargoquant",
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.predictionsServed = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "pricing",
			Name:      "predictions_served_total",
			Help:      "Total number of price predictions served, by result",
		},
		[]string{"result"},
	)

	m.pipelineFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "pricing",
			Name:      "pipeline_failures_total",
			Help:      "Total number of prediction pipeline failures, by stage",
		},
		[]string{"stage"},
	)

	m.predictionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "pricing",
		Name:      "prediction_latency_milliseconds",
		Help:      "End-to-end prediction latency in milliseconds",
		Buckets:   defaultBuckets,
	})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "pricing",
		Name:      "cache_hits_total",
		Help:      "Total number of predictions answered from the quote cache",
	})

	m.modelReloads = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "model",
		Name:      "reloads_total",
		Help:      "Total number of successful model artifact reloads",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by endpoint, method and status",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: "http",
			Name:      "request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   defaultBuckets,
		},
		[]string{"endpoint"},
	)

	m.wsClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "ws",
		Name:      "connected_clients",
		Help:      "Current number of connected websocket clients",
	})
}

// RecordPrediction counts one served prediction; result is "computed"
// or "cached".
func RecordPrediction(result string) {
	globalManager.predictionsServed.WithLabelValues(result).Inc()
}

// RecordPipelineFailure counts one failed prediction by pipeline stage.
func RecordPipelineFailure(stage string) {
	globalManager.pipelineFailures.WithLabelValues(stage).Inc()
}

// RecordPredictionLatency records end-to-end prediction latency.
func RecordPredictionLatency(latencyMs float64) {
	globalManager.predictionLatency.Observe(latencyMs)
}

// RecordCacheHit counts a prediction answered from the quote cache.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordModelReload counts a successful model artifact reload.
func RecordModelReload() {
	globalManager.modelReloads.Inc()
}

// RecordHTTPRequest counts one handled HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint).Observe(durationMs)
}

// UpdateWSClients sets the connected websocket client count.
func UpdateWSClients(count int) {
	globalManager.wsClients.Set(float64(count))
}

// MetricsHandler serves the Prometheus exposition endpoint.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

// GetRegistry returns the registry backing the exposition endpoint.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
