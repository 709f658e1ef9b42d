// Package metrics exports chat pipeline metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leadbot"

// Exporter holds the pipeline collectors on a private registry.
// A nil *Exporter is valid and records nothing.
type Exporter struct {
	registry *prometheus.Registry

	turns         *prometheus.CounterVec
	stageLatency  *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	tokens        prometheus.Counter
	searchResults *prometheus.HistogramVec
	cacheRequests *prometheus.CounterVec
	activeStreams prometheus.Gauge

	handler http.Handler
}

// Config configures the exporter
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}
}

// NewExporter creates and registers all collectors
func NewExporter(cfg Config) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{registry: registry}

	e.turns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Total number of chat turns by domain and outcome",
		},
		[]string{"domain", "status"},
	)

	e.stageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "stage_seconds",
			Help:      "Latency of each pipeline stage in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"stage"},
	)

	e.stageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "stage_failures_total",
			Help:      "Total number of contained stage failures",
		},
		[]string{"stage"},
	)

	e.tokens = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "tokens_streamed_total",
			Help:      "Total number of token fragments forwarded to clients",
		},
	)

	e.searchResults = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "results",
			Help:      "Number of ranked matches returned per search",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
		[]string{"backend"},
	)

	e.cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Cache lookups by cache and result",
		},
		[]string{"cache", "result"},
	)

	e.activeStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "active_streams",
			Help:      "Number of chat streams currently open",
		},
	)

	registry.MustRegister(
		e.turns,
		e.stageLatency,
		e.stageFailures,
		e.tokens,
		e.searchResults,
		e.cacheRequests,
		e.activeStreams,
	)
	e.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return e
}

// Registry returns the underlying registry
func (e *Exporter) Registry() *prometheus.Registry {
	if e == nil {
		return nil
	}
	return e.registry
}

// ServeHTTP exposes the registry
func (e *Exporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if e == nil {
		http.NotFound(w, r)
		return
	}
	e.handler.ServeHTTP(w, r)
}

// RecordTurn counts a finished turn
func (e *Exporter) RecordTurn(domain string, success bool) {
	if e == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	e.turns.WithLabelValues(domain, status).Inc()
}

// RecordStage records one stage's latency and, when err is non-nil, a contained failure
func (e *Exporter) RecordStage(stage string, latency time.Duration, err error) {
	if e == nil {
		return
	}
	e.stageLatency.WithLabelValues(stage).Observe(latency.Seconds())
	if err != nil {
		e.stageFailures.WithLabelValues(stage).Inc()
	}
}

// RecordToken counts one forwarded token fragment
func (e *Exporter) RecordToken() {
	if e == nil {
		return
	}
	e.tokens.Inc()
}

// RecordSearchResults observes how many matches a search produced
func (e *Exporter) RecordSearchResults(backend string, count int) {
	if e == nil {
		return
	}
	e.searchResults.WithLabelValues(backend).Observe(float64(count))
}

// RecordCache counts a cache hit or miss
func (e *Exporter) RecordCache(cache string, hit bool) {
	if e == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	e.cacheRequests.WithLabelValues(cache, result).Inc()
}

// StreamOpened increments the open stream gauge
func (e *Exporter) StreamOpened() {
	if e == nil {
		return
	}
	e.activeStreams.Inc()
}

// StreamClosed decrements the open stream gauge
func (e *Exporter) StreamClosed() {
	if e == nil {
		return
	}
	e.activeStreams.Dec()
}
