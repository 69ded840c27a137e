package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	buildsTotal         *prometheus.CounterVec
	buildDuration       prometheus.Histogram
	features            *prometheus.GaugeVec
	linesDropped        *prometheus.CounterVec
}

// New creates a fresh Metrics registry with HTTP and network build metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gridmap",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by gridmap",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gridmap",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by gridmap",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	buildsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gridmap",
		Name:      "network_builds_total",
		Help:      "Network dataset builds by result",
	}, []string{"result"})

	buildDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gridmap",
		Name:      "network_build_duration_seconds",
		Help:      "Duration of network dataset builds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	features := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gridmap",
		Name:      "network_features",
		Help:      "Substations and lines in the current dataset",
	}, []string{"operator", "kind"})

	linesDropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gridmap",
		Name:      "network_lines_dropped_total",
		Help:      "Lines skipped because an endpoint substation was unknown",
	}, []string{"operator"})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		buildsTotal,
		buildDuration,
		features,
		linesDropped,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		buildsTotal:         buildsTotal,
		buildDuration:       buildDuration,
		features:            features,
		linesDropped:        linesDropped,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveBuild records one dataset build attempt.
func (m *Metrics) ObserveBuild(ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.buildsTotal.WithLabelValues(result).Inc()
	m.buildDuration.Observe(duration.Seconds())
}

// SetFeatures publishes the size of an operator's section in the current dataset.
func (m *Metrics) SetFeatures(operator string, substations, lines int) {
	if m == nil {
		return
	}
	m.features.WithLabelValues(operator, "substations").Set(float64(substations))
	m.features.WithLabelValues(operator, "lines").Set(float64(lines))
}

func (m *Metrics) AddDroppedLines(operator string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.linesDropped.WithLabelValues(operator).Add(float64(n))
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
