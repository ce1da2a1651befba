package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchTotal          *prometheus.CounterVec
	searchDuration       *prometheus.HistogramVec
	searchPoolSize       *prometheus.HistogramVec
	searchResults        *prometheus.HistogramVec
	rerankOutcomeTotal   *prometheus.CounterVec
	visualFallbackTotal  *prometheus.CounterVec
	weightUpdateTotal    *prometheus.CounterVec
	weightsReloadedTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdx",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hdx",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hdx",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdx",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total successful searches by visual routing mode.",
		},
		[]string{"service", "mode"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hdx",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "mode"},
	)
	searchPoolSize := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hdx",
			Subsystem: "search",
			Name:      "candidate_pool_size",
			Help:      "Distribution of candidate pool sizes before hydration.",
			Buckets:   []float64{0, 10, 25, 50, 100, 200, 350, 500},
		},
		[]string{"service"},
	)
	searchResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hdx",
			Subsystem: "search",
			Name:      "results_returned",
			Help:      "Distribution of results returned per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	rerankOutcomeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdx",
			Subsystem: "search",
			Name:      "rerank_outcome_total",
			Help:      "Total rerank attempts by outcome.",
		},
		[]string{"service", "outcome"},
	)
	visualFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdx",
			Subsystem: "search",
			Name:      "visual_fallback_total",
			Help:      "Searches that degraded to non-visual scoring after a visual service failure.",
		},
		[]string{"service", "stage"},
	)
	weightUpdateTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdx",
			Subsystem: "weights",
			Name:      "updates_total",
			Help:      "Total weight updates by source.",
		},
		[]string{"service", "source"},
	)
	weightsReloadedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hdx",
			Subsystem: "weights",
			Name:      "reloads_total",
			Help:      "Total weight reload notifications handled.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchTotal,
		searchDuration,
		searchPoolSize,
		searchResults,
		rerankOutcomeTotal,
		visualFallbackTotal,
		weightUpdateTotal,
		weightsReloadedTotal,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		searchTotal:          searchTotal,
		searchDuration:       searchDuration,
		searchPoolSize:       searchPoolSize,
		searchResults:        searchResults,
		rerankOutcomeTotal:   rerankOutcomeTotal,
		visualFallbackTotal:  visualFallbackTotal,
		weightUpdateTotal:    weightUpdateTotal,
		weightsReloadedTotal: weightsReloadedTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/search/weights/"):
		return "/v1/search/weights/{channel}"
	case strings.HasPrefix(path, "/v1/scenes/"):
		return "/v1/scenes/{scene_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordSearch(service, mode string, poolSize, resultCount int, duration time.Duration) {
	if mode == "" {
		mode = "unknown"
	}
	m.searchTotal.WithLabelValues(service, mode).Inc()
	m.searchDuration.WithLabelValues(service, mode).Observe(duration.Seconds())
	m.searchPoolSize.WithLabelValues(service).Observe(float64(poolSize))
	m.searchResults.WithLabelValues(service).Observe(float64(resultCount))
}

func (m *HTTPServerMetrics) RecordRerankOutcome(service, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.rerankOutcomeTotal.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordVisualFallback(service, stage string) {
	if stage == "" {
		stage = "unknown"
	}
	m.visualFallbackTotal.WithLabelValues(service, stage).Inc()
}

func (m *HTTPServerMetrics) RecordWeightUpdate(service, source string) {
	if source == "" {
		source = "unknown"
	}
	m.weightUpdateTotal.WithLabelValues(service, source).Inc()
}

func (m *HTTPServerMetrics) RecordWeightsReloaded(service string) {
	m.weightsReloadedTotal.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
