package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	classifyItemsTotal *prometheus.CounterVec
	classifyDuration   *prometheus.HistogramVec
	batchSize          *prometheus.HistogramVec
	enrichmentTotal    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snaptag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "snaptag",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "snaptag",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	classifyItemsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snaptag",
			Subsystem: "classify",
			Name:      "items_total",
			Help:      "Total classified items by outcome.",
		},
		[]string{"service", "outcome"},
	)
	classifyDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "snaptag",
			Subsystem: "classify",
			Name:      "duration_seconds",
			Help:      "End-to-end classification duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	batchSize := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "snaptag",
			Subsystem: "classify",
			Name:      "batch_size",
			Help:      "Distribution of files per batch request.",
			Buckets:   []float64{1, 2, 4, 8, 12, 16},
		},
		[]string{"service"},
	)
	enrichmentTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snaptag",
			Subsystem: "places",
			Name:      "enrichment_total",
			Help:      "Total place enrichment attempts by result.",
		},
		[]string{"service", "result"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		classifyItemsTotal,
		classifyDuration,
		batchSize,
		enrichmentTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		classifyItemsTotal: classifyItemsTotal,
		classifyDuration:   classifyDuration,
		batchSize:          batchSize,
		enrichmentTotal:    enrichmentTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := r.URL.Path
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

// RecordClassifiedItem counts one classified item. Outcome is one of
// "model", "fallback", "rejected" or "error".
func (m *HTTPServerMetrics) RecordClassifiedItem(service, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.classifyItemsTotal.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordClassifyDuration(service, endpoint string, duration time.Duration) {
	m.classifyDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordBatchSize(service string, size int) {
	m.batchSize.WithLabelValues(service).Observe(float64(size))
}

func (m *HTTPServerMetrics) RecordEnrichment(service string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.enrichmentTotal.WithLabelValues(service, result).Inc()
}

// statusRecorder captures the response code for labeling. The service only
// ever writes plain JSON bodies, so nothing else needs to pass through.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
