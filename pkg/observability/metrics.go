package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Upload validation metrics
	UploadsValidatedTotal    *prometheus.CounterVec
	UploadValidationDuration prometheus.Histogram
	UploadBytesTotal         prometheus.Counter

	// Promotion metrics
	PromotionsTotal *prometheus.CounterVec

	// Review metrics
	ReviewTransitionsTotal *prometheus.CounterVec

	// Blob storage metrics
	BlobOperationsTotal   *prometheus.CounterVec
	BlobOperationDuration *prometheus.HistogramVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bazaar_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bazaar_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		UploadsValidatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bazaar_uploads_validated_total",
				Help: "Total number of upload validations by outcome",
			},
			[]string{"outcome"},
		),
		UploadValidationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bazaar_upload_validation_duration_seconds",
				Help:    "Archive validation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		UploadBytesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bazaar_upload_bytes_total",
				Help: "Total bytes accepted through the upload endpoint",
			},
		),
		PromotionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bazaar_promotions_total",
				Help: "Total number of promotion attempts by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		ReviewTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bazaar_review_transitions_total",
				Help: "Total number of review state transitions by kind, action and outcome",
			},
			[]string{"kind", "action", "outcome"},
		),
		BlobOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bazaar_blob_operations_total",
				Help: "Total number of blob storage operations",
			},
			[]string{"operation", "backend", "status"},
		),
		BlobOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bazaar_blob_operation_duration_seconds",
				Help:    "Blob storage operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "backend"},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bazaar_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bazaar_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.UploadsValidatedTotal,
		m.UploadValidationDuration,
		m.UploadBytesTotal,
		m.PromotionsTotal,
		m.ReviewTransitionsTotal,
		m.BlobOperationsTotal,
		m.BlobOperationDuration,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// Handler returns an HTTP handler exposing the metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records a completed HTTP request
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveValidation records an archive validation outcome
func (m *Metrics) ObserveValidation(outcome string, size int64, duration time.Duration) {
	m.UploadsValidatedTotal.WithLabelValues(outcome).Inc()
	m.UploadValidationDuration.Observe(duration.Seconds())
	if size > 0 {
		m.UploadBytesTotal.Add(float64(size))
	}
}

// ObserveBlobOperation records a blob storage operation
func (m *Metrics) ObserveBlobOperation(operation, backend, status string, duration time.Duration) {
	m.BlobOperationsTotal.WithLabelValues(operation, backend, status).Inc()
	m.BlobOperationDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
}
