// Package metrics holds the Prometheus collectors of the service.
//
// Counters end in _total, histograms carry their unit (_seconds, _bytes).
// Labels are limited to low-cardinality values: never ids.
//
//	metrics.InitMetrics()
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
//	metrics.RecordTransition("cover_design", "activated")
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	initOnce sync.Once

	// HTTP

	// HTTPRequestsTotal labels: method, path (route template), status.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration labels: method, path.
	HTTPRequestDuration *prometheus.HistogramVec

	HTTPRequestsInProgress prometheus.Gauge

	// Workflow

	// WorkflowTransitionsTotal labels: entity (cover_request, cover_design,
	// isbn_certificate, isbn_request), action (created, approved, ...).
	WorkflowTransitionsTotal *prometheus.CounterVec

	// UploadsTotal labels: kind (cover, certificate), result (success, rejected, failed).
	UploadsTotal *prometheus.CounterVec

	// UploadSizeBytes labels: kind.
	UploadSizeBytes *prometheus.HistogramVec

	// Storage

	// StorageOperationDuration labels: operation (upload, presign, delete), result.
	StorageOperationDuration *prometheus.HistogramVec

	// CircuitBreakerState 0=CLOSED, 1=OPEN, 2=HALF_OPEN; labels: name.
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests labels: name, result (success, failure, rejected).
	CircuitBreakerRequests *prometheus.CounterVec

	// Saga

	// SagaExecutionsTotal labels: name, result.
	SagaExecutionsTotal *prometheus.CounterVec

	SagaCompensationsTotal prometheus.Counter

	// Events

	// EventsPublishedTotal labels: routing_key, result.
	EventsPublishedTotal *prometheus.CounterVec
)

// InitMetrics registers every collector with the default registry.
// Safe to call more than once.
func InitMetrics() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_progress",
			Help: "HTTP requests currently being served.",
		},
	)

	WorkflowTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_transitions_total",
			Help: "State transitions applied to workflow entities.",
		},
		[]string{"entity", "action"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_uploads_total",
			Help: "File uploads by kind and outcome.",
		},
		[]string{"kind", "result"},
	)

	// uploads are capped at tens of MiB
	UploadSizeBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workflow_upload_size_bytes",
			Help:    "Size of accepted uploads in bytes.",
			Buckets: prometheus.ExponentialBuckets(16*1024, 4, 7),
		},
		[]string{"kind"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_operation_duration_seconds",
			Help:    "Object storage call latency in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"operation", "result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=CLOSED, 1=OPEN, 2=HALF_OPEN).",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests seen by circuit breakers.",
		},
		[]string{"name", "result"},
	)

	SagaExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_executions_total",
			Help: "Saga executions by outcome.",
		},
		[]string{"name", "result"},
	)

	SagaCompensationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "saga_compensations_total",
			Help: "Compensation steps executed.",
		},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Workflow events handed to the broker.",
		},
		[]string{"routing_key", "result"},
	)
}

// The helpers below are no-ops until InitMetrics runs, so packages can record
// unconditionally and unit tests need no registry.

// RecordTransition counts a workflow state change.
func RecordTransition(entity, action string) {
	if WorkflowTransitionsTotal == nil {
		return
	}
	WorkflowTransitionsTotal.WithLabelValues(entity, action).Inc()
}

// RecordUpload counts an upload and, on success, observes its size.
func RecordUpload(kind, result string, size int64) {
	if UploadsTotal == nil {
		return
	}
	UploadsTotal.WithLabelValues(kind, result).Inc()
	if result == "success" && size > 0 {
		UploadSizeBytes.WithLabelValues(kind).Observe(float64(size))
	}
}

// ObserveStorage records the latency of an object storage call.
func ObserveStorage(operation, result string, seconds float64) {
	if StorageOperationDuration == nil {
		return
	}
	StorageOperationDuration.WithLabelValues(operation, result).Observe(seconds)
}

// SetBreakerState exports a breaker state change.
func SetBreakerState(name string, state float64) {
	if CircuitBreakerState == nil {
		return
	}
	CircuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordBreakerRequest counts a request through a breaker.
func RecordBreakerRequest(name, result string) {
	if CircuitBreakerRequests == nil {
		return
	}
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// RecordSaga counts a saga run.
func RecordSaga(name, result string) {
	if SagaExecutionsTotal == nil {
		return
	}
	SagaExecutionsTotal.WithLabelValues(name, result).Inc()
}

// RecordCompensation counts one compensation step.
func RecordCompensation() {
	if SagaCompensationsTotal == nil {
		return
	}
	SagaCompensationsTotal.Inc()
}

// RecordEvent counts a publish attempt.
func RecordEvent(routingKey, result string) {
	if EventsPublishedTotal == nil {
		return
	}
	EventsPublishedTotal.WithLabelValues(routingKey, result).Inc()
}

// ObserveHTTP counts a served request and records its latency.
func ObserveHTTP(method, path, status string, seconds float64) {
	if HTTPRequestsTotal == nil {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// TrackInFlight adds delta to the in-progress gauge.
func TrackInFlight(delta float64) {
	if HTTPRequestsInProgress == nil {
		return
	}
	HTTPRequestsInProgress.Add(delta)
}
