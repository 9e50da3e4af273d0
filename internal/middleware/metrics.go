package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pipeline metrics
	hotkeyPresses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translator_hotkey_presses_total",
		Help: "Total number of translate hotkey presses",
	}, []string{"result"})

	translationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translator_translations_total",
		Help: "Total number of finished translation pipelines",
	}, []string{"status"})

	captureFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translator_capture_failures_total",
		Help: "Total number of failed selection captures",
	}, []string{"reason"})

	pipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "translator_pipeline_duration_seconds",
		Help:    "Duration from hotkey press to clipboard write-back",
		Buckets: prometheus.DefBuckets,
	})

	// API metrics
	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "translator_api_request_duration_seconds",
		Help:    "Duration of translation API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model", "status"})

	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translator_api_requests_total",
		Help: "Total number of translation API requests",
	}, []string{"model", "status"})

	apiRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translator_api_retries_total",
		Help: "Total number of translation API retries by failure kind",
	}, []string{"kind"})

	// Cache metrics
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "translator_cache_hits_total",
		Help: "Total number of cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "translator_cache_misses_total",
		Help: "Total number of cache misses",
	})

	dedupJoins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "translator_dedup_joins_total",
		Help: "Total number of submissions attached to an in-flight request",
	})

	// Rate limit metrics
	rateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translator_rate_limit_exceeded_total",
		Help: "Total number of rate limit rejections",
	}, []string{"kind"})

	queueRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "translator_queue_rejected_total",
		Help: "Total number of submissions rejected because the queue was full",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "translator_queue_depth",
		Help: "Number of requests waiting in the queue",
	})

	// Storage metrics
	storageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "translator_storage_operations_total",
		Help: "Total number of history storage operations",
	}, []string{"operation", "status"})

	storageOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "translator_storage_operation_duration_seconds",
		Help:    "Duration of history storage operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordHotkeyPress records a hotkey press: accepted or busy
func (m *Metrics) RecordHotkeyPress(result string) {
	hotkeyPresses.WithLabelValues(result).Inc()
}

// RecordTranslation records a finished pipeline and its duration
func (m *Metrics) RecordTranslation(status string, duration time.Duration) {
	translationsTotal.WithLabelValues(status).Inc()
	pipelineDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordCaptureFailure(reason string) {
	captureFailures.WithLabelValues(reason).Inc()
}

// RecordAPIRequest records one attempt against the remote endpoint
func (m *Metrics) RecordAPIRequest(model, status string, duration time.Duration) {
	apiRequestDuration.WithLabelValues(model, status).Observe(duration.Seconds())
	apiRequestsTotal.WithLabelValues(model, status).Inc()
}

// RecordRetry records a retry scheduled after a transient failure
func (m *Metrics) RecordRetry(kind string) {
	apiRetries.WithLabelValues(kind).Inc()
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit() {
	cacheHits.Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss() {
	cacheMisses.Inc()
}

func (m *Metrics) RecordDedupJoin() {
	dedupJoins.Inc()
}

// RecordRateLimitExceeded records a limiter rejection: minute or daily
func (m *Metrics) RecordRateLimitExceeded(kind string) {
	rateLimitExceeded.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordQueueRejected() {
	queueRejected.Inc()
}

func (m *Metrics) SetQueueDepth(depth int) {
	queueDepth.Set(float64(depth))
}

// RecordStorageOperation records a storage operation
func (m *Metrics) RecordStorageOperation(operation, status string, duration time.Duration) {
	storageOperations.WithLabelValues(operation, status).Inc()
	storageOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// StatsFunc returns a JSON-serializable snapshot for the /stats endpoint.
type StatsFunc func() interface{}

// NewMetricsRouter builds the router served by StartMetricsServer.
func NewMetricsRouter(path string, stats StatsFunc) *mux.Router {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if stats != nil {
		router.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(stats()); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}).Methods(http.MethodGet)
	}

	return router
}

// NewMetricsServer creates the metrics HTTP server
func NewMetricsServer(port int, path string, stats StatsFunc) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      NewMetricsRouter(path, stats),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
