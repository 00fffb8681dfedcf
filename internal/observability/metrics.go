package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	apiRequestsTotal  *prometheus.CounterVec
	apiLatencySeconds *prometheus.HistogramVec
	apiErrorsTotal    *prometheus.CounterVec

	evaluationsTotal         *prometheus.CounterVec
	evaluationStageSeconds   *prometheus.HistogramVec
	plagiarismRecomputes     prometheus.Counter
	plagiarismAlertsTotal    prometheus.Counter
	notificationsPublished   *prometheus.CounterVec
	evaluationQueueDepth     prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used across the API
// and the evaluation pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submitech_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "submitech_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submitech_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submitech_evaluations_total",
			Help: "Total number of submission evaluations by terminal status.",
		}, []string{"status"})

		evaluationStageSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "submitech_evaluation_stage_seconds",
			Help:    "Duration of individual evaluation pipeline stages.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}, []string{"stage"})

		plagiarismRecomputes = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "submitech_plagiarism_recomputes_total",
			Help: "Total number of cohort plagiarism recomputations.",
		})

		plagiarismAlertsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "submitech_plagiarism_alerts_total",
			Help: "Total number of plagiarism alerts raised above the threshold.",
		})

		notificationsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submitech_notifications_published_total",
			Help: "Total number of notifications published, by kind.",
		}, []string{"kind"})

		evaluationQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "submitech_evaluation_queue_depth",
			Help: "Number of evaluation jobs currently waiting in the queue.",
		})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			evaluationsTotal, evaluationStageSeconds,
			plagiarismRecomputes, plagiarismAlertsTotal,
			notificationsPublished, evaluationQueueDepth,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// EvaluationsTotal exposes the counter for completed evaluations.
func EvaluationsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationsTotal
}

// EvaluationStageDuration exposes the per-stage duration histogram.
func EvaluationStageDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return evaluationStageSeconds
}

// PlagiarismRecomputes exposes the recompute counter.
func PlagiarismRecomputes() prometheus.Counter {
	RegisterMetrics()
	return plagiarismRecomputes
}

// PlagiarismAlerts exposes the alert counter.
func PlagiarismAlerts() prometheus.Counter {
	RegisterMetrics()
	return plagiarismAlertsTotal
}

// NotificationsPublishedTotal exposes the notification counter.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublished
}

// EvaluationQueueDepth exposes the evaluation queue gauge.
func EvaluationQueueDepth() prometheus.Gauge {
	RegisterMetrics()
	return evaluationQueueDepth
}

// MetricsHandler exposes the Prometheus scrape endpoint via Fiber.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}
