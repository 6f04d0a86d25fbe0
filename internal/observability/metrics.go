package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	attemptsStartedTotal  *prometheus.CounterVec
	attemptsFinalizedTot  *prometheus.CounterVec
	gradingCompletedTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tugas_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tugas_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tugas_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		attemptsStartedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tugas_attempts_started_total",
			Help: "Total number of attempts started, by delivery mode.",
		}, []string{"mode"})

		attemptsFinalizedTot = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tugas_attempts_finalized_total",
			Help: "Total number of attempts finalized, by outcome.",
		}, []string{"outcome"})

		gradingCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tugas_grading_completed_total",
			Help: "Total number of manual grading completions, by regrade flag.",
		}, []string{"regrade"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			attemptsStartedTotal,
			attemptsFinalizedTot,
			gradingCompletedTotal,
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

// AttemptsStarted exposes the counter for started attempts.
func AttemptsStarted() *prometheus.CounterVec {
	RegisterMetrics()
	return attemptsStartedTotal
}

// AttemptsFinalized exposes the counter for finalized attempts.
func AttemptsFinalized() *prometheus.CounterVec {
	RegisterMetrics()
	return attemptsFinalizedTot
}

// GradingCompleted exposes the counter for grading completions.
func GradingCompleted() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingCompletedTotal
}
