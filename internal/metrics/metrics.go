// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Ops API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Request Queue Metrics
	QueueAdmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_admissions_total",
			Help: "Total number of Request calls by outcome",
		},
		[]string{"kind", "result"}, // result: "queued", "pending", "fulfilled", "error"
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Pending request rows by status",
		},
		[]string{"status"},
	)

	DrainCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "drain_cycle_duration_seconds",
			Help:    "Duration of drain cycles in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	DrainItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drain_items_total",
			Help: "Drained queue items by outcome",
		},
		[]string{"outcome"}, // "submitted", "already_fulfilled", "retry", "failed", "poison", "lost_lock", "panic"
	)

	DrainStaleResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "drain_stale_resets_total",
			Help: "Rows reset from submitting to queued by crash recovery",
		},
	)

	DrainLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "drain_last_success_timestamp",
			Help: "Unix timestamp of the last drain cycle that completed",
		},
	)

	// Job Metrics
	JobExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_executions_total",
			Help: "Total number of job executions by type and final status",
		},
		[]string{"job_type", "status"},
	)

	JobExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_execution_duration_seconds",
			Help:    "Duration of job executions in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"job_type"},
	)

	JobDispatchSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_dispatch_skipped_total",
			Help: "Trigger firings that did not start an execution",
		},
		[]string{"reason"}, // "in_flight", "unknown_type", "disabled", "load_failed"
	)

	JobsScheduled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobs_scheduled",
			Help: "Number of jobs with a registered trigger",
		},
	)

	// Candidate Metrics
	Candidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_candidates_total",
			Help: "Candidates evaluated by the pipeline, by outcome",
		},
		[]string{"job_type", "outcome"}, // outcome: "filtered", "requested", "duplicate", or a skip reason
	)

	// Upstream Metrics
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Duration of outbound HTTP requests in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "status_class"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordAdmission records the outcome of one queue admission attempt.
func RecordAdmission(kind, result string) {
	QueueAdmissions.WithLabelValues(kind, result).Inc()
}

// UpdateQueueDepth sets the per-status queue gauges.
func UpdateQueueDepth(queued, submitting, submitted, failed int64) {
	QueueDepth.WithLabelValues("queued").Set(float64(queued))
	QueueDepth.WithLabelValues("submitting").Set(float64(submitting))
	QueueDepth.WithLabelValues("submitted").Set(float64(submitted))
	QueueDepth.WithLabelValues("failed").Set(float64(failed))
}

// RecordDrainCycle records a completed drain cycle.
func RecordDrainCycle(duration time.Duration, staleResets int) {
	DrainCycleDuration.Observe(duration.Seconds())
	DrainStaleResets.Add(float64(staleResets))
	DrainLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordDrainItem records the outcome of one drained row.
func RecordDrainItem(outcome string) {
	DrainItems.WithLabelValues(outcome).Inc()
}

// RecordJobExecution records a finished job execution.
func RecordJobExecution(jobType, status string, duration time.Duration) {
	JobExecutions.WithLabelValues(jobType, status).Inc()
	JobExecutionDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// RecordDispatchSkipped records a trigger firing that did not run.
func RecordDispatchSkipped(reason string) {
	JobDispatchSkipped.WithLabelValues(reason).Inc()
}

// RecordCandidate records a pipeline candidate outcome.
func RecordCandidate(jobType, outcome string) {
	Candidates.WithLabelValues(jobType, outcome).Inc()
}

// RecordUpstreamRequest records an outbound request. A status of 0 means
// the request never produced a response.
func RecordUpstreamRequest(service string, status int, duration time.Duration) {
	UpstreamRequestDuration.WithLabelValues(service, statusClass(status)).Observe(duration.Seconds())
}

func statusClass(status int) string {
	switch {
	case status == 0:
		return "error"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
