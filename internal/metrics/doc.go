// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

/*
Package metrics provides Prometheus metrics for Curator.

All collectors are registered with the default registry through promauto and
exposed by the ops API at /metrics:

	curl http://localhost:8484/metrics

# Available Metrics

Request queue:
  - queue_admissions_total{kind,result}
  - queue_depth{status}
  - drain_cycle_duration_seconds
  - drain_items_total{outcome}
  - drain_stale_resets_total
  - drain_last_success_timestamp

Jobs and pipeline:
  - job_executions_total{job_type,status}
  - job_execution_duration_seconds{job_type}
  - job_dispatch_skipped_total{reason}
  - jobs_scheduled
  - pipeline_candidates_total{job_type,outcome}

Upstream clients:
  - upstream_request_duration_seconds{service,status_class}
  - circuit_breaker_state{name}: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total{name,result}
  - circuit_breaker_consecutive_failures{name}
  - circuit_breaker_state_transitions_total{name,from_state,to_state}

Storage and API:
  - duckdb_query_duration_seconds{operation,table}
  - duckdb_query_errors_total{operation,table}
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}

# Example PromQL

	# Drain failures per hour
	sum(increase(drain_items_total{outcome=~"failed|poison"}[1h]))

	# Open breakers
	circuit_breaker_state == 2
*/
package metrics
