// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

/*
Package api serves Curator's ops HTTP API on a chi router.

The API manages job definitions (CRUD, toggle, run-now, execution history),
inspects the request queue, triggers a drain cycle on demand and lists the
fulfilled requests. Read-only lookups pass through to the collaborators:
catalog genres, languages, regions and providers for writing job filters,
request totals on the request manager, and the libraries of each media
server. Prometheus metrics are exposed at /metrics.

Every JSON response uses the models.APIResponse envelope:

	{"status": "success", "data": {...}, "metadata": {"timestamp": "...", "query_time_ms": 3}}
	{"status": "error", "data": null, "metadata": {...}, "error": {"code": "NOT_FOUND", "message": "..."}}

Domain errors map to status codes: validation failures are 400
VALIDATION_ERROR, missing rows 404, a job that is already running or an
overlapping drain 409. Upstream failures are 502 UPSTREAM_ERROR. Storage
failures are 500. Both are logged, never echoed.

Each request gets a correlation id from X-Request-ID (or a new one), which
flows into every log line written while serving it. Routes under /api/v1
except the health probes are rate limited per client IP with go-chi/httprate.
*/
package api
