// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

/*
Package upstream is the shared HTTP JSON client used for every external
collaborator: media servers, the catalog, the request-management service,
the ratings provider and the language model.

Each Client wraps one base URL with:

  - a request timeout (10s default)
  - an optional token-bucket rate limiter (golang.org/x/time/rate)
  - a sony/gobreaker circuit breaker that trips at 60% failures over at least
    10 requests and exports its state to Prometheus
  - Retry-After aware retries of 429 responses

Non-2xx responses are returned as *models.UpstreamError, which unwraps to
models.ErrAuthRejected for 401/403 and models.ErrUpstreamUnavailable
otherwise.
*/
package upstream
