// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

/*
Package models defines the data structures shared across Curator.

Key Components:

  - CandidateItem: a catalog item proposed for request, before filtering and dedup
  - WatchedItem: a movie or episode read from a media server's watch history
  - JobDefinition / FilterConfig: persisted job configuration
  - ExecutionHistory / ExecutionResult: bounded per-run execution log
  - PendingRequest / FulfilledRequest: request queue rows and the canonical fulfilled store
  - APIResponse: envelope used by the ops HTTP API

Errors:

The error taxonomy (ErrValidation, ErrUpstreamUnavailable, ErrAuthRejected, ErrSkip,
ErrPoisonPayload, ErrRetryBudgetExhausted) lives here so that clients, stores and the
pipeline can classify failures with errors.Is without importing each other.
*/
package models
