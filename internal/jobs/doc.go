// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package jobs owns persisted pipeline jobs: their definitions, cron triggers
// and execution lifecycle.
//
// The pieces are deliberately separate:
//
//   - Registry maps each job type to its Executor. The set of types is closed;
//     NewRegistry fails when a type is missing or unknown.
//   - Scheduler registers robfig/cron triggers keyed by job id. A trigger
//     only hands the job id to a dispatch function.
//   - Runner owns an execution: it refuses overlapping runs of the same job,
//     records ExecutionHistory, recovers executor panics and records metrics.
//   - Service is the CRUD surface used by the ops API and at startup.
//
// Each scheduled firing runs on a fresh context carrying its own correlation
// id and the configured execution timeout, so a slow or panicking job never
// stalls the cron loop or other jobs.
package jobs
