// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

/*
Package database persists Curator's state in DuckDB.

Tables:
  - jobs: job definitions, filters and user ids stored as JSON text
  - job_executions: bounded per-job execution history
  - pending_requests: the durable request queue
  - requests: canonical store of fulfilled requests, unique per (media_type, catalog_id)
  - metadata_cache: catalog and rating lookups with an expiry
  - schema_migrations: applied migration versions

The schema is created by versioned, append-only migrations (see migrations.go).
Each consumer gets a small store type that implements the interface the
consuming package declares:

	db, err := database.New(&cfg.Database)
	jobs.NewService(db.Jobs(), db.Executions(), registry, cfg.Scheduler)
	queue.New(db.Queue(), db.Requests(), ...)

Every store method applies a 30 second deadline when the caller's context has
none and records its duration in the curator_db_query_duration_seconds
histogram.

Thread Safety:

DB is safe for concurrent use. DuckDB serializes conflicting writes with
optimistic concurrency; writes that lose a conflict are retried a few times
before the error is returned.
*/
package database
