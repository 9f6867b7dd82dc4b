// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package database

// initialSchema creates every table. Row ids come from sequences; execution
// ids are UUID strings assigned by the runner.
var initialSchema = []string{
	`CREATE SEQUENCE IF NOT EXISTS jobs_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id BIGINT PRIMARY KEY DEFAULT nextval('jobs_id_seq'),
		name TEXT NOT NULL,
		job_type TEXT NOT NULL,
		media_type TEXT NOT NULL,
		filters TEXT NOT NULL DEFAULT '{}',
		schedule_type TEXT NOT NULL,
		schedule_value TEXT NOT NULL,
		max_results INTEGER NOT NULL,
		user_ids TEXT NOT NULL DEFAULT '[]',
		use_llm BOOLEAN NOT NULL DEFAULT false,
		enabled BOOLEAN NOT NULL DEFAULT true,
		is_system BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS job_executions (
		id TEXT PRIMARY KEY,
		job_id BIGINT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		status TEXT NOT NULL,
		results_count INTEGER NOT NULL DEFAULT 0,
		requested_count INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		trigger_source TEXT NOT NULL
	)`,

	`CREATE SEQUENCE IF NOT EXISTS pending_requests_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS pending_requests (
		id BIGINT PRIMARY KEY DEFAULT nextval('pending_requests_id_seq'),
		media_type TEXT NOT NULL,
		catalog_id INTEGER NOT NULL,
		payload BLOB NOT NULL,
		status TEXT NOT NULL,
		retry_count INTEGER NOT NULL DEFAULT 0,
		next_attempt_at TIMESTAMP NOT NULL,
		last_error TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,

	`CREATE SEQUENCE IF NOT EXISTS requests_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS requests (
		id BIGINT PRIMARY KEY DEFAULT nextval('requests_id_seq'),
		media_type TEXT NOT NULL,
		catalog_id INTEGER NOT NULL,
		title TEXT,
		source_id INTEGER,
		source_title TEXT,
		requester_id TEXT,
		requester_name TEXT,
		rationale TEXT,
		anime BOOLEAN NOT NULL DEFAULT false,
		job_id BIGINT,
		requested_at TIMESTAMP NOT NULL,
		UNIQUE (media_type, catalog_id)
	)`,

	`CREATE TABLE IF NOT EXISTS metadata_cache (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
}

// lookupIndexes covers the hot read paths. Indexed columns are never
// updated in place.
var lookupIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_job_executions_job ON job_executions (job_id, started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_requests_key ON pending_requests (media_type, catalog_id)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_requested_at ON requests (requested_at)`,
}
