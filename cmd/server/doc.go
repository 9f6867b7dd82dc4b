// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

/*
Package main is the entry point for the Curator server.

Curator runs scheduled discovery and recommendation jobs against a movie/TV
catalog (TMDB), filters the candidates, removes anything already present in
a media library or already requested, and submits the rest to a
Jellyseerr/Overseerr request manager through a persistent, retrying queue.

# Application Architecture

The server runs under Suture v4 process supervision:

	RootSupervisor ("curator")
	├── DataSupervisor ("data-layer")
	│   ├── queue-drain (persistent request queue worker)
	│   └── metadata-cache-prune (expired catalog/rating cache rows)
	├── SchedulingSupervisor ("scheduling-layer")
	│   └── job-scheduler (cron triggers for enabled jobs)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (ops API, health probes, /metrics)

Startup order:

 1. Configuration: Koanf v2 with environment variables and config file
 2. Logging: zerolog with JSON/console output modes
 3. Database: DuckDB schema migrations, interrupted executions marked failed
 4. Upstream clients: catalog, request manager, optional OMDb and LLM, media servers
 5. Request queue: in-memory key set loaded from pending and fulfilled rows
 6. Jobs: executor registry, legacy job migration, scheduling of enabled jobs
 7. Supervisor Tree: drain worker, cache pruning, scheduler, HTTP server

# Configuration

Configuration is loaded via Koanf v2 (environment > config file > defaults).
Core environment variables:

	TMDB_API_KEY=<key>                  # required
	SEER_URL=http://jellyseerr:5055     # required
	SEER_API_KEY=<key>                  # required

	JELLYFIN_ENABLED=true
	JELLYFIN_URL=http://jellyfin:8096
	JELLYFIN_API_KEY=<key>
	PLEX_ENABLED=false
	PLEX_URL=http://plex:32400
	PLEX_TOKEN=<token>

	OMDB_ENABLED=false                  # secondary IMDb ratings
	LLM_ENABLED=false                   # OpenAI-compatible suggestions

	HTTP_PORT=8484
	DUCKDB_PATH=/data/curator.duckdb
	LOG_LEVEL=info
	LOG_FORMAT=json

See internal/config for the complete list.

# Signal Handling

On SIGINT or SIGTERM the supervisor tree is cancelled: the HTTP server
drains in-flight requests (10s timeout), the scheduler stops firing and the
drain worker finishes its current row. In-flight job executions are then
cancelled and awaited before the database is closed. Services that fail to
stop are reported.
*/
package main
