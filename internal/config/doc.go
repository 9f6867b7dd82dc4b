// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

/*
Package config provides centralized configuration management for Curator.

Configuration is loaded with Koanf v2 from three layers, later layers
overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: $CONFIG_PATH, ./config.yaml, /etc/curator/config.yaml
 3. Environment variables, through an explicit name-to-path map

Only mapped environment variables are read; anything else in the process
environment is ignored.

# Sections

  - jellyfin_servers / emby_servers / plex_servers: media servers whose
    watch history and libraries drive recommendation jobs and the
    "already downloaded" index. The single-server sections jellyfin, emby
    and plex are a shorthand used when the arrays are empty.
  - catalog: TMDB v3 API key, base URL, language, rate limit and
    metadata cache TTL.
  - seer: Jellyseerr/Overseerr URL, API key, snapshot page size and
    staleness window, anime overrides.
  - ratings: optional OMDb secondary rating source.
  - llm: optional OpenAI-compatible recommender.
  - upstream: timeout and circuit breaker toggle shared by all clients.
  - queue: drain interval, batch size, retry budget, stale reset window,
    TV season mode.
  - pipeline: fan-out bound, history limit, similar-per-seed cap,
    submission delay.
  - scheduler: cron timezone, execution timeout, execution history retention.
  - legacy: the pre-jobs static recommendation job, migrated on first start.
  - database, server, logging.

# Example

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal().Err(err).Msg("Failed to load config")
	}
	for _, srv := range cfg.GetJellyfinServers() {
	    // ...
	}

# Environment Variables

	TMDB_API_KEY, SEER_URL, SEER_API_KEY     required
	JELLYFIN_URL, JELLYFIN_API_KEY, ...      single-server shorthand
	PLEX_URL, PLEX_TOKEN
	OMDB_ENABLED, OMDB_API_KEY
	LLM_ENABLED, LLM_BASE_URL, LLM_API_KEY, LLM_MODEL
	QUEUE_DRAIN_INTERVAL, QUEUE_BATCH_SIZE, QUEUE_MAX_RETRIES, QUEUE_SEASON_MODE
	PIPELINE_MAX_CONCURRENCY, PIPELINE_SUBMISSION_DELAY
	TZ / SCHEDULER_TIMEZONE
	LEGACY_ENABLED, LEGACY_CRON, LEGACY_USER_IDS, ...
	DUCKDB_PATH, HTTP_PORT, LOG_LEVEL, LOG_FORMAT

See envMappings in koanf.go for the complete list.
*/
package config
