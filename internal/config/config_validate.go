// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package config

import (
	"fmt"
	"strings"
	"time"
)

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"json": true, "console": true,
}

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateMediaServers(); err != nil {
		return err
	}

	if err := c.validateCatalog(); err != nil {
		return err
	}

	if err := c.validateSeer(); err != nil {
		return err
	}

	if err := c.validateRatings(); err != nil {
		return err
	}

	if err := c.validateLLM(); err != nil {
		return err
	}

	if err := c.validateQueue(); err != nil {
		return err
	}

	if err := c.validatePipeline(); err != nil {
		return err
	}

	if err := c.validateScheduler(); err != nil {
		return err
	}

	if err := c.validateLegacy(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateMediaServers validates every enabled Jellyfin, Emby and Plex server.
func (c *Config) validateMediaServers() error {
	groups := []struct {
		name    string
		servers []MediaServerConfig
	}{
		{"JELLYFIN", c.GetJellyfinServers()},
		{"EMBY", c.GetEmbyServers()},
		{"PLEX", c.GetPlexServers()},
	}

	for _, g := range groups {
		seen := make(map[string]bool, len(g.servers))
		for i, srv := range g.servers {
			field := fmt.Sprintf("%s server %d", g.name, i)
			if srv.URL == "" {
				return fmt.Errorf("%s: url is required", field)
			}
			if err := validateHTTPURL(srv.URL, field); err != nil {
				return fmt.Errorf("%s url is invalid: %w", field, err)
			}
			if srv.APIKey == "" {
				return fmt.Errorf("%s: api_key is required", field)
			}
			if seen[srv.ServerID] {
				return fmt.Errorf("%s: duplicate server_id %q", field, srv.ServerID)
			}
			seen[srv.ServerID] = true
		}
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if c.Catalog.APIKey == "" {
		return fmt.Errorf("TMDB_API_KEY is required")
	}
	if err := validateAPIBaseURL(c.Catalog.BaseURL, "TMDB_BASE_URL"); err != nil {
		return err
	}
	if c.Catalog.RateLimit < 0 {
		return fmt.Errorf("TMDB_RATE_LIMIT must not be negative")
	}
	if c.Catalog.RateLimit > 0 && c.Catalog.RateBurst < 1 {
		return fmt.Errorf("TMDB_RATE_BURST must be at least 1 when rate limiting is enabled")
	}
	return nil
}

func (c *Config) validateSeer() error {
	if c.Seer.URL == "" {
		return fmt.Errorf("SEER_URL is required")
	}
	if err := validateHTTPURL(c.Seer.URL, "SEER_URL"); err != nil {
		return fmt.Errorf("SEER_URL is invalid: %w", err)
	}
	if c.Seer.APIKey == "" {
		return fmt.Errorf("SEER_API_KEY is required")
	}
	if c.Seer.PageSize < 1 || c.Seer.PageSize > 1000 {
		return fmt.Errorf("SEER_PAGE_SIZE must be between 1 and 1000")
	}
	if c.Seer.SnapshotMaxAge < time.Minute {
		return fmt.Errorf("SEER_SNAPSHOT_MAX_AGE must be at least 1m")
	}
	return nil
}

// validateRatings validates the OMDb settings (only if enabled)
func (c *Config) validateRatings() error {
	if !c.Ratings.Enabled {
		return nil
	}
	if c.Ratings.APIKey == "" {
		return fmt.Errorf("OMDB_API_KEY is required when OMDB_ENABLED=true")
	}
	return validateAPIBaseURL(c.Ratings.BaseURL, "OMDB_BASE_URL")
}

// validateLLM validates the language model settings (only if enabled)
func (c *Config) validateLLM() error {
	if !c.LLM.Enabled {
		return nil
	}
	if err := validateAPIBaseURL(c.LLM.BaseURL, "LLM_BASE_URL"); err != nil {
		return err
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("LLM_MODEL is required when LLM_ENABLED=true")
	}
	if c.LLM.MaxTokens < 1 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.DrainInterval < time.Second {
		return fmt.Errorf("QUEUE_DRAIN_INTERVAL must be at least 1s")
	}
	if c.Queue.BatchSize < 1 {
		return fmt.Errorf("QUEUE_BATCH_SIZE must be positive")
	}
	if c.Queue.MaxRetries < 1 {
		return fmt.Errorf("QUEUE_MAX_RETRIES must be at least 1")
	}
	if c.Queue.StaleAfter < time.Minute {
		return fmt.Errorf("QUEUE_STALE_AFTER must be at least 1m")
	}
	if c.Queue.SeasonMode != SeasonModeAll && c.Queue.SeasonMode != SeasonModeExplicit {
		return fmt.Errorf("QUEUE_SEASON_MODE must be one of: all, explicit")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.MaxConcurrency < 1 {
		return fmt.Errorf("PIPELINE_MAX_CONCURRENCY must be at least 1")
	}
	if c.Pipeline.HistoryLimit < 1 {
		return fmt.Errorf("PIPELINE_HISTORY_LIMIT must be at least 1")
	}
	if c.Pipeline.MaxSimilarPerSeed < 1 {
		return fmt.Errorf("PIPELINE_MAX_SIMILAR_PER_SEED must be at least 1")
	}
	if c.Pipeline.SubmissionDelay < 0 {
		return fmt.Errorf("PIPELINE_SUBMISSION_DELAY must not be negative")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if c.Scheduler.Timezone != "" {
		if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
			return fmt.Errorf("SCHEDULER_TIMEZONE is invalid: %w", err)
		}
	}
	if c.Scheduler.ExecutionTimeout < time.Minute {
		return fmt.Errorf("SCHEDULER_EXECUTION_TIMEOUT must be at least 1m")
	}
	if c.Scheduler.HistoryRetention < 1 {
		return fmt.Errorf("SCHEDULER_HISTORY_RETENTION must be at least 1")
	}
	return nil
}

// validateLegacy validates the legacy job section (only if enabled).
// The cron expression itself is parsed when the job is migrated.
func (c *Config) validateLegacy() error {
	if !c.Legacy.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Legacy.Cron) == "" {
		return fmt.Errorf("LEGACY_CRON is required when LEGACY_ENABLED=true")
	}
	switch c.Legacy.MediaKind {
	case "movie", "tv", "both":
	default:
		return fmt.Errorf("LEGACY_MEDIA_KIND must be one of: movie, tv, both")
	}
	if c.Legacy.MaxResults < 1 || c.Legacy.MaxResults > 1000 {
		return fmt.Errorf("LEGACY_MAX_RESULTS must be between 1 and 1000")
	}
	switch c.Legacy.RatingSource {
	case "", "catalog", "external", "both":
	default:
		return fmt.Errorf("LEGACY_RATING_SOURCE must be one of: catalog, external, both")
	}
	return nil
}

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if !c.Server.RateLimitDisabled && c.Server.RateLimitRequests < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1 unless DISABLE_RATE_LIMIT is set")
	}
	return nil
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if err := c.validateLogLevel(); err != nil {
		return err
	}
	return c.validateLogFormat()
}

// validateLogLevel validates the log level configuration
func (c *Config) validateLogLevel() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	return nil
}

// validateLogFormat validates the log format configuration
func (c *Config) validateLogFormat() error {
	if c.Logging.Format == "" {
		return nil
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
