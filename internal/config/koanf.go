// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/curator/config.yaml",
	"/etc/curator/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			BaseURL:   "https://api.themoviedb.org/3",
			Language:  "en-US",
			RateLimit: 20,
			RateBurst: 10,
			CacheTTL:  24 * time.Hour,
		},
		Seer: SeerConfig{
			PageSize:       100,
			SnapshotMaxAge: 15 * time.Minute,
		},
		Ratings: RatingsConfig{
			Enabled:  false,
			BaseURL:  "https://www.omdbapi.com/",
			CacheTTL: 7 * 24 * time.Hour,
		},
		LLM: LLMConfig{
			Enabled:     false, // opt-in, only used by jobs with use_llm
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			MaxTokens:   1024,
			Temperature: 0.7,
		},
		Upstream: UpstreamConfig{
			Timeout:        10 * time.Second,
			BreakerEnabled: true,
		},
		Queue: QueueConfig{
			DrainInterval: time.Minute,
			BatchSize:     20,
			MaxRetries:    5,
			StaleAfter:    10 * time.Minute,
			SeasonMode:    SeasonModeAll,
		},
		Pipeline: PipelineConfig{
			MaxConcurrency:    4,
			HistoryLimit:      50,
			MaxSimilarPerSeed: 20,
			SubmissionDelay:   0,
			LLMSuggestions:    20,
		},
		Scheduler: SchedulerConfig{
			Timezone:         "UTC",
			ExecutionTimeout: 30 * time.Minute,
			HistoryRetention: 100,
		},
		Legacy: LegacyConfig{
			Enabled:      false,
			Cron:         "0 */6 * * *",
			MediaKind:    "both",
			MaxResults:   20,
			RatingSource: "catalog",
		},
		Database: DatabaseConfig{
			Path:      "/data/curator.duckdb",
			MaxMemory: "512MB",
			Threads:   0,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8484,
			Timeout: 30 * time.Second,

			RateLimitRequests: 120,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// TMDB_API_KEY -> catalog.api_key, SEER_URL -> seer.url, ...
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when they arrive as strings.
var sliceConfigPaths = []string{
	"legacy.user_ids",
	"legacy.languages",
	"legacy.exclude_genres",
	"legacy.exclude_providers",
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to config paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Media servers (single-server shorthand)
	"jellyfin_enabled":   "jellyfin.enabled",
	"jellyfin_server_id": "jellyfin.server_id",
	"jellyfin_url":       "jellyfin.url",
	"jellyfin_api_key":   "jellyfin.api_key",
	"emby_enabled":       "emby.enabled",
	"emby_server_id":     "emby.server_id",
	"emby_url":           "emby.url",
	"emby_api_key":       "emby.api_key",
	"plex_enabled":       "plex.enabled",
	"plex_server_id":     "plex.server_id",
	"plex_url":           "plex.url",
	"plex_token":         "plex.api_key",

	// Catalog
	"tmdb_api_key":    "catalog.api_key",
	"tmdb_base_url":   "catalog.base_url",
	"tmdb_language":   "catalog.language",
	"tmdb_rate_limit": "catalog.rate_limit",
	"tmdb_rate_burst": "catalog.rate_burst",
	"tmdb_cache_ttl":  "catalog.cache_ttl",

	// Request management
	"seer_url":               "seer.url",
	"seer_api_key":           "seer.api_key",
	"seer_page_size":         "seer.page_size",
	"seer_snapshot_max_age":  "seer.snapshot_max_age",
	"seer_is_4k":             "seer.is_4k",
	"seer_anime_server_id":   "seer.anime_server_id",
	"seer_anime_profile_id":  "seer.anime_profile_id",
	"seer_anime_root_folder": "seer.anime_root_folder",

	// Secondary ratings
	"omdb_enabled":   "ratings.enabled",
	"omdb_api_key":   "ratings.api_key",
	"omdb_base_url":  "ratings.base_url",
	"omdb_cache_ttl": "ratings.cache_ttl",

	// Language model
	"llm_enabled":     "llm.enabled",
	"llm_base_url":    "llm.base_url",
	"llm_api_key":     "llm.api_key",
	"llm_model":       "llm.model",
	"llm_max_tokens":  "llm.max_tokens",
	"llm_temperature": "llm.temperature",

	"upstream_timeout":         "upstream.timeout",
	"upstream_breaker_enabled": "upstream.breaker_enabled",

	// Queue
	"queue_drain_interval": "queue.drain_interval",
	"queue_batch_size":     "queue.batch_size",
	"queue_max_retries":    "queue.max_retries",
	"queue_stale_after":    "queue.stale_after",
	"queue_season_mode":    "queue.season_mode",

	// Pipeline
	"pipeline_max_concurrency":      "pipeline.max_concurrency",
	"pipeline_history_limit":        "pipeline.history_limit",
	"pipeline_max_similar_per_seed": "pipeline.max_similar_per_seed",
	"pipeline_submission_delay":     "pipeline.submission_delay",
	"pipeline_llm_suggestions":      "pipeline.llm_suggestions",

	// Scheduler
	"tz":                          "scheduler.timezone",
	"scheduler_timezone":          "scheduler.timezone",
	"scheduler_execution_timeout": "scheduler.execution_timeout",
	"scheduler_history_retention": "scheduler.history_retention",

	// Legacy single-job configuration
	"legacy_enabled":           "legacy.enabled",
	"legacy_cron":              "legacy.cron",
	"legacy_media_kind":        "legacy.media_kind",
	"legacy_max_results":       "legacy.max_results",
	"legacy_user_ids":          "legacy.user_ids",
	"legacy_use_llm":           "legacy.use_llm",
	"legacy_include_no_rating": "legacy.include_no_rating",
	"legacy_rating_source":     "legacy.rating_source",
	"legacy_min_rating":        "legacy.min_rating",
	"legacy_min_votes":         "legacy.min_votes",
	"legacy_languages":         "legacy.languages",
	"legacy_exclude_genres":    "legacy.exclude_genres",
	"legacy_min_year":          "legacy.min_year",
	"legacy_min_runtime":       "legacy.min_runtime",
	"legacy_exclude_providers": "legacy.exclude_providers",
	"legacy_region":            "legacy.region",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Server
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",

	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_requests",
	"disable_rate_limit":  "server.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - TMDB_API_KEY -> catalog.api_key
//   - PLEX_TOKEN -> plex.api_key
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

// WatchConfigFile calls callback whenever the file at path changes.
// The caller is responsible for synchronizing access to a reloaded Config.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
