// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package config

import (
	"fmt"
	"time"
	_ "time/tzdata" // scheduler timezones resolve in minimal containers

	"github.com/tomtom215/curator/internal/models"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any mapped setting
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Jellyfin MediaServerConfig `koanf:"jellyfin"` // Optional: single server shorthand, use JellyfinServers for several
	Emby     MediaServerConfig `koanf:"emby"`
	Plex     MediaServerConfig `koanf:"plex"`

	Catalog   CatalogConfig   `koanf:"catalog"`
	Seer      SeerConfig      `koanf:"seer"`
	Ratings   RatingsConfig   `koanf:"ratings"`
	LLM       LLMConfig       `koanf:"llm"`
	Upstream  UpstreamConfig  `koanf:"upstream"`
	Queue     QueueConfig     `koanf:"queue"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Legacy    LegacyConfig    `koanf:"legacy"`
	Database  DatabaseConfig  `koanf:"database"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`

	// If arrays are configured they take precedence over the single-server sections.
	JellyfinServers []MediaServerConfig `koanf:"jellyfin_servers"`
	EmbyServers     []MediaServerConfig `koanf:"emby_servers"`
	PlexServers     []MediaServerConfig `koanf:"plex_servers"`
}

// MediaServerConfig holds connection settings for one Jellyfin, Emby or Plex server.
// For Plex, APIKey carries the X-Plex-Token.
type MediaServerConfig struct {
	Enabled  bool   `koanf:"enabled"`
	ServerID string `koanf:"server_id"` // Auto-generated from the URL if empty
	URL      string `koanf:"url"`
	APIKey   string `koanf:"api_key"`
}

// CatalogConfig configures the TMDB v3 client.
type CatalogConfig struct {
	APIKey    string        `koanf:"api_key"`
	BaseURL   string        `koanf:"base_url"`
	Language  string        `koanf:"language"`
	RateLimit float64       `koanf:"rate_limit"` // requests per second, 0 disables limiting
	RateBurst int           `koanf:"rate_burst"`
	CacheTTL  time.Duration `koanf:"cache_ttl"` // metadata_cache entry lifetime
}

// SeerConfig configures the request-management (Jellyseerr/Overseerr) client.
//
// The anime overrides are applied to submissions whose item is Japanese
// animation. Zero values leave the server defaults in place.
type SeerConfig struct {
	URL             string        `koanf:"url"`
	APIKey          string        `koanf:"api_key"`
	PageSize        int           `koanf:"page_size"`
	SnapshotMaxAge  time.Duration `koanf:"snapshot_max_age"`
	Is4K            bool          `koanf:"is_4k"`
	AnimeServerID   int           `koanf:"anime_server_id"`
	AnimeProfileID  int           `koanf:"anime_profile_id"`
	AnimeRootFolder string        `koanf:"anime_root_folder"`
}

// RatingsConfig configures the OMDb secondary rating source.
type RatingsConfig struct {
	Enabled  bool          `koanf:"enabled"`
	APIKey   string        `koanf:"api_key"`
	BaseURL  string        `koanf:"base_url"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// LLMConfig configures the OpenAI-compatible recommender used by use_llm jobs.
type LLMConfig struct {
	Enabled     bool    `koanf:"enabled"`
	BaseURL     string  `koanf:"base_url"`
	APIKey      string  `koanf:"api_key"`
	Model       string  `koanf:"model"`
	MaxTokens   int     `koanf:"max_tokens"`
	Temperature float64 `koanf:"temperature"`
}

// UpstreamConfig holds settings shared by every outbound HTTP client.
type UpstreamConfig struct {
	Timeout        time.Duration `koanf:"timeout"`
	BreakerEnabled bool          `koanf:"breaker_enabled"`
}

// Season modes for TV submissions.
const (
	SeasonModeAll      = "all"
	SeasonModeExplicit = "explicit"
)

// QueueConfig configures the persistent request queue and its drain worker.
type QueueConfig struct {
	DrainInterval time.Duration `koanf:"drain_interval"`
	BatchSize     int           `koanf:"batch_size"`
	MaxRetries    int           `koanf:"max_retries"`
	StaleAfter    time.Duration `koanf:"stale_after"` // submitting rows older than this are reset to queued
	SeasonMode    string        `koanf:"season_mode"` // "all" or "explicit"
}

// PipelineConfig bounds candidate generation.
type PipelineConfig struct {
	MaxConcurrency    int           `koanf:"max_concurrency"`
	HistoryLimit      int           `koanf:"history_limit"`
	MaxSimilarPerSeed int           `koanf:"max_similar_per_seed"`
	SubmissionDelay   time.Duration `koanf:"submission_delay"`
	LLMSuggestions    int           `koanf:"llm_suggestions"`
}

// SchedulerConfig configures the cron-based job scheduler.
type SchedulerConfig struct {
	Timezone         string        `koanf:"timezone"`
	ExecutionTimeout time.Duration `koanf:"execution_timeout"`
	HistoryRetention int           `koanf:"history_retention"` // executions kept per job
}

// Location resolves Timezone, falling back to UTC.
func (s SchedulerConfig) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LegacyConfig describes the single recommendation job that older
// deployments configured statically. On first start it is migrated into
// the jobs table as the system job.
type LegacyConfig struct {
	Enabled          bool     `koanf:"enabled"`
	Cron             string   `koanf:"cron"`
	MediaKind        string   `koanf:"media_kind"`
	MaxResults       int      `koanf:"max_results"`
	UserIDs          []string `koanf:"user_ids"`
	UseLLM           bool     `koanf:"use_llm"`
	IncludeNoRating  bool     `koanf:"include_no_rating"`
	RatingSource     string   `koanf:"rating_source"`
	MinRating        float64  `koanf:"min_rating"`
	MinVotes         int      `koanf:"min_votes"`
	Languages        []string `koanf:"languages"`
	ExcludeGenres    []int    `koanf:"exclude_genres"`
	MinYear          int      `koanf:"min_year"`
	MinRuntime       int      `koanf:"min_runtime"`
	ExcludeProviders []int    `koanf:"exclude_providers"`
	Region           string   `koanf:"region"`
}

// Filters converts the legacy filter fields into a job filter configuration.
func (l *LegacyConfig) Filters() models.FilterConfig {
	return models.FilterConfig{
		IncludeNoRating:  l.IncludeNoRating,
		RatingSource:     models.RatingSource(l.RatingSource),
		MinRating:        l.MinRating,
		MinVotes:         l.MinVotes,
		Languages:        l.Languages,
		ExcludeGenres:    l.ExcludeGenres,
		MinYear:          l.MinYear,
		MinRuntime:       l.MinRuntime,
		ExcludeProviders: l.ExcludeProviders,
		Region:           l.Region,
	}
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// ServerConfig holds the ops HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	CORSOrigins       []string `koanf:"cors_origins"`        // empty disables cross-origin access
	RateLimitRequests int      `koanf:"rate_limit_requests"` // per client IP per minute
	RateLimitDisabled bool     `koanf:"rate_limit_disabled"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// GetJellyfinServers returns the effective list of enabled Jellyfin servers.
func (c *Config) GetJellyfinServers() []MediaServerConfig {
	return effectiveServers("jellyfin", c.JellyfinServers, c.Jellyfin)
}

// GetEmbyServers returns the effective list of enabled Emby servers.
func (c *Config) GetEmbyServers() []MediaServerConfig {
	return effectiveServers("emby", c.EmbyServers, c.Emby)
}

// GetPlexServers returns the effective list of enabled Plex servers.
func (c *Config) GetPlexServers() []MediaServerConfig {
	return effectiveServers("plex", c.PlexServers, c.Plex)
}

// HasAnyMediaServer reports whether at least one media server is configured.
func (c *Config) HasAnyMediaServer() bool {
	return len(c.GetJellyfinServers())+len(c.GetEmbyServers())+len(c.GetPlexServers()) > 0
}

// effectiveServers prefers the array form; otherwise the single config is
// used when enabled. Missing server ids are generated from the URL.
func effectiveServers(platform string, list []MediaServerConfig, single MediaServerConfig) []MediaServerConfig {
	if len(list) == 0 {
		if !single.Enabled {
			return nil
		}
		list = []MediaServerConfig{single}
	}

	var enabled []MediaServerConfig
	for i := range list {
		if !list[i].Enabled {
			continue
		}
		srv := list[i]
		if srv.ServerID == "" {
			srv.ServerID = GenerateServerID(platform, srv.URL)
		}
		enabled = append(enabled, srv)
	}
	return enabled
}

// GenerateServerID creates a deterministic server ID from platform and URL.
// Format: {platform}-{hash}.
func GenerateServerID(platform, url string) string {
	if url == "" {
		return platform + "-default"
	}

	hash := uint32(0)
	for _, c := range url {
		hash = hash*31 + uint32(c)
	}

	return fmt.Sprintf("%s-%08x", platform, hash)
}

// Load reads configuration from defaults, an optional config file and the
// environment. See LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
