// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv empties the process environment for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	saved := os.Environ()
	os.Clearenv()
	t.Cleanup(func() {
		os.Clearenv()
		for _, kv := range saved {
			if k, v, ok := strings.Cut(kv, "="); ok {
				os.Setenv(k, v)
			}
		}
	})
}

// setRequiredEnv sets the minimum environment for a valid configuration.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	os.Setenv("TMDB_API_KEY", "tmdb-test-key")
	os.Setenv("SEER_URL", "http://seer.local:5055")
	os.Setenv("SEER_API_KEY", "seer-test-key")
}

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Catalog.BaseURL != "https://api.themoviedb.org/3" {
		t.Errorf("Catalog.BaseURL = %q", cfg.Catalog.BaseURL)
	}
	if cfg.Catalog.CacheTTL != 24*time.Hour {
		t.Errorf("Catalog.CacheTTL = %v, want 24h", cfg.Catalog.CacheTTL)
	}
	if cfg.Upstream.Timeout != 10*time.Second {
		t.Errorf("Upstream.Timeout = %v, want 10s", cfg.Upstream.Timeout)
	}
	if !cfg.Upstream.BreakerEnabled {
		t.Error("Upstream.BreakerEnabled should be true by default")
	}

	// Queue defaults
	if cfg.Queue.MaxRetries != 5 {
		t.Errorf("Queue.MaxRetries = %d, want 5", cfg.Queue.MaxRetries)
	}
	if cfg.Queue.StaleAfter != 10*time.Minute {
		t.Errorf("Queue.StaleAfter = %v, want 10m", cfg.Queue.StaleAfter)
	}
	if cfg.Queue.SeasonMode != SeasonModeAll {
		t.Errorf("Queue.SeasonMode = %q, want all", cfg.Queue.SeasonMode)
	}

	if cfg.Seer.SnapshotMaxAge != 15*time.Minute {
		t.Errorf("Seer.SnapshotMaxAge = %v, want 15m", cfg.Seer.SnapshotMaxAge)
	}
	if cfg.Ratings.Enabled || cfg.LLM.Enabled || cfg.Legacy.Enabled {
		t.Error("optional integrations should be disabled by default")
	}
	if cfg.Database.Path != "/data/curator.duckdb" {
		t.Errorf("Database.Path = %q, want /data/curator.duckdb", cfg.Database.Path)
	}
	if cfg.Server.Port != 8484 {
		t.Errorf("Server.Port = %d, want 8484", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

// TestEnvTransformFunc verifies environment variable name transformations
func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"TMDB_API_KEY", "catalog.api_key"},
		{"SEER_URL", "seer.url"},
		{"SEER_SNAPSHOT_MAX_AGE", "seer.snapshot_max_age"},
		{"PLEX_TOKEN", "plex.api_key"},
		{"JELLYFIN_URL", "jellyfin.url"},
		{"OMDB_ENABLED", "ratings.enabled"},
		{"LLM_MODEL", "llm.model"},
		{"QUEUE_MAX_RETRIES", "queue.max_retries"},
		{"PIPELINE_SUBMISSION_DELAY", "pipeline.submission_delay"},
		{"TZ", "scheduler.timezone"},
		{"LEGACY_USER_IDS", "legacy.user_ids"},
		{"DUCKDB_PATH", "database.path"},
		{"HTTP_PORT", "server.port"},
		{"LOG_LEVEL", "logging.level"},
		{"log_format", "logging.format"},

		// Unknown (should return empty)
		{"RANDOM_VAR", ""},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := envTransformFunc(tt.input); result != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

// TestFindConfigFile verifies config file discovery
func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	clearEnv(t)

	t.Run("no config file exists", func(t *testing.T) {
		if result := findConfigFile(); result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})

	t.Run("config.yaml exists", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("server: {}"), 0o600); err != nil {
			t.Fatalf("Failed to create config file: %v", err)
		}
		defer os.Remove(configPath)

		if result := findConfigFile(); result != "config.yaml" {
			t.Errorf("findConfigFile() = %q, want config.yaml", result)
		}
	})

	t.Run("CONFIG_PATH env var takes precedence", func(t *testing.T) {
		customPath := filepath.Join(tmpDir, "custom.yaml")
		if err := os.WriteFile(customPath, []byte("server: {}"), 0o600); err != nil {
			t.Fatalf("Failed to create custom config file: %v", err)
		}
		os.Setenv(ConfigPathEnvVar, customPath)
		defer os.Unsetenv(ConfigPathEnvVar)

		if result := findConfigFile(); result != customPath {
			t.Errorf("findConfigFile() = %q, want %q", result, customPath)
		}
	})

	t.Run("CONFIG_PATH env var with non-existent file", func(t *testing.T) {
		os.Setenv(ConfigPathEnvVar, "/non/existent/config.yaml")
		defer os.Unsetenv(ConfigPathEnvVar)

		if result := findConfigFile(); result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})
}

// TestLoadWithKoanfEnvVars tests loading configuration from environment variables
func TestLoadWithKoanfEnvVars(t *testing.T) {
	t.Chdir(t.TempDir())
	clearEnv(t)
	setRequiredEnv(t)

	os.Setenv("HTTP_PORT", "9000")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("QUEUE_BATCH_SIZE", "50")
	os.Setenv("PIPELINE_SUBMISSION_DELAY", "2s")
	os.Setenv("LEGACY_USER_IDS", "alice, bob ,,carol")
	os.Setenv("LEGACY_EXCLUDE_PROVIDERS", "8,337")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Catalog.APIKey != "tmdb-test-key" {
		t.Errorf("Catalog.APIKey = %q", cfg.Catalog.APIKey)
	}
	if cfg.Seer.URL != "http://seer.local:5055" {
		t.Errorf("Seer.URL = %q", cfg.Seer.URL)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Queue.BatchSize != 50 {
		t.Errorf("Queue.BatchSize = %d, want 50", cfg.Queue.BatchSize)
	}
	if cfg.Pipeline.SubmissionDelay != 2*time.Second {
		t.Errorf("Pipeline.SubmissionDelay = %v, want 2s", cfg.Pipeline.SubmissionDelay)
	}
	if got := cfg.Legacy.UserIDs; len(got) != 3 || got[0] != "alice" || got[1] != "bob" || got[2] != "carol" {
		t.Errorf("Legacy.UserIDs = %v, want [alice bob carol]", got)
	}
	if got := cfg.Legacy.ExcludeProviders; len(got) != 2 || got[0] != 8 || got[1] != 337 {
		t.Errorf("Legacy.ExcludeProviders = %v, want [8 337]", got)
	}

	// Defaults are still applied for unset values
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0 (default)", cfg.Server.Host)
	}
	if cfg.Queue.MaxRetries != 5 {
		t.Errorf("Queue.MaxRetries = %d, want 5 (default)", cfg.Queue.MaxRetries)
	}
}

// TestLoadWithKoanfConfigFile tests loading configuration from a YAML file
func TestLoadWithKoanfConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	clearEnv(t)

	configContent := `
catalog:
  api_key: "file-tmdb-key"
seer:
  url: "https://requests.example.com"
  api_key: "file-seer-key"
  anime_profile_id: 7
jellyfin_servers:
  - enabled: true
    url: "http://jellyfin-a:8096"
    api_key: "key-a"
  - enabled: true
    server_id: "living-room"
    url: "http://jellyfin-b:8096"
    api_key: "key-b"
  - enabled: false
    url: "http://jellyfin-c:8096"
    api_key: "key-c"
queue:
  season_mode: explicit
server:
  port: 8888
logging:
  level: "warn"
`
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}
	os.Setenv(ConfigPathEnvVar, configPath)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Seer.AnimeProfileID != 7 {
		t.Errorf("Seer.AnimeProfileID = %d, want 7", cfg.Seer.AnimeProfileID)
	}
	if cfg.Queue.SeasonMode != SeasonModeExplicit {
		t.Errorf("Queue.SeasonMode = %q, want explicit", cfg.Queue.SeasonMode)
	}
	if cfg.Server.Port != 8888 {
		t.Errorf("Server.Port = %d, want 8888", cfg.Server.Port)
	}

	servers := cfg.GetJellyfinServers()
	if len(servers) != 2 {
		t.Fatalf("GetJellyfinServers() returned %d servers, want 2", len(servers))
	}
	if !strings.HasPrefix(servers[0].ServerID, "jellyfin-") {
		t.Errorf("generated ServerID = %q, want jellyfin- prefix", servers[0].ServerID)
	}
	if servers[1].ServerID != "living-room" {
		t.Errorf("ServerID = %q, want living-room", servers[1].ServerID)
	}

	if cfg.Database.Path != "/data/curator.duckdb" {
		t.Errorf("Database.Path = %q, want default", cfg.Database.Path)
	}
}

// TestLoadWithKoanfEnvOverridesFile tests that env vars override config file
func TestLoadWithKoanfEnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	clearEnv(t)

	configContent := `
catalog:
  api_key: "file-tmdb-key"
seer:
  url: "http://seer.local:5055"
  api_key: "file-seer-key"
server:
  port: 8888
logging:
  level: "warn"
`
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}
	os.Setenv(ConfigPathEnvVar, configPath)
	os.Setenv("HTTP_PORT", "9999")
	os.Setenv("LOG_LEVEL", "error")
	os.Setenv("DUCKDB_PATH", "/custom/db.duckdb")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Catalog.APIKey != "file-tmdb-key" {
		t.Errorf("Catalog.APIKey = %q, want file-tmdb-key (from file)", cfg.Catalog.APIKey)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999 (env override)", cfg.Server.Port)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want error (env override)", cfg.Logging.Level)
	}
	if cfg.Database.Path != "/custom/db.duckdb" {
		t.Errorf("Database.Path = %q, want /custom/db.duckdb (env override)", cfg.Database.Path)
	}
}

// TestLoadWithKoanfValidation tests that validation runs after loading
func TestLoadWithKoanfValidation(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		errMsg  string
	}{
		{
			name:    "missing TMDB key",
			envVars: map[string]string{"SEER_URL": "http://seer:5055", "SEER_API_KEY": "k"},
			errMsg:  "TMDB_API_KEY is required",
		},
		{
			name:    "missing seer url",
			envVars: map[string]string{"TMDB_API_KEY": "k", "SEER_API_KEY": "k"},
			errMsg:  "SEER_URL is required",
		},
		{
			name: "plex enabled without token",
			envVars: map[string]string{
				"TMDB_API_KEY": "k", "SEER_URL": "http://seer:5055", "SEER_API_KEY": "k",
				"PLEX_ENABLED": "true", "PLEX_URL": "http://plex:32400",
			},
			errMsg: "api_key is required",
		},
		{
			name: "invalid season mode",
			envVars: map[string]string{
				"TMDB_API_KEY": "k", "SEER_URL": "http://seer:5055", "SEER_API_KEY": "k",
				"QUEUE_SEASON_MODE": "some",
			},
			errMsg: "QUEUE_SEASON_MODE",
		},
		{
			name: "unknown timezone",
			envVars: map[string]string{
				"TMDB_API_KEY": "k", "SEER_URL": "http://seer:5055", "SEER_API_KEY": "k",
				"TZ": "Mars/Olympus_Mons",
			},
			errMsg: "SCHEDULER_TIMEZONE is invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			clearEnv(t)
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			_, err := LoadWithKoanf()
			if err == nil {
				t.Fatal("LoadWithKoanf() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("LoadWithKoanf() error = %q, want it to contain %q", err.Error(), tt.errMsg)
			}
		})
	}
}

// TestProcessSliceFields verifies YAML lists are left untouched
func TestProcessSliceFields_FileList(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)
	clearEnv(t)
	setRequiredEnv(t)

	configPath := filepath.Join(tmpDir, "config.yaml")
	content := "legacy:\n  languages:\n    - en\n    - ja\n"
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if len(cfg.Legacy.Languages) != 2 || cfg.Legacy.Languages[1] != "ja" {
		t.Errorf("Legacy.Languages = %v, want [en ja]", cfg.Legacy.Languages)
	}
}
