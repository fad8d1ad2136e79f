// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for inkwell.
//
// Configuration is TOML with sensible defaults, environment variable
// overrides, and validation with clamping.
//
// File location: ~/.inkwell/config.toml (overridable with INKWELL_CONFIG).
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete inkwell configuration.
type Config struct {
	// Version of the config schema, for future migrations.
	Version string `toml:"version"`

	// Provider configuration (language-model backend)
	Provider ProviderConfig `toml:"provider"`

	// Storage configuration (session database)
	Storage StorageConfig `toml:"storage"`

	// Chat configuration (engine behavior)
	Chat ChatConfig `toml:"chat"`

	// Knowledge configuration (fragment provider)
	Knowledge KnowledgeConfig `toml:"knowledge"`

	// Log configuration
	Log LogConfig `toml:"log"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// ProviderConfig contains language-model provider settings.
type ProviderConfig struct {
	// BaseURL is the provider API base URL.
	// Uses an explicit IPv4 address instead of localhost to avoid IPv6
	// resolution issues on Windows.
	BaseURL string `toml:"base_url"`
	// Model is the default model name sent with each request.
	Model string `toml:"model"`
	// TimeoutSecs is the timeout for non-streaming requests in seconds.
	TimeoutSecs int `toml:"timeout_secs"`
	// RequestsPerMinute caps dispatches to the provider (0 = unlimited).
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// StorageConfig contains session persistence settings.
type StorageConfig struct {
	// DBPath is the SQLite database path (empty = ~/.inkwell/sessions.db).
	DBPath string `toml:"db_path"`
	// MaxSessions limits retained sessions; oldest are pruned (0 = unlimited).
	MaxSessions int `toml:"max_sessions"`
}

// ChatConfig contains streaming-engine settings.
type ChatConfig struct {
	// HistoryLimit is the maximum number of prior messages sent with each
	// request (0 = all).
	HistoryLimit int `toml:"history_limit"`
	// SystemPrompt is prepended to every dispatched conversation when set.
	SystemPrompt string `toml:"system_prompt"`
}

// KnowledgeConfig contains fragment-provider settings.
type KnowledgeConfig struct {
	// Dir is the directory of fragment association files
	// (empty = ~/.inkwell/knowledge).
	Dir string `toml:"dir"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of "trace", "debug", "info", "warn", "error".
	Level string `toml:"level"`
	// File is the log file path (empty = ~/.inkwell/inkwell.log in TUI mode).
	File string `toml:"file"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	// Theme is "dark", "light", or "auto".
	Theme string `toml:"theme"`
	// Markdown enables glamour rendering of assistant messages.
	Markdown bool `toml:"markdown"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Provider: ProviderConfig{
			BaseURL:           "http://127.0.0.1:11434",
			Model:             "llama3.1",
			TimeoutSecs:       30,
			RequestsPerMinute: 0,
		},
		Storage: StorageConfig{
			MaxSessions: 200,
		},
		Chat: ChatConfig{
			HistoryLimit: 50,
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			Theme:    "auto",
			Markdown: true,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// HomeDir returns the inkwell data directory (~/.inkwell), creating it if
// needed.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".inkwell")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// Path returns the config file path, honoring the INKWELL_CONFIG override.
func Path() (string, error) {
	if p := os.Getenv("INKWELL_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration from the default path, applying defaults,
// environment overrides, and validation. A missing file is not an error:
// defaults are returned.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the configuration from an explicit path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//
//	INKWELL_PROVIDER_URL  provider base URL
//	INKWELL_MODEL         default model name
//	INKWELL_DB            session database path
//	INKWELL_LOG_LEVEL     log level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("INKWELL_PROVIDER_URL"); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv("INKWELL_MODEL"); v != "" {
		c.Provider.Model = v
	}
	if v := os.Getenv("INKWELL_DB"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("INKWELL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// =============================================================================
// NORMALIZATION AND VALIDATION
// =============================================================================

// Normalize fills empty fields with defaults and clamps out-of-range
// values rather than rejecting them.
func (c *Config) Normalize() {
	def := Default()

	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = def.Provider.BaseURL
	}
	if c.Provider.Model == "" {
		c.Provider.Model = def.Provider.Model
	}
	if c.Provider.TimeoutSecs <= 0 {
		c.Provider.TimeoutSecs = def.Provider.TimeoutSecs
	}
	if c.Provider.RequestsPerMinute < 0 {
		c.Provider.RequestsPerMinute = 0
	}
	if c.Storage.MaxSessions < 0 {
		c.Storage.MaxSessions = 0
	}
	if c.Chat.HistoryLimit < 0 {
		c.Chat.HistoryLimit = 0
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
}

// Validate checks the configuration for errors that cannot be clamped away.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Provider.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("provider.base_url %q is not a valid URL", c.Provider.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("provider.base_url scheme must be http or https, got %q", u.Scheme)
	}

	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		return fmt.Errorf("ui.theme must be dark, light, or auto, got %q", c.UI.Theme)
	}

	return nil
}

// RequestTimeout returns the provider timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSecs) * time.Second
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to an explicit path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}

// String returns a short human-readable summary for status output.
func (c *Config) String() string {
	return "provider=" + c.Provider.BaseURL +
		" model=" + c.Provider.Model +
		" history_limit=" + strconv.Itoa(c.Chat.HistoryLimit)
}
