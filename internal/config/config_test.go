// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Provider.BaseURL != "http://127.0.0.1:11434" {
		t.Errorf("BaseURL = %q, want http://127.0.0.1:11434", cfg.Provider.BaseURL)
	}
	if cfg.Provider.TimeoutSecs != 30 {
		t.Errorf("TimeoutSecs = %d, want 30", cfg.Provider.TimeoutSecs)
	}
	if cfg.Chat.HistoryLimit != 50 {
		t.Errorf("HistoryLimit = %d, want 50", cfg.Chat.HistoryLimit)
	}
	if !cfg.UI.Markdown {
		t.Error("Markdown should default to true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should produce defaults, got error: %v", err)
	}
	if cfg.Provider.Model != "llama3.1" {
		t.Errorf("Model = %q, want default llama3.1", cfg.Provider.Model)
	}
}

func TestLoadFromPathPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[provider]
model = "qwen2.5"

[chat]
history_limit = 10
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Provider.Model != "qwen2.5" {
		t.Errorf("Model = %q, want qwen2.5", cfg.Provider.Model)
	}
	if cfg.Chat.HistoryLimit != 10 {
		t.Errorf("HistoryLimit = %d, want 10", cfg.Chat.HistoryLimit)
	}
	// Unspecified fields keep defaults.
	if cfg.Provider.BaseURL != "http://127.0.0.1:11434" {
		t.Errorf("BaseURL = %q, want default", cfg.Provider.BaseURL)
	}
}

func TestLoadFromPathMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("not ==== toml {{{"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromPath(path); err == nil {
		t.Error("malformed TOML should return an error")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("INKWELL_PROVIDER_URL", "http://10.0.0.5:11434")
	t.Setenv("INKWELL_MODEL", "mistral")
	t.Setenv("INKWELL_LOG_LEVEL", "debug")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Provider.BaseURL != "http://10.0.0.5:11434" {
		t.Errorf("BaseURL = %q, want env override", cfg.Provider.BaseURL)
	}
	if cfg.Provider.Model != "mistral" {
		t.Errorf("Model = %q, want mistral", cfg.Provider.Model)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Log.Level)
	}
}

func TestNormalizeClamps(t *testing.T) {
	cfg := Default()
	cfg.Provider.TimeoutSecs = -5
	cfg.Chat.HistoryLimit = -1
	cfg.Provider.RequestsPerMinute = -10

	cfg.Normalize()

	if cfg.Provider.TimeoutSecs != 30 {
		t.Errorf("TimeoutSecs = %d, want clamped to 30", cfg.Provider.TimeoutSecs)
	}
	if cfg.Chat.HistoryLimit != 0 {
		t.Errorf("HistoryLimit = %d, want clamped to 0", cfg.Chat.HistoryLimit)
	}
	if cfg.Provider.RequestsPerMinute != 0 {
		t.Errorf("RequestsPerMinute = %d, want clamped to 0", cfg.Provider.RequestsPerMinute)
	}
}

func TestValidateRejectsBadURL(t *testing.T) {
	cfg := Default()
	cfg.Provider.BaseURL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Error("invalid URL should fail validation")
	}

	cfg = Default()
	cfg.Provider.BaseURL = "ftp://example.com"
	if err := cfg.Validate(); err == nil {
		t.Error("non-http scheme should fail validation")
	}
}

func TestValidateRejectsBadTheme(t *testing.T) {
	cfg := Default()
	cfg.UI.Theme = "solarized"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown theme should fail validation")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	cfg.Provider.Model = "phi4"
	cfg.Chat.SystemPrompt = "You are terse."

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.Provider.Model != "phi4" {
		t.Errorf("Model = %q, want phi4", loaded.Provider.Model)
	}
	if loaded.Chat.SystemPrompt != "You are terse." {
		t.Errorf("SystemPrompt = %q", loaded.Chat.SystemPrompt)
	}
}
