// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, path string) chan *Config {
	t.Helper()
	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(path, func(cfg *Config) { reloaded <- cfg })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	w.Start(ctx)

	// Let the watcher register before the test writes.
	time.Sleep(50 * time.Millisecond)
	return reloaded
}

func waitReload(t *testing.T, reloaded chan *Config) *Config {
	t.Helper()
	select {
	case cfg := <-reloaded:
		return cfg
	case <-time.After(3 * time.Second):
		t.Fatal("watcher never reloaded")
		return nil
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[provider]\nmodel = \"llama3.1\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	reloaded := startWatcher(t, path)

	if err := os.WriteFile(path, []byte("[provider]\nmodel = \"qwen2.5\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := waitReload(t, reloaded)
	if cfg.Provider.Model != "qwen2.5" {
		t.Errorf("Model = %q, want qwen2.5", cfg.Provider.Model)
	}
}

func TestWatcherSurvivesAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[provider]\nmodel = \"llama3.1\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	reloaded := startWatcher(t, path)

	// Editors save via write-to-temp then rename; the watcher must keep
	// working because it watches the directory, not the inode.
	tmp := filepath.Join(dir, "config.toml.tmp")
	if err := os.WriteFile(tmp, []byte("[provider]\nmodel = \"mistral\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	cfg := waitReload(t, reloaded)
	if cfg.Provider.Model != "mistral" {
		t.Errorf("Model = %q, want mistral", cfg.Provider.Model)
	}
}
