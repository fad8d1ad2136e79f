// inkwell - a note-taking companion with an embedded AI assistant.
//
// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mgrindal/inkwell-tui/internal/cli"
	"github.com/mgrindal/inkwell-tui/internal/config"
	"github.com/mgrindal/inkwell-tui/internal/engine"
	"github.com/mgrindal/inkwell-tui/internal/knowledge"
	"github.com/mgrindal/inkwell-tui/internal/logging"
	"github.com/mgrindal/inkwell-tui/internal/provider"
	"github.com/mgrindal/inkwell-tui/internal/store"
	"github.com/mgrindal/inkwell-tui/internal/ui"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 1 && (args[0] == "--version" || args[0] == "version") {
		fmt.Printf("inkwell %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: false,
	})

	// ==========================================================================
	// STORAGE
	// ==========================================================================

	home, err := config.HomeDir()
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	dbPath := cfg.Storage.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(home, "sessions.db")
	}
	repo, err := store.OpenSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer repo.Close()

	st := store.New(repo, log)
	if err := st.LoadAll(context.Background()); err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}

	// ==========================================================================
	// PROVIDER AND ENGINE
	// ==========================================================================

	gateway := provider.NewClient(&provider.ClientConfig{
		BaseURL:           cfg.Provider.BaseURL,
		Timeout:           cfg.RequestTimeout(),
		DefaultModel:      cfg.Provider.Model,
		RequestsPerMinute: cfg.Provider.RequestsPerMinute,
	}, log)

	knowledgeDir := cfg.Knowledge.Dir
	if knowledgeDir == "" {
		knowledgeDir = filepath.Join(home, "knowledge")
	}
	kn := knowledge.NewDirProvider(knowledgeDir, log)

	opts := engine.Options{
		Model:        cfg.Provider.Model,
		HistoryLimit: cfg.Chat.HistoryLimit,
		SystemPrompt: cfg.Chat.SystemPrompt,
	}

	tui := len(args) == 0 && cli.IsStdoutTTY() && cli.IsTTY()

	var notifier engine.Notifier
	var relay *ui.NoticeRelay
	if tui {
		relay = &ui.NoticeRelay{}
		notifier = relay
	} else {
		notifier = cli.Notifier()
	}

	eng := engine.New(st, gateway, kn, notifier, opts, log)
	defer eng.StopAll()

	startConfigWatcher(eng, log)

	// ==========================================================================
	// DISPATCH
	// ==========================================================================

	if tui {
		return ui.Run(cfg, st, eng, relay, log)
	}

	app := &cli.App{
		Config:  cfg,
		Store:   st,
		Engine:  eng,
		Gateway: gateway,
		Log:     log,
	}
	return cli.Run(app, args)
}

// startConfigWatcher applies edits to the config file to the running
// engine. Watch failures are logged and ignored: live reload is a
// convenience, not a requirement.
func startConfigWatcher(eng *engine.Engine, log zerolog.Logger) {
	path, err := config.Path()
	if err != nil {
		log.Warn().Err(err).Msg("config watcher unavailable")
		return
	}
	w, err := config.NewWatcher(path, func(next *config.Config) {
		eng.SetOptions(engine.Options{
			Model:        next.Provider.Model,
			HistoryLimit: next.Chat.HistoryLimit,
			SystemPrompt: next.Chat.SystemPrompt,
		})
		log.Info().Str("model", next.Provider.Model).Msg("config reloaded")
	})
	if err != nil {
		log.Warn().Err(err).Msg("config watcher unavailable")
		return
	}
	w.Start(context.Background())
}
