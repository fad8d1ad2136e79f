// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements inkwell's line-mode interface: an interactive
// chat REPL, one-shot questions, and session management commands.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mgrindal/inkwell-tui/internal/config"
	"github.com/mgrindal/inkwell-tui/internal/engine"
	"github.com/mgrindal/inkwell-tui/internal/provider"
	"github.com/mgrindal/inkwell-tui/internal/store"
)

// =============================================================================
// APP
// =============================================================================

// App bundles the wired components the CLI commands operate on.
type App struct {
	Config  *config.Config
	Store   *store.Store
	Engine  *engine.Engine
	Gateway provider.Gateway
	Log     zerolog.Logger
}

// Notifier returns an engine notifier that reports exchange failures on
// stderr. Wire this into the engine when running in line mode.
func Notifier() engine.Notifier {
	return engine.NotifierFunc(func(sessionID string, err error) {
		fmt.Println()
		PrintError(err)
	})
}

// =============================================================================
// DISPATCH
// =============================================================================

// Run dispatches a CLI invocation. args excludes the program name.
func Run(app *App, args []string) error {
	parser := NewArgParser(args)

	switch parser.Subcommand() {
	case "", "chat":
		return RunChat(app, parser)
	case "ask":
		return RunAsk(app, parser)
	case "sessions":
		return RunSessions(app, parser)
	case "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", parser.Subcommand())
	}
}

func printUsage() {
	fmt.Print(`inkwell - note-taking companion with an embedded AI assistant

Usage:
  inkwell                   Launch the TUI (default when stdout is a TTY)
  inkwell chat              Interactive chat REPL
  inkwell ask <question>    One-shot question, answer to stdout
  inkwell sessions list     List saved sessions
  inkwell sessions search <query>
  inkwell sessions export <id> [--json] [--out FILE]
  inkwell sessions delete <id>

Flags:
  -m, --model NAME    Override the configured model
  --session ID        Resume an existing session (chat)
  --knowledge ID      Attach a knowledge association (chat, ask)
  --plain             Disable markdown rendering
  -q, --quiet         Minimal output
`)
}
