// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command for the inkwell CLI.
//
// "inkwell ask" bypasses session persistence entirely: the question goes
// straight to the provider and the answer to stdout, which makes it
// usable in pipes and scripts.
package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mgrindal/inkwell-tui/internal/compose"
	"github.com/mgrindal/inkwell-tui/internal/config"
	"github.com/mgrindal/inkwell-tui/internal/knowledge"
	"github.com/mgrindal/inkwell-tui/internal/model"
	"github.com/mgrindal/inkwell-tui/internal/provider"
)

// RunAsk answers a single question without creating a session.
func RunAsk(app *App, args *ArgParser) error {
	question := args.Rest()
	if question == "" {
		return fmt.Errorf("usage: inkwell ask <question>")
	}

	prompt := question
	if assoc := args.Flag("knowledge"); assoc != "" {
		fragments := loadFragments(app, assoc)
		prompt = compose.Compose(question, fragments)
	}

	var messages []provider.Message
	if sp := app.Config.Chat.SystemPrompt; sp != "" {
		messages = append(messages, provider.Message{Role: model.RoleSystem.String(), Content: sp})
	}
	messages = append(messages, provider.Message{Role: model.RoleUser.String(), Content: prompt})

	ctx, cancel := context.WithTimeout(context.Background(), app.Config.RequestTimeout())
	defer cancel()

	mdl := args.Flag("model", "m")
	if mdl == "" {
		mdl = app.Config.Provider.Model
	}

	content, stats, err := app.Gateway.Complete(ctx, provider.Request{
		Model:    mdl,
		Messages: messages,
	})
	if err != nil {
		return err
	}

	DisplayResponse(content, app.Config.UI.Markdown && !args.BoolFlag("plain"))

	if !args.BoolFlag("quiet", "q") && stats != nil && IsStdoutTTY() {
		PrintInfo(fmt.Sprintf("%d tokens | %.1f tok/s | %s",
			stats.CompletionTokens, stats.TokensPerSecond,
			stats.TotalDuration.Round(time.Millisecond)))
	}
	return nil
}

// loadFragments reads the association's fragments, tolerating a missing
// or broken knowledge directory.
func loadFragments(app *App, associationID string) []model.Fragment {
	dir := app.Config.Knowledge.Dir
	if dir == "" {
		home, err := config.HomeDir()
		if err != nil {
			return nil
		}
		dir = filepath.Join(home, "knowledge")
	}
	p := knowledge.NewDirProvider(dir, app.Log)
	fragments, err := p.FragmentsFor(associationID)
	if err != nil {
		app.Log.Warn().Str("association", associationID).Err(err).Msg("failed to load fragments")
		return nil
	}
	return fragments
}
