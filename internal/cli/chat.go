// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat REPL for the inkwell CLI.
//
// USABILITY: readline-like input with history navigation via liner.
//
// Interactive commands:
//
//	/help, /h      Show available commands
//	/new           Start a fresh session
//	/sessions      List saved sessions
//	/title TEXT    Rename the current session
//	/stats         Show statistics for the last answer
//	/quit, /q      Exit
//	Ctrl+C         Cancel the current generation
//	Ctrl+D         Exit
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/mgrindal/inkwell-tui/internal/config"
	"github.com/mgrindal/inkwell-tui/internal/engine"
	"github.com/mgrindal/inkwell-tui/internal/model"
	"github.com/mgrindal/inkwell-tui/internal/store"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader wraps liner with persistent input history.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader() *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.HomeDir()
	if err != nil {
		dir = os.TempDir()
	}
	r := &lineReader{
		line:        line,
		historyFile: filepath.Join(dir, "chat_history"),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *lineReader) read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

func (r *lineReader) close() {
	if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
		r.line.WriteHistory(f)
		f.Close()
	}
	r.line.Close()
}

// =============================================================================
// STREAM PRINTER
// =============================================================================

// streamPrinter turns cumulative content updates into incremental stdout
// writes. Deltas carry the full text so far, so only the unseen suffix is
// printed.
type streamPrinter struct {
	mu        sync.Mutex
	sessionID string
	messageID string
	printed   int
}

func (p *streamPrinter) track(sessionID, messageID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionID = sessionID
	p.messageID = messageID
	p.printed = 0
}

func (p *streamPrinter) apply(content string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(content) > p.printed {
		fmt.Print(content[p.printed:])
		p.printed = len(content)
	}
}

func (p *streamPrinter) tracking(sessionID, messageID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionID == sessionID && p.messageID == messageID
}

// =============================================================================
// CHAT REPL
// =============================================================================

// RunChat runs the interactive chat loop.
func RunChat(app *App, args *ArgParser) error {
	ctx := context.Background()
	quiet := args.BoolFlag("quiet", "q")

	sess, err := resumeOrCreate(ctx, app, args.Flag("session"))
	if err != nil {
		return err
	}
	sessionID := sess.ID

	if assoc := args.Flag("knowledge"); assoc != "" {
		app.Engine.SetAssociation(sessionID, assoc)
	}
	if m := args.Flag("model", "m"); m != "" {
		app.Engine.SetOptions(engine.Options{
			Model:        m,
			HistoryLimit: app.Config.Chat.HistoryLimit,
			SystemPrompt: app.Config.Chat.SystemPrompt,
		})
	}

	printer := &streamPrinter{}
	subID := app.Store.Subscribe(func(ev store.Event) {
		if ev.Type != store.EventMessageUpdated || ev.SessionID != sessionID {
			return
		}
		if len(ev.MessageIDs) != 1 || !printer.tracking(ev.SessionID, ev.MessageIDs[0]) {
			return
		}
		if msg := app.Store.Session(sessionID).MessageByID(ev.MessageIDs[0]); msg != nil {
			printer.apply(msg.Content)
		}
	})
	defer app.Store.Unsubscribe(subID)

	reader := newLineReader()
	defer reader.close()

	// First Ctrl+C during generation cancels it; at the prompt, liner
	// reports ErrPromptAborted instead.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			app.Engine.Stop(sessionID)
		}
	}()

	if !quiet {
		PrintInfo("inkwell chat - /help for commands, Ctrl+D to exit")
	}

	for {
		input, err := reader.read(promptStyle.Render("inkwell> "))
		if err != nil {
			// Ctrl+C at the prompt or EOF: exit gracefully.
			fmt.Println()
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, newID := handleSlashCommand(app, sessionID, input)
			if quit {
				return nil
			}
			if newID != "" {
				sessionID = newID
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		if err := sendAndWait(app, printer, sessionID, input); err != nil {
			PrintError(err)
		}
	}
}

func resumeOrCreate(ctx context.Context, app *App, sessionID string) (*model.Session, error) {
	if sessionID != "" {
		if sess := app.Store.Session(sessionID); sess != nil {
			return sess, nil
		}
		return nil, fmt.Errorf("session %q not found", sessionID)
	}
	return app.Store.CreateSession(ctx)
}

// sendAndWait submits the input and blocks until the exchange finishes,
// printing deltas as they stream in.
func sendAndWait(app *App, printer *streamPrinter, sessionID, input string) error {
	if err := app.Engine.SendMessage(sessionID, input); err != nil {
		return err
	}

	// The placeholder is the last message after the synchronous appends.
	if last := app.Store.Session(sessionID).LastMessage(); last != nil {
		printer.track(sessionID, last.ID)
	}

	fmt.Println()
	for app.Engine.Status(sessionID) != engine.StatusReady {
		time.Sleep(20 * time.Millisecond)
	}
	fmt.Println()
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand executes one /command. Returns quit=true to exit and
// a non-empty newID when the active session changed.
func handleSlashCommand(app *App, sessionID, input string) (quit bool, newID string) {
	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "/help", "/h":
		fmt.Print(`Commands:
  /new           Start a fresh session
  /sessions      List saved sessions
  /title TEXT    Rename the current session
  /stats         Statistics for the last answer
  /quit, /q      Exit
`)
	case "/new":
		sess, err := app.Store.CreateSession(context.Background())
		if err != nil {
			PrintError(err)
			return false, ""
		}
		PrintInfo("started new session " + sess.ID)
		return false, sess.ID
	case "/sessions":
		fmt.Print(store.FormatSessionList(app.Store.ListSessions()))
	case "/title":
		if rest == "" {
			PrintError(fmt.Errorf("usage: /title TEXT"))
			return false, ""
		}
		if err := app.Store.SetTitle(context.Background(), sessionID, rest); err != nil {
			PrintError(err)
		}
	case "/stats":
		printLastStats(app, sessionID)
	case "/quit", "/q":
		return true, ""
	default:
		PrintError(fmt.Errorf("unknown command %s (try /help)", cmd))
	}
	return false, ""
}

func printLastStats(app *App, sessionID string) {
	sess := app.Store.Session(sessionID)
	if sess == nil {
		return
	}
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		msg := sess.Messages[i]
		if msg.Role == model.RoleAssistant && !msg.IsStreaming {
			fmt.Printf("%d tokens | %.1f tok/s | TTFT %dms | total %s\n",
				msg.TokenCount, msg.TokensPerSec, msg.TTFT.Milliseconds(),
				msg.TotalDuration.Round(time.Millisecond))
			return
		}
	}
	PrintInfo("no completed answer yet")
}
