// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - Session management subcommands (list, search, export, delete).
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mgrindal/inkwell-tui/internal/model"
	"github.com/mgrindal/inkwell-tui/internal/store"
)

// RunSessions dispatches the "sessions" subcommands.
func RunSessions(app *App, args *ArgParser) error {
	pos := args.Positional()
	var sub, rest string
	if len(pos) > 1 {
		sub = pos[1]
	}
	if len(pos) > 2 {
		rest = pos[2]
	}

	switch sub {
	case "", "list":
		return listSessions(app, args)
	case "search":
		if rest == "" {
			return fmt.Errorf("usage: inkwell sessions search <query>")
		}
		return searchSessions(app, args, strings.Join(pos[2:], " "))
	case "export":
		if rest == "" {
			return fmt.Errorf("usage: inkwell sessions export <id> [--json] [--out FILE]")
		}
		return exportSession(app, args, rest)
	case "delete":
		if rest == "" {
			return fmt.Errorf("usage: inkwell sessions delete <id>")
		}
		return deleteSession(app, rest)
	default:
		return fmt.Errorf("unknown sessions subcommand %q", sub)
	}
}

func listSessions(app *App, args *ArgParser) error {
	return printMetas(app.Store.ListSessions(), args)
}

func searchSessions(app *App, args *ArgParser, query string) error {
	return printMetas(app.Store.Search(query), args)
}

func printMetas(metas []model.SessionMeta, args *ArgParser) error {
	if args.BoolFlag("json") {
		data, err := json.MarshalIndent(metas, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	if len(metas) == 0 {
		PrintInfo("no sessions")
		return nil
	}
	fmt.Print(store.FormatSessionList(metas))
	return nil
}

func exportSession(app *App, args *ArgParser, id string) error {
	sess, err := resolveSession(app, id)
	if err != nil {
		return err
	}

	var data []byte
	if args.BoolFlag("json") {
		data, err = store.ExportJSON(sess)
		if err != nil {
			return err
		}
	} else {
		data = []byte(store.ExportMarkdown(sess))
	}

	if out := args.Flag("out", "o"); out != "" {
		if err := store.WriteExport(out, data); err != nil {
			return err
		}
		PrintInfo(fmt.Sprintf("exported %q to %s", sess.DisplayTitle(), out))
		return nil
	}
	_, err = os.Stdout.Write(data)
	return err
}

func deleteSession(app *App, id string) error {
	sess, err := resolveSession(app, id)
	if err != nil {
		return err
	}
	if err := app.Store.DeleteSession(context.Background(), sess.ID); err != nil {
		return err
	}
	PrintInfo(fmt.Sprintf("deleted session %q", sess.DisplayTitle()))
	return nil
}

// resolveSession looks up a session by ID, accepting an unambiguous prefix
// so users can paste the short form shown by "sessions list".
func resolveSession(app *App, id string) (*model.Session, error) {
	if sess := app.Store.Session(id); sess != nil {
		return sess, nil
	}

	var match *model.Session
	for _, meta := range app.Store.ListSessions() {
		if !strings.HasPrefix(meta.ID, id) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("session prefix %q is ambiguous", id)
		}
		match = app.Store.Session(meta.ID)
	}
	if match == nil {
		return nil, fmt.Errorf("no session matching %q", id)
	}
	return match, nil
}
