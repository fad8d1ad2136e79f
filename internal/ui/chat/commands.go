// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mgrindal/inkwell-tui/internal/engine"
)

// =============================================================================
// SUBMIT
// =============================================================================

func (m *Model) handleSubmit() tea.Cmd {
	input := m.input.Value()
	if input == "" {
		return nil
	}
	if strings.HasPrefix(input, "/") {
		m.input.Reset()
		return m.handleSlashCommand(input)
	}

	if err := m.engine.SendMessage(m.sessionID, input); err != nil {
		if errors.Is(err, engine.ErrBusy) {
			m.notice = errors.New("still responding; press esc to stop first")
		} else {
			m.notice = err
		}
		return nil
	}

	m.input.Reset()
	m.notice = nil
	m.refresh()
	return m.spin.Start("thinking")
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (m *Model) handleSlashCommand(input string) tea.Cmd {
	cmd, arg, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "new":
		return m.newSession()

	case "sessions":
		m.openPicker()
		return nil

	case "title":
		if arg == "" {
			m.notice = errors.New("usage: /title <new title>")
			return nil
		}
		if err := m.store.SetTitle(context.Background(), m.sessionID, arg); err != nil {
			m.notice = err
		}
		return nil

	case "knowledge":
		m.engine.SetAssociation(m.sessionID, arg)
		m.refresh()
		return nil

	case "model":
		if arg == "" {
			m.notice = fmt.Errorf("current model: %s", m.cfg.Provider.Model)
			return nil
		}
		opts := m.engine.Options()
		opts.Model = arg
		m.engine.SetOptions(opts)
		return nil

	case "quit", "exit":
		m.engine.StopAll()
		return tea.Quit

	default:
		m.notice = fmt.Errorf("unknown command /%s", cmd)
		return nil
	}
}

func (m *Model) newSession() tea.Cmd {
	sess, err := m.store.CreateSession(context.Background())
	if err != nil {
		m.notice = err
		return nil
	}
	m.switchSession(sess.ID)
	return nil
}
