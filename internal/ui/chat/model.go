// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/mgrindal/inkwell-tui/internal/config"
	"github.com/mgrindal/inkwell-tui/internal/engine"
	"github.com/mgrindal/inkwell-tui/internal/model"
	"github.com/mgrindal/inkwell-tui/internal/store"
	"github.com/mgrindal/inkwell-tui/internal/ui/components"
	"github.com/mgrindal/inkwell-tui/internal/ui/styles"
)

// =============================================================================
// MODE
// =============================================================================

type mode int

const (
	modeChat mode = iota
	modePicker
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view. It holds no message
// state of its own: the session store is authoritative and the model
// re-reads it whenever a store event arrives.
type Model struct {
	cfg    *config.Config
	store  *store.Store
	engine *engine.Engine
	log    zerolog.Logger

	theme    *styles.Theme
	keys     KeyMap
	viewport viewport.Model
	input    components.Input
	spin     components.Spinner

	sessionID string
	mode      mode

	// Picker state
	picker       []model.SessionMeta
	pickerCursor int

	// Error banner
	notice    error
	noticeSeq int

	width  int
	height int
	ready  bool
}

// New creates the chat model bound to an existing session, or to a fresh
// one when sessionID is empty.
func New(cfg *config.Config, st *store.Store, eng *engine.Engine, sessionID string, log zerolog.Logger) (*Model, error) {
	if sessionID == "" {
		sess, err := st.CreateSession(context.Background())
		if err != nil {
			return nil, err
		}
		sessionID = sess.ID
	}

	theme := styles.New(80, 24)
	return &Model{
		cfg:       cfg,
		store:     st,
		engine:    eng,
		log:       log,
		theme:     theme,
		keys:      DefaultKeyMap(),
		input:     components.NewInput(theme, 80),
		spin:      components.NewSpinner(theme),
		sessionID: sessionID,
	}, nil
}

// SessionID returns the session the view is bound to.
func (m *Model) SessionID() string {
	return m.sessionID
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.input.Focus()
}

// =============================================================================
// CONTENT REFRESH
// =============================================================================

// refresh rebuilds the viewport from the store and pins the view to the
// bottom so streaming output stays visible.
func (m *Model) refresh() {
	if !m.ready {
		return
	}

	msgs := m.store.Messages(m.sessionID)
	opts := components.MessageOptions{
		Width:    m.width - 2,
		Markdown: m.cfg.UI.Markdown,
	}

	blocks := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role == model.RoleSystem {
			continue
		}
		blocks = append(blocks, components.RenderMessage(m.theme, msg, opts))
	}
	if len(blocks) == 0 {
		blocks = append(blocks, m.theme.Muted.Render("No messages yet. Type below to start."))
	}

	m.viewport.SetContent(strings.Join(blocks, "\n\n"))
	m.viewport.GotoBottom()
}

// switchSession rebinds the view to another session.
func (m *Model) switchSession(sessionID string) {
	m.sessionID = sessionID
	m.notice = nil
	m.refresh()
}

func (m *Model) sessionTitle() string {
	if sess := m.store.Session(m.sessionID); sess != nil {
		return sess.DisplayTitle()
	}
	return "inkwell"
}
