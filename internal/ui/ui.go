// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui wires the Bubble Tea program: it bridges session store
// events and engine notices into the chat view's message loop.
package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/mgrindal/inkwell-tui/internal/config"
	"github.com/mgrindal/inkwell-tui/internal/engine"
	"github.com/mgrindal/inkwell-tui/internal/store"
	"github.com/mgrindal/inkwell-tui/internal/ui/chat"
	"github.com/mgrindal/inkwell-tui/internal/ui/styles"
)

// =============================================================================
// NOTICE RELAY
// =============================================================================

// NoticeRelay forwards engine failure notices to whichever sink is bound.
// The engine takes its notifier at construction time, before the program
// exists, so the relay starts unbound and drops notices until Bind.
type NoticeRelay struct {
	mu   sync.Mutex
	sink func(sessionID string, err error)
}

// Notify implements engine.Notifier.
func (r *NoticeRelay) Notify(sessionID string, err error) {
	r.mu.Lock()
	sink := r.sink
	r.mu.Unlock()
	if sink != nil {
		sink(sessionID, err)
	}
}

// Bind routes subsequent notices to sink.
func (r *NoticeRelay) Bind(sink func(sessionID string, err error)) {
	r.mu.Lock()
	r.sink = sink
	r.mu.Unlock()
}

var _ engine.Notifier = (*NoticeRelay)(nil)

// =============================================================================
// PROGRAM
// =============================================================================

// Run starts the TUI and blocks until the user quits. relay may be nil
// when the engine was wired with a different notifier.
func Run(cfg *config.Config, st *store.Store, eng *engine.Engine, relay *NoticeRelay, log zerolog.Logger) error {
	styles.ApplyPreference(cfg.UI.Theme)

	m, err := chat.New(cfg, st, eng, "", log)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())

	// Store observers run synchronously on the mutating goroutine; Send is
	// safe to call from any goroutine and never blocks the store.
	obs := st.Subscribe(func(ev store.Event) {
		p.Send(chat.StoreEventMsg{Event: ev})
	})
	defer st.Unsubscribe(obs)

	if relay != nil {
		relay.Bind(func(sessionID string, err error) {
			p.Send(chat.NoticeMsg{SessionID: sessionID, Err: err})
		})
		defer relay.Bind(nil)
	}

	_, err = p.Run()
	return err
}
