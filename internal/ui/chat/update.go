// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mgrindal/inkwell-tui/internal/engine"
	"github.com/mgrindal/inkwell-tui/internal/store"
)

// chromeHeight is the number of rows used by header, input, status bar,
// and the activity line.
const chromeHeight = 7

// noticeTTL is how long the error banner stays visible.
const noticeTTL = 6 * time.Second

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m, m.handleResize(msg)

	case StoreEventMsg:
		return m, m.handleStoreEvent(msg.Event)

	case NoticeMsg:
		if msg.SessionID != m.sessionID {
			return m, nil
		}
		m.notice = msg.Err
		m.noticeSeq++
		m.spin.Stop()
		seq := m.noticeSeq
		return m, tea.Tick(noticeTTL, func(time.Time) tea.Msg {
			return clearNoticeMsg{seq: seq}
		})

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = nil
		}
		return m, nil

	case tea.KeyMsg:
		if m.mode == modePicker {
			return m, m.handlePickerKey(msg)
		}
		return m, m.handleChatKey(msg)
	}

	return m, m.spin.Update(msg)
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

func (m *Model) handleResize(msg tea.WindowSizeMsg) tea.Cmd {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.Resize(msg.Width, msg.Height)
	m.input.Resize(msg.Width)

	vh := msg.Height - chromeHeight
	if vh < 3 {
		vh = 3
	}
	if !m.ready {
		m.viewport = viewport.New(msg.Width, vh)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vh
	}
	m.refresh()
	return nil
}

func (m *Model) handleStoreEvent(ev store.Event) tea.Cmd {
	// Keep the picker current even for events on other sessions.
	if m.mode == modePicker {
		m.reloadPicker()
	}
	if ev.SessionID != m.sessionID {
		return nil
	}

	m.refresh()

	switch m.engine.Status(m.sessionID) {
	case engine.StatusSubmitting, engine.StatusStreaming:
		if !m.spin.Active() {
			return m.spin.Start("thinking")
		}
	default:
		m.spin.Stop()
	}
	return nil
}

// =============================================================================
// KEY HANDLERS
// =============================================================================

func (m *Model) handleChatKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		// Quit keeps any partial response: stop finalizes synchronously
		// before the program exits.
		m.engine.StopAll()
		return tea.Quit

	case key.Matches(msg, m.keys.Stop):
		if m.engine.Status(m.sessionID) != engine.StatusReady {
			m.engine.Stop(m.sessionID)
			m.spin.Stop()
			m.refresh()
		}
		return nil

	case key.Matches(msg, m.keys.Submit):
		return m.handleSubmit()

	case key.Matches(msg, m.keys.NewSession):
		return m.newSession()

	case key.Matches(msg, m.keys.Sessions):
		m.openPicker()
		return nil

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}

	return m.input.Update(msg)
}

func (m *Model) handlePickerKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.engine.StopAll()
		return tea.Quit

	case key.Matches(msg, m.keys.PickerClose):
		m.closePicker()
		return nil

	case key.Matches(msg, m.keys.PickerUp):
		if m.pickerCursor > 0 {
			m.pickerCursor--
		}
		return nil

	case key.Matches(msg, m.keys.PickerDown):
		if m.pickerCursor < len(m.picker)-1 {
			m.pickerCursor++
		}
		return nil

	case key.Matches(msg, m.keys.PickerSelect):
		if len(m.picker) > 0 {
			m.switchSession(m.picker[m.pickerCursor].ID)
		}
		m.closePicker()
		return nil

	case key.Matches(msg, m.keys.PickerDelete):
		return m.deletePicked()
	}
	return nil
}

// =============================================================================
// PICKER STATE
// =============================================================================

func (m *Model) openPicker() {
	m.mode = modePicker
	m.input.Blur()
	m.reloadPicker()
	for i, meta := range m.picker {
		if meta.ID == m.sessionID {
			m.pickerCursor = i
			break
		}
	}
}

func (m *Model) closePicker() {
	m.mode = modeChat
	m.input.Focus()
	m.refresh()
}

func (m *Model) reloadPicker() {
	m.picker = m.store.ListSessions()
	if m.pickerCursor >= len(m.picker) {
		m.pickerCursor = len(m.picker) - 1
	}
	if m.pickerCursor < 0 {
		m.pickerCursor = 0
	}
}

func (m *Model) deletePicked() tea.Cmd {
	if len(m.picker) == 0 {
		return nil
	}
	target := m.picker[m.pickerCursor]
	if target.ID == m.sessionID {
		// Deleting the open session would leave the view unbound.
		return nil
	}
	if err := m.store.DeleteSession(context.Background(), target.ID); err != nil {
		m.log.Error().Err(err).Str("session", target.ID).Msg("delete session failed")
	}
	m.reloadPicker()
	return nil
}
