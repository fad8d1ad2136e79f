// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mgrindal/inkwell-tui/internal/ui/styles"
)

// =============================================================================
// THINKING SPINNER
// =============================================================================

// Spinner shows activity while an exchange is submitting or streaming.
type Spinner struct {
	inner     spinner.Model
	theme     *styles.Theme
	message   string
	startTime time.Time
	active    bool
}

// NewSpinner creates an inactive spinner with ASCII-safe frames.
func NewSpinner(theme *styles.Theme) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	s.Style = theme.Spinner
	return Spinner{inner: s, theme: theme, message: "thinking"}
}

// Start activates the spinner and returns the tick command that drives it.
func (s *Spinner) Start(message string) tea.Cmd {
	s.active = true
	s.startTime = time.Now()
	if message != "" {
		s.message = message
	}
	return s.inner.Tick
}

// Stop deactivates the spinner.
func (s *Spinner) Stop() {
	s.active = false
}

// Active reports whether the spinner is running.
func (s Spinner) Active() bool {
	return s.active
}

// Update advances the animation. Only spinner tick messages are consumed.
func (s *Spinner) Update(msg tea.Msg) tea.Cmd {
	if !s.active {
		return nil
	}
	var cmd tea.Cmd
	s.inner, cmd = s.inner.Update(msg)
	return cmd
}

// View renders "| thinking 3s" or "" when inactive.
func (s Spinner) View() string {
	if !s.active {
		return ""
	}
	elapsed := time.Since(s.startTime).Round(time.Second)
	label := s.message
	if elapsed >= time.Second {
		label = fmt.Sprintf("%s %s", s.message, elapsed)
	}
	return s.inner.View() + " " + s.theme.Thinking.Render(label)
}
