// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mgrindal/inkwell-tui/internal/ui/styles"
)

// =============================================================================
// INPUT AREA
// =============================================================================

// Input wraps the prompt textarea at the bottom of the chat view.
type Input struct {
	area  textarea.Model
	theme *styles.Theme
}

// NewInput creates the prompt input sized for single-line entry.
func NewInput(theme *styles.Theme, width int) Input {
	ta := textarea.New()
	ta.Placeholder = "Ask anything, or / for commands"
	ta.Prompt = theme.InputPrompt.Render("> ")
	ta.CharLimit = 0
	ta.SetWidth(width - 6)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false
	ta.Focus()
	return Input{area: ta, theme: theme}
}

// Update forwards terminal events to the textarea.
func (in *Input) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	in.area, cmd = in.area.Update(msg)
	return cmd
}

// Value returns the trimmed input text.
func (in Input) Value() string {
	return strings.TrimSpace(in.area.Value())
}

// Reset clears the input.
func (in *Input) Reset() {
	in.area.Reset()
}

// Resize adjusts the textarea to a new terminal width.
func (in *Input) Resize(width int) {
	in.area.SetWidth(width - 6)
}

// Focus gives the textarea keyboard focus.
func (in *Input) Focus() tea.Cmd {
	return in.area.Focus()
}

// Blur removes keyboard focus.
func (in *Input) Blur() {
	in.area.Blur()
}

// View renders the bordered input area.
func (in Input) View() string {
	return in.theme.InputContainer.Render(in.area.View())
}
