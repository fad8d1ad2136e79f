// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mgrindal/inkwell-tui/internal/engine"
	"github.com/mgrindal/inkwell-tui/internal/ui/styles"
	"github.com/mgrindal/inkwell-tui/internal/util"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBarData carries what the bottom bar displays.
type StatusBarData struct {
	Model     string
	Status    engine.Status
	Knowledge string
	Width     int
}

// RenderStatusBar renders the bottom bar: model and exchange state on the
// left, key hints on the right.
func RenderStatusBar(theme *styles.Theme, data StatusBarData) string {
	left := data.Model
	if data.Knowledge != "" {
		left += " @" + data.Knowledge
	}
	left += "  " + statusLabel(data.Status)

	hints := []string{
		theme.StatusKey.Render("enter") + theme.StatusDesc.Render(" send"),
		theme.StatusKey.Render("esc") + theme.StatusDesc.Render(" stop"),
		theme.StatusKey.Render("ctrl+n") + theme.StatusDesc.Render(" new"),
		theme.StatusKey.Render("ctrl+s") + theme.StatusDesc.Render(" sessions"),
		theme.StatusKey.Render("ctrl+q") + theme.StatusDesc.Render(" quit"),
	}
	right := strings.Join(hints, "  ")

	gap := data.Width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		// Narrow terminal: drop the hints before truncating the state.
		right = ""
		gap = data.Width - lipgloss.Width(left) - 2
		if gap < 0 {
			left = util.TruncateWidth(left, data.Width-2)
			gap = 0
		}
	}

	return theme.StatusBar.Render(left + strings.Repeat(" ", gap) + right)
}

func statusLabel(status engine.Status) string {
	switch status {
	case engine.StatusSubmitting:
		return "[submitting]"
	case engine.StatusStreaming:
		return "[streaming]"
	default:
		return "[ready]"
	}
}
