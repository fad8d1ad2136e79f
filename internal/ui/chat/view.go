// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mgrindal/inkwell-tui/internal/ui/components"
	"github.com/mgrindal/inkwell-tui/internal/util"
)

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")

	if m.mode == modePicker {
		sb.WriteString(m.renderPicker())
	} else {
		sb.WriteString(m.viewport.View())
	}
	sb.WriteString("\n")

	sb.WriteString(m.renderActivity())
	sb.WriteString("\n")
	sb.WriteString(m.input.View())
	sb.WriteString("\n")
	sb.WriteString(components.RenderStatusBar(m.theme, components.StatusBarData{
		Model:     m.currentModel(),
		Status:    m.engine.Status(m.sessionID),
		Knowledge: m.engine.Association(m.sessionID),
		Width:     m.width,
	}))
	return sb.String()
}

func (m *Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("inkwell")
	sess := util.TruncateWidth(m.sessionTitle(), m.width/2)
	return m.theme.Header.Render(title + "  " + sess)
}

// renderActivity shows the spinner or the error banner on a single line.
func (m *Model) renderActivity() string {
	if m.notice != nil {
		return m.theme.ErrorBox.Render(util.TruncateWidth(m.notice.Error(), m.width-6))
	}
	if m.spin.Active() {
		return " " + m.spin.View()
	}
	return ""
}

func (m *Model) currentModel() string {
	if opts := m.engine.Options(); opts.Model != "" {
		return opts.Model
	}
	return m.cfg.Provider.Model
}

// =============================================================================
// SESSION PICKER
// =============================================================================

func (m *Model) renderPicker() string {
	height := m.viewport.Height
	if len(m.picker) == 0 {
		body := m.theme.Muted.Render("No saved sessions.")
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center,
			m.theme.PickerBox.Render(body))
	}

	rowWidth := m.width - 10
	if rowWidth < 30 {
		rowWidth = 30
	}

	rows := make([]string, 0, len(m.picker)+1)
	rows = append(rows, m.theme.HeaderTitle.Render("Sessions")+
		m.theme.PickerMeta.Render("  enter open | C-x delete | esc close"))

	for i, meta := range m.picker {
		line := fmt.Sprintf("%s  %s",
			util.PadRight(util.TruncateWidth(meta.Title, rowWidth-24), rowWidth-24),
			m.theme.PickerMeta.Render(fmt.Sprintf("%3d msgs  %s",
				meta.MessageCount, meta.UpdatedAt.Format("Jan 02 15:04"))))
		if i == m.pickerCursor {
			line = m.theme.PickerItemSelected.Render("> " + line)
		} else {
			line = m.theme.PickerItem.Render("  " + line)
		}
		rows = append(rows, line)
	}

	// Clamp to the viewport, keeping the cursor visible.
	maxRows := height - 2
	if maxRows > 0 && len(rows) > maxRows {
		start := m.pickerCursor + 1 - maxRows + 1
		if start < 1 {
			start = 1
		}
		rows = append(rows[:1], rows[start:start+maxRows-1]...)
	}

	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center,
		m.theme.PickerBox.Render(strings.Join(rows, "\n")))
}
