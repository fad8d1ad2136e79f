// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components the TUI renders with. It is rebuilt
// on resize so width-dependent styles stay correct.
type Theme struct {
	ColorProfile termenv.Profile

	Width  int
	Height int

	// =========================================================================
	// CHROME
	// =========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	StatusDesc  lipgloss.Style

	// =========================================================================
	// MESSAGES
	// =========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	MessageBody    lipgloss.Style
	Timestamp      lipgloss.Style

	// =========================================================================
	// INPUT
	// =========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style

	// =========================================================================
	// FEEDBACK
	// =========================================================================

	Spinner   lipgloss.Style
	Thinking  lipgloss.Style
	ErrorBox  lipgloss.Style
	StatsLine lipgloss.Style
	Muted     lipgloss.Style

	// =========================================================================
	// SESSION PICKER
	// =========================================================================

	PickerBox          lipgloss.Style
	PickerItem         lipgloss.Style
	PickerItemSelected lipgloss.Style
	PickerMeta         lipgloss.Style
}

// ApplyPreference forces the light or dark palette when the user has set
// an explicit theme. "auto" leaves terminal background detection alone.
func ApplyPreference(pref string) {
	switch pref {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
	}
}

// New builds a theme sized to the given terminal dimensions.
func New(width, height int) *Theme {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}

	t := &Theme{
		ColorProfile: termenv.ColorProfile(),
		Width:        width,
		Height:       height,
	}

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Width(width).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(Indigo).
		Bold(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Width(width).
		Padding(0, 1)
	t.StatusKey = lipgloss.NewStyle().Foreground(Teal).Bold(true)
	t.StatusDesc = lipgloss.NewStyle().Foreground(TextMuted)

	t.UserLabel = lipgloss.NewStyle().Foreground(UserLabelFg).Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().Foreground(AssistantLabelFg).Bold(true)
	t.SystemLabel = lipgloss.NewStyle().Foreground(SystemLabelFg).Bold(true)
	t.MessageBody = lipgloss.NewStyle().Foreground(TextPrimary)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)

	t.InputContainer = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Width(width - 2)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Teal).Bold(true)

	t.Spinner = lipgloss.NewStyle().Foreground(Indigo)
	t.Thinking = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.ErrorBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Red).
		Foreground(Red).
		Padding(0, 1)
	t.StatsLine = lipgloss.NewStyle().Foreground(TextMuted)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)

	t.PickerBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.PickerItem = lipgloss.NewStyle().Foreground(TextPrimary)
	t.PickerItemSelected = lipgloss.NewStyle().
		Background(SelectionBg).
		Foreground(TextPrimary).
		Bold(true)
	t.PickerMeta = lipgloss.NewStyle().Foreground(TextMuted)

	return t
}

// Resize rebuilds width-dependent styles for new terminal dimensions.
func (t *Theme) Resize(width, height int) {
	*t = *New(width, height)
}
