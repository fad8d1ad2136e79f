// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Output rendering for the inkwell CLI.
//
// USABILITY: Markdown rendering on TTY for better formatting
package cli

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("3"))
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

var (
	rendererOnce sync.Once
	renderer     *glamour.TermRenderer
)

// markdownRenderer lazily builds the glamour renderer sized to the
// terminal.
func markdownRenderer() *glamour.TermRenderer {
	rendererOnce.Do(func() {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(TerminalWidth()),
		)
		if err == nil {
			renderer = r
		}
	})
	return renderer
}

// DisplayResponse prints a response, rendering markdown when stdout is a
// TTY and rendering succeeds; otherwise the raw text is printed.
func DisplayResponse(content string, markdown bool) {
	if markdown && IsStdoutTTY() {
		if r := markdownRenderer(); r != nil {
			if out, err := r.Render(content); err == nil {
				fmt.Print(out)
				return
			}
		}
	}
	fmt.Println(content)
}

// PrintError writes a formatted error line to stderr.
func PrintError(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
}

// PrintInfo writes a dimmed informational line to stdout.
func PrintInfo(msg string) {
	fmt.Println(infoStyle.Render(msg))
}
