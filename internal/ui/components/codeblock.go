// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable view components for the inkwell TUI.
package components

import (
	"strings"

	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// =============================================================================
// CODE BLOCK HIGHLIGHTING
// =============================================================================

// HighlightCode returns source highlighted with ANSI escapes for terminal
// display. Unknown languages fall back to lexer auto-detection, and any
// highlighting failure returns the source unchanged.
func HighlightCode(source, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(source)
	}
	if lexer == nil {
		return source
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		return source
	}

	style := styles.Get("catppuccin-mocha")
	if style == nil {
		style = styles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return source
	}

	var sb strings.Builder
	if err := formatter.Format(&sb, style, iterator); err != nil {
		return source
	}
	return strings.TrimRight(sb.String(), "\n")
}

// HighlightFences rewrites fenced code blocks in markdown-ish text with
// highlighted equivalents. Used when full markdown rendering is disabled
// but code should still be readable.
func HighlightFences(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	var block []string
	var lang string
	inBlock := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if inBlock {
				out = append(out, HighlightCode(strings.Join(block, "\n"), lang))
				block = block[:0]
				inBlock = false
			} else {
				lang = strings.TrimPrefix(trimmed, "```")
				inBlock = true
			}
			continue
		}
		if inBlock {
			block = append(block, line)
			continue
		}
		out = append(out, line)
	}

	// Unterminated fence: emit what accumulated rather than dropping it.
	if inBlock {
		out = append(out, HighlightCode(strings.Join(block, "\n"), lang))
	}
	return strings.Join(out, "\n")
}
