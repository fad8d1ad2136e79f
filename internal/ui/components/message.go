// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/mgrindal/inkwell-tui/internal/model"
	"github.com/mgrindal/inkwell-tui/internal/ui/styles"
)

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// markdownCache holds one glamour renderer per wrap width. Renderer
// construction is expensive; resize events are rare.
type markdownCache struct {
	mu        sync.Mutex
	width     int
	renderer  *glamour.TermRenderer
	available bool
}

var mdCache markdownCache

func renderMarkdown(content string, width int) (string, bool) {
	mdCache.mu.Lock()
	defer mdCache.mu.Unlock()

	if mdCache.renderer == nil || mdCache.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			mdCache.available = false
			return "", false
		}
		mdCache.renderer = r
		mdCache.width = width
		mdCache.available = true
	}
	if !mdCache.available {
		return "", false
	}

	out, err := mdCache.renderer.Render(content)
	if err != nil {
		return "", false
	}
	return strings.TrimRight(out, "\n"), true
}

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

// MessageOptions controls how a message is rendered.
type MessageOptions struct {
	Width    int
	Markdown bool
}

// streamCursor marks the live end of a streaming assistant message.
const streamCursor = "▌"

// RenderMessage renders one conversation message: a role label line, the
// body (markdown-rendered for completed assistant messages), and a stats
// line when generation statistics are present.
func RenderMessage(theme *styles.Theme, msg *model.Message, opts MessageOptions) string {
	if opts.Width <= 0 {
		opts.Width = 80
	}

	var sb strings.Builder
	sb.WriteString(roleLabel(theme, msg.Role))
	sb.WriteString("  ")
	sb.WriteString(theme.Timestamp.Render(msg.Timestamp.Format("15:04")))
	sb.WriteString("\n")
	sb.WriteString(renderBody(theme, msg, opts))

	if stats := statsSuffix(msg); stats != "" {
		sb.WriteString("\n")
		sb.WriteString(theme.StatsLine.Render(stats))
	}
	return sb.String()
}

func roleLabel(theme *styles.Theme, role model.Role) string {
	switch role {
	case model.RoleUser:
		return theme.UserLabel.Render(role.DisplayName())
	case model.RoleAssistant:
		return theme.AssistantLabel.Render(role.DisplayName())
	default:
		return theme.SystemLabel.Render(role.DisplayName())
	}
}

func renderBody(theme *styles.Theme, msg *model.Message, opts MessageOptions) string {
	content := msg.Content

	if msg.IsStreaming {
		if content == "" {
			return theme.Thinking.Render("thinking") + " " + streamCursor
		}
		// PERFORMANCE: streaming bodies skip markdown rendering; partial
		// markdown renders badly and re-rendering every delta is wasteful.
		return theme.MessageBody.Render(content) + streamCursor
	}

	if msg.Role == model.RoleAssistant && opts.Markdown {
		if out, ok := renderMarkdown(content, opts.Width); ok {
			return out
		}
	}
	if msg.Role == model.RoleAssistant {
		return theme.MessageBody.Render(HighlightFences(content))
	}
	return theme.MessageBody.Render(content)
}

func statsSuffix(msg *model.Message) string {
	if msg.TokenCount == 0 || msg.IsStreaming {
		return ""
	}
	parts := []string{fmt.Sprintf("%d tokens", msg.TokenCount)}
	if msg.TokensPerSec > 0 {
		parts = append(parts, fmt.Sprintf("%.1f tok/s", msg.TokensPerSec))
	}
	if msg.TTFT > 0 {
		parts = append(parts, fmt.Sprintf("ttft %s", msg.TTFT.Round(time.Millisecond)))
	}
	return strings.Join(parts, " | ")
}
