// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/mgrindal/inkwell-tui/internal/model"
	"github.com/mgrindal/inkwell-tui/internal/util"
)

// =============================================================================
// SESSION EXPORT
// =============================================================================

// ExportMarkdown renders a session as a Markdown document with metadata,
// timestamps, and role labels.
func ExportMarkdown(sess *model.Session) string {
	var sb strings.Builder
	sb.WriteString("# " + sess.DisplayTitle() + "\n\n")
	sb.WriteString("Created: " + sess.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range sess.Messages {
		sb.WriteString("**" + msg.Role.DisplayName() + "** (" + msg.Timestamp.Format("15:04") + "):\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}

// ExportJSON renders a session as pretty-printed JSON.
func ExportJSON(sess *model.Session) ([]byte, error) {
	return json.MarshalIndent(sess, "", "  ")
}

// WriteExport writes an exported session to path atomically.
func WriteExport(path string, data []byte) error {
	return util.AtomicWriteFile(path, data, 0644)
}

// =============================================================================
// SESSION LIST FORMATTING
// =============================================================================

// FormatSessionList renders session metadata as a plain-text table for
// line-mode output.
func FormatSessionList(metas []model.SessionMeta) string {
	if len(metas) == 0 {
		return "No sessions found."
	}

	var sb strings.Builder
	sb.WriteString("Sessions:\n")
	sb.WriteString("-----------------------------------------------------\n")
	sb.WriteString(util.PadRight("ID", 12) + " " + util.PadRight("Updated", 17) + " " + util.PadRight("Messages", 8) + " Title\n")
	sb.WriteString("-----------------------------------------------------\n")

	for _, m := range metas {
		id := m.ID
		if len(id) > 12 {
			id = id[:12]
		}
		sb.WriteString(util.PadRight(id, 12) + " " +
			util.PadRight(m.UpdatedAt.Format("2006-01-02 15:04"), 17) + " " +
			util.PadRight(strconv.Itoa(m.MessageCount), 8) + " " +
			util.TruncateRunes(m.Title, 40) + "\n")
	}
	return sb.String()
}
