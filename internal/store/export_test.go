// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgrindal/inkwell-tui/internal/model"
)

func exportFixture() *model.Session {
	sess := model.NewSession()
	sess.AppendMessage(model.NewUserMessage("What is a zettelkasten?"))
	asst := model.NewAssistantPlaceholder()
	asst.Content = "A note-linking method."
	asst.IsStreaming = false
	asst.TokenCount = 6
	sess.AppendMessage(asst)
	return sess
}

func TestExportJSONRoundTrips(t *testing.T) {
	sess := exportFixture()

	data, err := ExportJSON(sess)
	require.NoError(t, err)

	var decoded model.Session
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, sess.ID, decoded.ID)
	require.Len(t, decoded.Messages, 2)
	assert.Equal(t, model.RoleUser, decoded.Messages[0].Role)
	assert.Equal(t, "A note-linking method.", decoded.Messages[1].Content)
	assert.Equal(t, 6, decoded.Messages[1].TokenCount)
	// The streaming flag must never survive serialization.
	assert.False(t, decoded.Messages[1].IsStreaming)
}

func TestWriteExportCreatesFile(t *testing.T) {
	sess := exportFixture()
	path := filepath.Join(t.TempDir(), "export", "session.md")

	require.NoError(t, WriteExport(path, []byte(ExportMarkdown(sess))))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "What is a zettelkasten?")
	assert.Contains(t, string(data), "**Assistant**")
}
