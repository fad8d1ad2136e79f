// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/mgrindal/inkwell-tui/internal/store"
)

// =============================================================================
// PROGRAM MESSAGES
// =============================================================================

// StoreEventMsg carries a session store event into the program loop. The
// store notifies synchronously on its caller's goroutine, so events are
// forwarded through Program.Send rather than handled inline.
type StoreEventMsg struct {
	Event store.Event
}

// NoticeMsg carries an exchange failure notice from the engine.
type NoticeMsg struct {
	SessionID string
	Err       error
}

// clearNoticeMsg dismisses the error banner after its display window.
type clearNoticeMsg struct {
	seq int
}
