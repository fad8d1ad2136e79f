// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions, messages,
// and knowledge fragments.
//
// A Session is one persisted conversation thread containing ordered
// Messages. A Fragment is an external snippet (scanned text, note excerpt,
// image description, link, or file reference) that can be merged into the
// outgoing prompt without ever appearing in the persisted transcript.
//
// Invariants maintained here:
//   - a session's message sequence is append-mostly; removals never reorder
//     the remaining messages
//   - at most one message per session is streaming at any instant
//   - a message's Timestamp is set at creation and never changes
package model
