// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides session persistence and the observable session
// store facade.
//
// The facade holds the authoritative in-memory copy of every session and
// writes through to a Repository on each mutation. Observers are notified
// synchronously, so a read performed from an observer callback always sees
// the state the notification describes.
package store

import (
	"context"

	"github.com/mgrindal/inkwell-tui/internal/model"
)

// =============================================================================
// REPOSITORY ERRORS
// =============================================================================

// ErrSessionNotFound is returned when a session ID does not exist.
// Use errors.Is(err, ErrSessionNotFound) to check for this error.
var ErrSessionNotFound = &StoreError{Message: "session not found"}

// ErrMessageNotFound is returned when a message ID does not exist.
var ErrMessageNotFound = &StoreError{Message: "message not found"}

// StoreError represents a persistence-related error.
// It implements the error interface and can be compared using errors.Is.
type StoreError struct {
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing store errors.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// REPOSITORY INTERFACE
// =============================================================================

// Repository persists sessions and messages. Implementations must be safe
// for concurrent use.
type Repository interface {
	// CreateSession persists a new session record.
	CreateSession(ctx context.Context, s *model.Session) error

	// SaveSession updates session metadata (title, timestamps).
	SaveSession(ctx context.Context, s *model.Session) error

	// AppendMessage persists a message at the end of a session.
	AppendMessage(ctx context.Context, sessionID string, msg *model.Message) error

	// UpdateMessage rewrites a persisted message's content and statistics.
	UpdateMessage(ctx context.Context, sessionID string, msg *model.Message) error

	// DeleteMessage removes one message.
	DeleteMessage(ctx context.Context, sessionID, messageID string) error

	// DeleteSession removes a session and all its messages.
	DeleteSession(ctx context.Context, sessionID string) error

	// ListSessions returns metadata for all sessions, most recent first.
	ListSessions(ctx context.Context) ([]model.SessionMeta, error)

	// LoadSession loads a full session with its messages in order.
	LoadSession(ctx context.Context, id string) (*model.Session, error)

	// Close releases underlying resources.
	Close() error
}

// =============================================================================
// NULL REPOSITORY
// =============================================================================

// NullRepository discards all writes. Used when persistence is disabled
// and in tests that only exercise the in-memory facade.
type NullRepository struct{}

func (NullRepository) CreateSession(context.Context, *model.Session) error { return nil }
func (NullRepository) SaveSession(context.Context, *model.Session) error   { return nil }
func (NullRepository) AppendMessage(context.Context, string, *model.Message) error {
	return nil
}
func (NullRepository) UpdateMessage(context.Context, string, *model.Message) error {
	return nil
}
func (NullRepository) DeleteMessage(context.Context, string, string) error { return nil }
func (NullRepository) DeleteSession(context.Context, string) error         { return nil }
func (NullRepository) ListSessions(context.Context) ([]model.SessionMeta, error) {
	return nil, nil
}
func (NullRepository) LoadSession(context.Context, string) (*model.Session, error) {
	return nil, ErrSessionNotFound
}
func (NullRepository) Close() error { return nil }
