// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mgrindal/inkwell-tui/internal/model"
)

// =============================================================================
// EVENTS
// =============================================================================

// EventType identifies what changed in the store.
type EventType string

const (
	EventSessionCreated  EventType = "session_created"
	EventSessionUpdated  EventType = "session_updated"
	EventSessionDeleted  EventType = "session_deleted"
	EventMessageAppended EventType = "message_appended"
	EventMessageUpdated  EventType = "message_updated"
	EventMessageDeleted  EventType = "message_deleted"
	// EventRollback reports the removal of a failed exchange's user and
	// assistant messages as one batch, so observers never render a
	// half-rolled-back transcript.
	EventRollback EventType = "rollback"
)

// Event describes one store mutation.
type Event struct {
	Type       EventType
	SessionID  string
	MessageIDs []string
}

// Observer receives store events. Callbacks run synchronously on the
// mutating goroutine: a read performed inside the callback sees the state
// the event describes.
type Observer func(Event)

// =============================================================================
// STORE FACADE
// =============================================================================

// Store is the observable session store.
//
// The in-memory copy is authoritative; every mutation is written through
// to the Repository. Repository failures are logged and returned, but the
// in-memory mutation stands so the UI stays consistent with what the user
// saw.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session

	obsMu     sync.RWMutex
	observers map[int]Observer
	nextObs   int

	repo Repository
	log  zerolog.Logger
}

// New creates a store backed by repo.
func New(repo Repository, log zerolog.Logger) *Store {
	if repo == nil {
		repo = NullRepository{}
	}
	return &Store{
		sessions:  make(map[string]*model.Session),
		observers: make(map[int]Observer),
		repo:      repo,
		log:       log,
	}
}

// LoadAll hydrates the in-memory copy from the repository.
func (s *Store) LoadAll(ctx context.Context) error {
	metas, err := s.repo.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, meta := range metas {
		sess, err := s.repo.LoadSession(ctx, meta.ID)
		if err != nil {
			s.log.Warn().Str("session", meta.ID).Err(err).Msg("skipping unloadable session")
			continue
		}
		s.sessions[sess.ID] = sess
	}
	return nil
}

// =============================================================================
// OBSERVERS
// =============================================================================

// Subscribe registers an observer and returns its id for Unsubscribe.
func (s *Store) Subscribe(obs Observer) int {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = obs
	return id
}

// Unsubscribe removes an observer. Unknown ids are ignored, so releasing
// a subscription twice is harmless.
func (s *Store) Unsubscribe(id int) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	delete(s.observers, id)
}

// notify calls every observer synchronously. Never called with s.mu held:
// observers are allowed to read the store.
func (s *Store) notify(ev Event) {
	s.obsMu.RLock()
	obs := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		obs = append(obs, o)
	}
	s.obsMu.RUnlock()

	for _, o := range obs {
		o(ev)
	}
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// CreateSession creates and persists a new empty session.
func (s *Store) CreateSession(ctx context.Context) (*model.Session, error) {
	sess := model.NewSession()

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	if err := s.repo.CreateSession(ctx, sess); err != nil {
		// Undo the in-memory insert so memory and disk agree and
		// observers never hear about a session that does not exist.
		s.mu.Lock()
		delete(s.sessions, sess.ID)
		s.mu.Unlock()
		s.log.Error().Str("session", sess.ID).Err(err).Msg("failed to persist new session")
		return nil, err
	}

	s.notify(Event{Type: EventSessionCreated, SessionID: sess.ID})
	return sess.Clone(), nil
}

// Session returns a deep copy of a session, or nil if unknown.
func (s *Store) Session(id string) *model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil
	}
	return sess.Clone()
}

// Messages returns a deep copy of a session's message list.
func (s *Store) Messages(sessionID string) []*model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]*model.Message, len(sess.Messages))
	for i, m := range sess.Messages {
		out[i] = m.Clone()
	}
	return out
}

// ListSessions returns metadata for all sessions, most recently updated
// first.
func (s *Store) ListSessions() []model.SessionMeta {
	s.mu.RLock()
	metas := make([]model.SessionMeta, 0, len(s.sessions))
	for _, sess := range s.sessions {
		metas = append(metas, sess.Meta())
	}
	s.mu.RUnlock()

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas
}

// DeleteSession removes a session everywhere.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		// Restore the in-memory copy so a failed delete leaves the
		// session fully intact rather than half gone.
		s.mu.Lock()
		s.sessions[sessionID] = sess
		s.mu.Unlock()
		s.log.Error().Str("session", sessionID).Err(err).Msg("failed to delete persisted session")
		return err
	}

	s.notify(Event{Type: EventSessionDeleted, SessionID: sessionID})
	return nil
}

// SetTitle renames a session.
func (s *Store) SetTitle(ctx context.Context, sessionID, title string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	sess.SetTitle(title)
	clone := sess.Clone()
	s.mu.Unlock()

	if err := s.repo.SaveSession(ctx, clone); err != nil {
		s.log.Error().Str("session", sessionID).Err(err).Msg("failed to persist title change")
		return err
	}

	s.notify(Event{Type: EventSessionUpdated, SessionID: sessionID})
	return nil
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// AppendMessage adds a message to a session and persists it. The store
// keeps its own copy; callers must mutate only through store methods.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, msg *model.Message) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	hadTitle := sess.Title != ""
	sess.AppendMessage(msg.Clone())
	clone := sess.Clone()
	s.mu.Unlock()

	if err := s.repo.AppendMessage(ctx, sessionID, msg); err != nil {
		s.log.Error().Str("session", sessionID).Str("message", msg.ID).Err(err).
			Msg("failed to persist message")
		return err
	}
	// First user message may have derived the title.
	if !hadTitle && clone.Title != "" {
		if err := s.repo.SaveSession(ctx, clone); err != nil {
			s.log.Warn().Str("session", sessionID).Err(err).Msg("failed to persist derived title")
		}
	}

	s.notify(Event{Type: EventMessageAppended, SessionID: sessionID, MessageIDs: []string{msg.ID}})
	return nil
}

// UpdateMessageContent overwrites a message's content. Used by the
// streaming engine to apply cumulative deltas.
func (s *Store) UpdateMessageContent(ctx context.Context, sessionID, messageID, content string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	msg := sess.MessageByID(messageID)
	if msg == nil {
		s.mu.Unlock()
		return ErrMessageNotFound
	}
	msg.Content = content
	sess.Touch()
	persisted := msg.Clone()
	s.mu.Unlock()

	if err := s.repo.UpdateMessage(ctx, sessionID, persisted); err != nil {
		s.log.Error().Str("session", sessionID).Str("message", messageID).Err(err).
			Msg("failed to persist content update")
		return err
	}

	s.notify(Event{Type: EventMessageUpdated, SessionID: sessionID, MessageIDs: []string{messageID}})
	return nil
}

// FinalizeMessage ends a message's streaming state, setting its final
// content and statistics.
func (s *Store) FinalizeMessage(ctx context.Context, sessionID, messageID, content string, stats *model.Statistics) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	msg := sess.MessageByID(messageID)
	if msg == nil {
		s.mu.Unlock()
		return ErrMessageNotFound
	}
	msg.Content = content
	msg.Finalize(stats)
	sess.Touch()
	persisted := msg.Clone()
	s.mu.Unlock()

	if err := s.repo.UpdateMessage(ctx, sessionID, persisted); err != nil {
		s.log.Error().Str("session", sessionID).Str("message", messageID).Err(err).
			Msg("failed to persist finalized message")
		return err
	}

	s.notify(Event{Type: EventMessageUpdated, SessionID: sessionID, MessageIDs: []string{messageID}})
	return nil
}

// DeleteMessage removes one message.
func (s *Store) DeleteMessage(ctx context.Context, sessionID, messageID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	if !sess.RemoveMessage(messageID) {
		s.mu.Unlock()
		return ErrMessageNotFound
	}
	s.mu.Unlock()

	if err := s.repo.DeleteMessage(ctx, sessionID, messageID); err != nil {
		s.log.Error().Str("session", sessionID).Str("message", messageID).Err(err).
			Msg("failed to delete persisted message")
		return err
	}

	s.notify(Event{Type: EventMessageDeleted, SessionID: sessionID, MessageIDs: []string{messageID}})
	return nil
}

// RollbackExchange removes a failed exchange's user and assistant messages
// as one atomic batch with a single notification. Missing messages are
// skipped so rollback is idempotent.
func (s *Store) RollbackExchange(ctx context.Context, sessionID string, messageIDs ...string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	var removed []string
	for _, id := range messageIDs {
		if sess.RemoveMessage(id) {
			removed = append(removed, id)
		}
	}
	s.mu.Unlock()

	if len(removed) == 0 {
		return nil
	}

	for _, id := range removed {
		if err := s.repo.DeleteMessage(ctx, sessionID, id); err != nil {
			s.log.Error().Str("session", sessionID).Str("message", id).Err(err).
				Msg("failed to delete persisted message during rollback")
		}
	}

	s.notify(Event{Type: EventRollback, SessionID: sessionID, MessageIDs: removed})
	return nil
}

// =============================================================================
// SEARCH
// =============================================================================

// Search returns sessions whose title or any message content contains the
// query, case-insensitively. An empty query returns all sessions.
func (s *Store) Search(query string) []model.SessionMeta {
	if query == "" {
		return s.ListSessions()
	}
	query = strings.ToLower(query)

	s.mu.RLock()
	var metas []model.SessionMeta
	for _, sess := range s.sessions {
		if sessionMatches(sess, query) {
			metas = append(metas, sess.Meta())
		}
	}
	s.mu.RUnlock()

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas
}

func sessionMatches(sess *model.Session, lowerQuery string) bool {
	if strings.Contains(strings.ToLower(sess.Title), lowerQuery) {
		return true
	}
	for _, msg := range sess.Messages {
		if strings.Contains(strings.ToLower(msg.Content), lowerQuery) {
			return true
		}
	}
	return false
}
