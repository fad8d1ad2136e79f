// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine drives streaming chat exchanges.
//
// The engine owns a per-session state machine (ready, submitting,
// streaming) and runs at most one exchange per session at a time. All
// transcript mutations go through the store facade, so the UI observes
// every step: the user message and assistant placeholder appear before any
// network activity, each cumulative delta overwrites the placeholder, and
// a failed exchange is rolled back as a single batch.
package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mgrindal/inkwell-tui/internal/compose"
	"github.com/mgrindal/inkwell-tui/internal/knowledge"
	"github.com/mgrindal/inkwell-tui/internal/model"
	"github.com/mgrindal/inkwell-tui/internal/provider"
	"github.com/mgrindal/inkwell-tui/internal/store"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the per-session exchange state.
type Status string

const (
	// StatusReady accepts SendMessage.
	StatusReady Status = "ready"
	// StatusSubmitting means a request is dispatched but no stream handle
	// has arrived yet.
	StatusSubmitting Status = "submitting"
	// StatusStreaming means deltas are being applied.
	StatusStreaming Status = "streaming"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrBusy is returned by SendMessage while an exchange is in flight for
// the session. The call performs no mutation.
var ErrBusy = &EngineError{Message: "an exchange is already in flight for this session"}

// ErrEmptyInput is returned by SendMessage for blank input.
var ErrEmptyInput = &EngineError{Message: "message is empty"}

// EngineError represents an engine-level error.
// It implements the error interface and can be compared using errors.Is.
type EngineError struct {
	Message string
}

func (e *EngineError) Error() string {
	return e.Message
}

func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// NOTIFIER
// =============================================================================

// Notifier receives exchange failures. The engine never lets a gateway
// error propagate past its boundary: every failure becomes one rollback
// plus exactly one Notify call.
type Notifier interface {
	Notify(sessionID string, err error)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(sessionID string, err error)

// Notify implements Notifier.
func (f NotifierFunc) Notify(sessionID string, err error) {
	f(sessionID, err)
}

// nopNotifier discards notifications.
type nopNotifier struct{}

func (nopNotifier) Notify(string, error) {}

// =============================================================================
// OPTIONS
// =============================================================================

// Options tunes dispatch behavior.
type Options struct {
	// Model overrides the gateway's default model when set.
	Model string
	// HistoryLimit caps the number of prior messages sent per request
	// (0 = all).
	HistoryLimit int
	// SystemPrompt is prepended to every dispatched conversation when set.
	SystemPrompt string
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine coordinates streaming exchanges across sessions.
type Engine struct {
	store     *store.Store
	gateway   provider.Gateway
	knowledge knowledge.Provider
	notifier  Notifier
	opts      Options
	log       zerolog.Logger

	mu           sync.Mutex
	exchanges    map[string]*exchange
	associations map[string]string
}

// New creates an engine. A nil knowledge provider disables fragment
// composition; a nil notifier discards failure notifications.
func New(st *store.Store, gw provider.Gateway, kn knowledge.Provider, notifier Notifier, opts Options, log zerolog.Logger) *Engine {
	if kn == nil {
		kn = knowledge.NewStaticProvider()
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Engine{
		store:        st,
		gateway:      gw,
		knowledge:    kn,
		notifier:     notifier,
		opts:         opts,
		log:          log,
		exchanges:    make(map[string]*exchange),
		associations: make(map[string]string),
	}
}

// SetOptions replaces dispatch options. In-flight exchanges keep the
// options they started with.
func (e *Engine) SetOptions(opts Options) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts = opts
}

// Options returns the current dispatch options.
func (e *Engine) Options() Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts
}

// =============================================================================
// ASSOCIATIONS
// =============================================================================

// SetAssociation links a session to a knowledge association. Fragments of
// that association are merged into every subsequent dispatch for the
// session. An empty id clears the association.
func (e *Engine) SetAssociation(sessionID, associationID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if associationID == "" {
		delete(e.associations, sessionID)
		return
	}
	e.associations[sessionID] = associationID
}

// Association returns the session's knowledge association, or "".
func (e *Engine) Association(sessionID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.associations[sessionID]
}

// =============================================================================
// STATUS
// =============================================================================

// Status returns the session's current exchange state. Sessions with no
// exchange in flight are ready; unknown sessions report ready too.
func (e *Engine) Status(sessionID string) Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	ex, ok := e.exchanges[sessionID]
	if !ok {
		return StatusReady
	}
	return ex.currentStatus()
}

// =============================================================================
// SEND
// =============================================================================

// SendMessage starts a new exchange for the session.
//
// The user message and an empty streaming assistant placeholder are
// appended synchronously, before any network activity, so they return
// with the method. The network exchange then runs in its own goroutine.
// While an exchange is in flight, SendMessage returns ErrBusy with zero
// mutation.
func (e *Engine) SendMessage(sessionID, rawInput string) error {
	if strings.TrimSpace(rawInput) == "" {
		return ErrEmptyInput
	}

	e.mu.Lock()
	if _, busy := e.exchanges[sessionID]; busy {
		e.mu.Unlock()
		return ErrBusy
	}
	associationID := e.associations[sessionID]
	opts := e.opts

	ctx, cancel := context.WithCancel(context.Background())
	ex := &exchange{
		engine:    e,
		sessionID: sessionID,
		ctx:       ctx,
		cancel:    cancel,
		status:    StatusSubmitting,
		stats:     model.NewStatistics(),
	}
	e.exchanges[sessionID] = ex
	e.mu.Unlock()

	// Synchronous transcript mutations. Any failure here means the
	// exchange never really started: undo and report.
	userMsg := model.NewUserMessage(rawInput)
	if err := e.store.AppendMessage(ctx, sessionID, userMsg); err != nil {
		e.clearExchange(sessionID, ex)
		return err
	}
	placeholder := model.NewAssistantPlaceholder()
	if err := e.store.AppendMessage(ctx, sessionID, placeholder); err != nil {
		e.store.RollbackExchange(ctx, sessionID, userMsg.ID)
		e.clearExchange(sessionID, ex)
		return err
	}
	ex.userID = userMsg.ID
	ex.assistantID = placeholder.ID

	req := e.buildRequest(sessionID, rawInput, associationID, opts, userMsg.ID, placeholder.ID)

	go ex.run(req)
	return nil
}

// buildRequest composes the prompt and assembles the dispatch payload:
// optional system prompt, prior history, and the composed text as the
// final user message. The persisted user message keeps rawInput; only the
// wire payload carries the fragment context.
func (e *Engine) buildRequest(sessionID, rawInput, associationID string, opts Options, userID, assistantID string) provider.Request {
	fragments, err := e.knowledge.FragmentsFor(associationID)
	if err != nil {
		// A broken fragment source must not block the send; compose with
		// nothing instead.
		e.log.Warn().Str("session", sessionID).Str("association", associationID).Err(err).
			Msg("fragment lookup failed, sending without context")
		fragments = nil
	}
	composed := compose.Compose(rawInput, fragments)

	var history []provider.Message
	if opts.SystemPrompt != "" {
		history = append(history, provider.Message{Role: model.RoleSystem.String(), Content: opts.SystemPrompt})
	}

	var prior []provider.Message
	for _, msg := range e.store.Messages(sessionID) {
		// The provisional pair is not prior history.
		if msg.ID == userID || msg.ID == assistantID {
			continue
		}
		prior = append(prior, provider.Message{Role: msg.Role.String(), Content: msg.Content})
	}
	if opts.HistoryLimit > 0 && len(prior) > opts.HistoryLimit {
		prior = prior[len(prior)-opts.HistoryLimit:]
	}
	history = append(history, prior...)
	history = append(history, provider.Message{Role: model.RoleUser.String(), Content: composed})

	return provider.Request{Model: opts.Model, Messages: history}
}

// =============================================================================
// STOP
// =============================================================================

// Stop cancels the session's in-flight exchange. The placeholder is
// finalized with whatever partial content has been buffered and the
// session returns to ready immediately; the abort round-trip completes in
// the background. Stop on a ready session is a no-op.
func (e *Engine) Stop(sessionID string) {
	e.mu.Lock()
	ex := e.exchanges[sessionID]
	e.mu.Unlock()
	if ex == nil {
		return
	}
	ex.stop()
}

// StopAll cancels every in-flight exchange. Used on shutdown.
func (e *Engine) StopAll() {
	e.mu.Lock()
	exchanges := make([]*exchange, 0, len(e.exchanges))
	for _, ex := range e.exchanges {
		exchanges = append(exchanges, ex)
	}
	e.mu.Unlock()
	for _, ex := range exchanges {
		ex.stop()
	}
}

// clearExchange removes the exchange, returning the session to ready.
// Only the given exchange is removed: a stale goroutine cannot clobber a
// newer exchange for the same session.
func (e *Engine) clearExchange(sessionID string, ex *exchange) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.exchanges[sessionID] == ex {
		delete(e.exchanges, sessionID)
	}
}
