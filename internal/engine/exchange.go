// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/mgrindal/inkwell-tui/internal/model"
	"github.com/mgrindal/inkwell-tui/internal/provider"
)

// =============================================================================
// EXCHANGE
// =============================================================================

// exchange is one in-flight request/response cycle. It is created by
// SendMessage, lives in its own goroutine, and is destroyed on one of
// three exit paths: end, error, or stop.
type exchange struct {
	engine      *Engine
	sessionID   string
	userID      string
	assistantID string

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	status  Status
	buffer  string
	stopped bool
	handle  *provider.StreamHandle

	stats *model.Statistics

	// finishOnce guards the terminal transcript mutation (finalize or
	// rollback); cleanupOnce guards listener release. Both must fire
	// exactly once whichever exit path wins the race.
	finishOnce  sync.Once
	cleanupOnce sync.Once
}

func (ex *exchange) currentStatus() Status {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.status
}

// =============================================================================
// RUN LOOP
// =============================================================================

// run dispatches the request and consumes deltas until a terminal event.
func (ex *exchange) run(req provider.Request) {
	handle, err := ex.engine.gateway.Dispatch(ex.ctx, req)
	if err != nil {
		if ex.wasStopped() || errors.Is(err, context.Canceled) {
			// Stop raced the dispatch; the partial (empty) content was
			// already finalized by stop().
			ex.finishKeep()
		} else {
			ex.finishRollback(err)
		}
		ex.release()
		return
	}

	if !ex.adopt(handle) {
		// Stopped while the connection was being established.
		handle.Abort()
		ex.finishKeep()
		ex.release()
		return
	}

	for delta := range handle.Deltas() {
		if delta.Err != nil {
			if errors.Is(delta.Err, context.Canceled) {
				ex.finishKeep()
			} else {
				ex.finishRollback(delta.Err)
			}
			ex.release()
			return
		}

		ex.applyDelta(delta.Content)

		if delta.Done {
			ex.finishComplete(delta)
			ex.release()
			return
		}
	}

	// Channel closed without a terminal delta: the stream was torn down
	// without telling us why.
	ex.finishRollback(&provider.ClientError{
		Type:    provider.ErrTypeConnection,
		Message: "stream closed without completion",
	})
	ex.release()
}

// adopt records the stream handle and moves to streaming. Returns false
// if the exchange was already stopped.
func (ex *exchange) adopt(handle *provider.StreamHandle) bool {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	if ex.stopped {
		return false
	}
	ex.handle = handle
	ex.status = StatusStreaming
	return true
}

// applyDelta overwrites the buffer with the cumulative content and writes
// it through to the placeholder message. Deltas arriving after stop are
// dropped; the stopped transcript already holds its final value.
func (ex *exchange) applyDelta(content string) {
	ex.mu.Lock()
	if ex.stopped {
		ex.mu.Unlock()
		return
	}
	ex.buffer = content
	ex.mu.Unlock()

	if content != "" {
		ex.stats.RecordFirstToken()
	}
	if err := ex.engine.store.UpdateMessageContent(context.Background(), ex.sessionID, ex.assistantID, content); err != nil {
		ex.engine.log.Error().Str("session", ex.sessionID).Err(err).Msg("failed to apply delta")
	}
}

func (ex *exchange) wasStopped() bool {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.stopped
}

// =============================================================================
// EXIT PATHS
// =============================================================================

// finishComplete finalizes the assistant message on a successful end
// event.
func (ex *exchange) finishComplete(final provider.Delta) {
	ex.finishOnce.Do(func() {
		ex.mu.Lock()
		ex.buffer = final.Content
		ex.mu.Unlock()

		stats := ex.stats
		stats.Finalize(len(final.Content) / 4)
		if final.Stats != nil {
			stats.PromptTokens = final.Stats.PromptTokens
			stats.CompletionTokens = final.Stats.CompletionTokens
			if final.Stats.TTFT > 0 {
				stats.TTFT = final.Stats.TTFT
			}
			if final.Stats.TokensPerSecond > 0 {
				stats.TokensPerSecond = final.Stats.TokensPerSecond
			}
		}

		if err := ex.engine.store.FinalizeMessage(context.Background(), ex.sessionID, ex.assistantID, final.Content, stats); err != nil {
			ex.engine.log.Error().Str("session", ex.sessionID).Err(err).Msg("failed to finalize message")
		}
		ex.engine.clearExchange(ex.sessionID, ex)
		ex.engine.log.Debug().Str("session", ex.sessionID).Int("tokens", stats.CompletionTokens).Msg("exchange complete")
	})
}

// finishKeep finalizes the placeholder with the buffered partial content.
// Cancellation is not an error: partial output is kept, not rolled back,
// and no notification is emitted.
func (ex *exchange) finishKeep() {
	ex.finishOnce.Do(func() {
		ex.mu.Lock()
		content := ex.buffer
		ex.mu.Unlock()

		ex.stats.Finalize(len(content) / 4)
		if err := ex.engine.store.FinalizeMessage(context.Background(), ex.sessionID, ex.assistantID, content, ex.stats); err != nil {
			ex.engine.log.Error().Str("session", ex.sessionID).Err(err).Msg("failed to finalize partial message")
		}
		ex.engine.clearExchange(ex.sessionID, ex)
	})
}

// finishRollback removes both provisional messages as one batch and
// surfaces the error through the notifier, leaving the transcript exactly
// as it was before SendMessage.
func (ex *exchange) finishRollback(cause error) {
	ex.finishOnce.Do(func() {
		if err := ex.engine.store.RollbackExchange(context.Background(), ex.sessionID, ex.userID, ex.assistantID); err != nil {
			ex.engine.log.Error().Str("session", ex.sessionID).Err(err).Msg("failed to roll back exchange")
		}
		ex.engine.clearExchange(ex.sessionID, ex)
		ex.engine.log.Warn().Str("session", ex.sessionID).Err(cause).Msg("exchange failed")
		ex.engine.notifier.Notify(ex.sessionID, cause)
	})
}

// stop is the user-initiated exit path. The session returns to ready
// immediately; the gateway abort completes in the background.
func (ex *exchange) stop() {
	ex.mu.Lock()
	if ex.stopped {
		ex.mu.Unlock()
		return
	}
	ex.stopped = true
	handle := ex.handle
	ex.mu.Unlock()

	ex.cancel()
	if handle != nil {
		handle.Abort()
	}
	ex.finishKeep()
	ex.release()
}

// release runs listener cleanup exactly once across all exit paths.
func (ex *exchange) release() {
	ex.cleanupOnce.Do(func() {
		ex.cancel()
		ex.mu.Lock()
		handle := ex.handle
		ex.handle = nil
		ex.mu.Unlock()
		if handle != nil {
			// Drains any deltas still in flight so the producer goroutine
			// can exit; drained deltas are never applied.
			go handle.Close()
		}
	})
}
