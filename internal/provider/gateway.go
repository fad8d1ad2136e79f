// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider defines the gateway to the language-model backend and
// its concrete HTTP implementation.
//
// The engine only sees the Gateway interface: dispatch a request, read
// cumulative deltas from a StreamHandle, abort when asked. The wire
// protocol (Ollama-compatible NDJSON over HTTP) is confined to Client.
package provider

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// WIRE MESSAGES
// =============================================================================

// Message is one turn of conversation history as sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one dispatch to the provider.
type Request struct {
	// Model is the model name; empty uses the client default.
	Model string
	// Messages is the full conversation history, oldest first. The last
	// entry carries the composed prompt for the current turn.
	Messages []Message
}

// =============================================================================
// DELTAS
// =============================================================================

// Delta is one increment of streamed output.
//
// Content is cumulative: each delta carries the full text produced so far,
// not just the newest tokens. Consumers reconcile by overwriting, which
// makes dropped intermediate deltas harmless.
type Delta struct {
	// Content is the complete text generated so far.
	Content string
	// Done marks the final delta of a successful stream.
	Done bool
	// Err is set on the final delta when the stream failed. A cancelled
	// stream reports context.Canceled.
	Err error
	// Stats is populated on the final successful delta.
	Stats *Stats
}

// Stats holds generation statistics reported by the provider.
type Stats struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalDuration    time.Duration
	EvalDuration     time.Duration
	// TTFT is the time from dispatch to the first content delta.
	TTFT time.Duration
	// TokensPerSecond is computed from CompletionTokens and EvalDuration.
	TokensPerSecond float64
}

// =============================================================================
// STREAM HANDLE
// =============================================================================

// StreamHandle identifies one in-flight streaming exchange.
//
// The deltas channel is closed after the terminal delta (Done or Err set)
// has been delivered. Abort is idempotent and safe from any goroutine.
type StreamHandle struct {
	deltas    <-chan Delta
	abort     context.CancelFunc
	abortOnce sync.Once
}

// NewStreamHandle wraps a delta channel and an abort function. Exposed so
// gateway implementations outside this package can construct handles.
func NewStreamHandle(deltas <-chan Delta, abort context.CancelFunc) *StreamHandle {
	if abort == nil {
		abort = func() {}
	}
	return &StreamHandle{deltas: deltas, abort: abort}
}

// Deltas returns the channel of cumulative deltas.
func (h *StreamHandle) Deltas() <-chan Delta {
	return h.deltas
}

// Abort cancels the underlying stream. The consumer still receives a
// terminal delta (Err = context.Canceled) and then the channel closes.
func (h *StreamHandle) Abort() {
	h.abortOnce.Do(h.abort)
}

// Close aborts the stream and drains remaining deltas so the producer
// goroutine can exit. Call only after the consumer loop has stopped
// reading.
func (h *StreamHandle) Close() {
	h.Abort()
	for range h.deltas {
	}
}

// =============================================================================
// GATEWAY
// =============================================================================

// Gateway is the abstract boundary to the language-model backend.
type Gateway interface {
	// Dispatch starts a streaming exchange. On success the returned handle
	// delivers cumulative deltas until a terminal delta arrives.
	Dispatch(ctx context.Context, req Request) (*StreamHandle, error)

	// Complete performs a one-shot, non-streaming exchange.
	Complete(ctx context.Context, req Request) (string, *Stats, error)
}
