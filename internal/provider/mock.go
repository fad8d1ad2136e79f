// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"sync"
)

// =============================================================================
// MOCK GATEWAY
// =============================================================================

// Mock is a scripted Gateway for tests.
//
// Each Dispatch replays Script as cumulative deltas. Set Gate to step the
// stream manually: one receive is required before each delta is emitted.
// Set DispatchErr to fail dispatch synchronously; set FailAfter >= 0 to
// inject a stream error after that many deltas.
type Mock struct {
	// Script is the sequence of cumulative content values to emit.
	Script []string
	// Stats is attached to the final delta.
	Stats *Stats
	// DispatchErr, when set, is returned by Dispatch before any mutation.
	DispatchErr error
	// FailAfter injects a stream error after emitting that many script
	// entries. -1 disables injection.
	FailAfter int
	// FailErr is the injected error (defaults to a connection ClientError).
	FailErr error
	// Gate, when non-nil, is received from before each delta and before
	// the terminal event, letting tests control stream pacing.
	Gate chan struct{}
	// CompleteContent is returned by Complete.
	CompleteContent string

	mu       sync.Mutex
	requests []Request
}

// NewMock creates a mock that streams the given cumulative deltas.
func NewMock(script ...string) *Mock {
	return &Mock{Script: script, FailAfter: -1}
}

// Requests returns a copy of all dispatched requests.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent dispatched request, or nil.
func (m *Mock) LastRequest() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	r := m.requests[len(m.requests)-1]
	return &r
}

// Dispatch records the request and starts replaying the script.
func (m *Mock) Dispatch(ctx context.Context, req Request) (*StreamHandle, error) {
	if m.DispatchErr != nil {
		return nil, m.DispatchErr
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	streamCtx, cancel := context.WithCancel(ctx)
	deltas := make(chan Delta)

	go func() {
		defer close(deltas)
		defer cancel()

		emit := func(d Delta) bool {
			select {
			case deltas <- d:
				return true
			case <-streamCtx.Done():
				// Terminal cancellation delta, then stop.
				select {
				case deltas <- Delta{Content: lastContent(m.Script, d), Err: context.Canceled}:
				default:
				}
				return false
			}
		}

		for i, content := range m.Script {
			if !m.pass(streamCtx, deltas, i) {
				return
			}
			if m.FailAfter >= 0 && i == m.FailAfter {
				failErr := m.FailErr
				if failErr == nil {
					failErr = &ClientError{Type: ErrTypeConnection, Message: "injected stream failure"}
				}
				emit(Delta{Content: prevContent(m.Script, i), Err: failErr})
				return
			}
			if !emit(Delta{Content: content}) {
				return
			}
		}

		if !m.pass(streamCtx, deltas, len(m.Script)) {
			return
		}
		if m.FailAfter >= 0 && m.FailAfter >= len(m.Script) {
			failErr := m.FailErr
			if failErr == nil {
				failErr = &ClientError{Type: ErrTypeConnection, Message: "injected stream failure"}
			}
			emit(Delta{Content: prevContent(m.Script, len(m.Script)), Err: failErr})
			return
		}
		emit(Delta{Content: prevContent(m.Script, len(m.Script)), Done: true, Stats: m.Stats})
	}()

	return NewStreamHandle(deltas, cancel), nil
}

// pass waits on the gate if configured. Returns false on cancellation,
// after emitting the terminal cancellation delta.
func (m *Mock) pass(ctx context.Context, deltas chan<- Delta, step int) bool {
	if m.Gate == nil {
		return ctx.Err() == nil
	}
	select {
	case <-m.Gate:
		return true
	case <-ctx.Done():
		select {
		case deltas <- Delta{Content: prevContent(m.Script, step), Err: context.Canceled}:
		default:
		}
		return false
	}
}

// Complete returns the scripted completion.
func (m *Mock) Complete(ctx context.Context, req Request) (string, *Stats, error) {
	if m.DispatchErr != nil {
		return "", nil, m.DispatchErr
	}
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.CompleteContent, m.Stats, nil
}

// prevContent returns the cumulative content before step i.
func prevContent(script []string, i int) string {
	if i == 0 || len(script) == 0 {
		return ""
	}
	if i > len(script) {
		i = len(script)
	}
	return script[i-1]
}

func lastContent(script []string, d Delta) string {
	if d.Content != "" {
		return d.Content
	}
	if len(script) == 0 {
		return ""
	}
	return script[len(script)-1]
}

var _ Gateway = (*Mock)(nil)
