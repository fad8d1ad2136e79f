// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"
)

// =============================================================================
// STREAM READER
// =============================================================================

// streamReader turns an NDJSON response body into cumulative deltas.
//
// The wire protocol sends incremental token chunks; the reader accumulates
// them so that every Delta carries the full text so far. Consumers then
// reconcile by overwriting instead of appending.
type streamReader struct {
	reader *bufio.Reader
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	accumulator strings.Builder
	startTime   time.Time
	firstToken  time.Time
}

func newStreamReader(r io.Reader) *streamReader {
	return &streamReader{
		reader:    bufio.NewReader(r),
		startTime: time.Now(),
	}
}

// streamLine is the on-wire shape of one NDJSON line.
type streamLine struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason,omitempty"`
	Error           string `json:"error,omitempty"`
	TotalDuration   int64  `json:"total_duration,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
	EvalDuration    int64  `json:"eval_duration,omitempty"`
}

// run reads the stream and sends deltas until a terminal line, a read
// error, or context cancellation. It always sends exactly one terminal
// delta (Done or Err set) before returning.
func (s *streamReader) run(ctx context.Context, out chan<- Delta) {
	var model string
	for {
		line, err := s.reader.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			s.sendTerminalErr(ctx, out, err)
			return
		}

		var resp streamLine
		if jsonErr := json.Unmarshal(line, &resp); jsonErr != nil {
			// Skip malformed lines unless the read already hit an error.
			if err != nil {
				s.sendTerminalErr(ctx, out, err)
				return
			}
			continue
		}

		if resp.Model != "" {
			model = resp.Model
		}
		if resp.Error != "" {
			s.sendTerminalErr(ctx, out, &ClientError{Type: ErrTypeInvalidResponse, Message: resp.Error})
			return
		}

		if resp.Message.Content != "" {
			if s.firstToken.IsZero() {
				s.firstToken = time.Now()
			}
			s.accumulator.WriteString(resp.Message.Content)
		}

		if resp.Done {
			stats := &Stats{
				Model:            model,
				PromptTokens:     resp.PromptEvalCount,
				CompletionTokens: resp.EvalCount,
				TotalDuration:    time.Duration(resp.TotalDuration),
				EvalDuration:     time.Duration(resp.EvalDuration),
			}
			if !s.firstToken.IsZero() {
				stats.TTFT = s.firstToken.Sub(s.startTime)
			}
			if stats.EvalDuration > 0 {
				stats.TokensPerSecond = float64(stats.CompletionTokens) / stats.EvalDuration.Seconds()
			}
			s.send(ctx, out, Delta{Content: s.accumulator.String(), Done: true, Stats: stats})
			return
		}

		if resp.Message.Content != "" {
			if !s.send(ctx, out, Delta{Content: s.accumulator.String()}) {
				return
			}
		}

		if err != nil {
			// The last line parsed but the read errored; without a Done
			// marker the stream is truncated.
			s.sendTerminalErr(ctx, out, err)
			return
		}
	}
}

// send delivers a delta unless the context is cancelled. Returns false
// when the consumer is gone.
func (s *streamReader) send(ctx context.Context, out chan<- Delta, d Delta) bool {
	select {
	case out <- d:
		return true
	case <-ctx.Done():
		return false
	}
}

// sendTerminalErr delivers the terminal error delta. Cancellation maps to
// context.Canceled so consumers can tell a user stop from a failure; the
// delivery itself is best-effort because the consumer may already be gone.
func (s *streamReader) sendTerminalErr(ctx context.Context, out chan<- Delta, err error) {
	if ctx.Err() != nil {
		err = context.Canceled
	} else if err == io.EOF {
		err = &ClientError{Type: ErrTypeConnection, Message: "stream ended without completion"}
	}
	select {
	case out <- Delta{Content: s.accumulator.String(), Err: err}:
	case <-time.After(100 * time.Millisecond):
	}
}
