// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(url string) *Client {
	return NewClient(&ClientConfig{BaseURL: url, DefaultModel: "test-model"}, zerolog.Nop())
}

// ndjsonHandler streams the given incremental chunks then a done line.
func ndjsonHandler(chunks []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)
		for _, c := range chunks {
			fmt.Fprintf(w, `{"model":"test-model","message":{"role":"assistant","content":%q},"done":false}`+"\n", c)
			flusher.Flush()
		}
		fmt.Fprint(w, `{"model":"test-model","message":{"role":"assistant","content":""},"done":true,"eval_count":3,"eval_duration":1000000000,"total_duration":2000000000}`+"\n")
	}
}

func TestDispatchAccumulatesCumulativeDeltas(t *testing.T) {
	srv := httptest.NewServer(ndjsonHandler([]string{"Hel", "lo ", "world"}))
	defer srv.Close()

	handle, err := newTestClient(srv.URL).Dispatch(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	var got []Delta
	for d := range handle.Deltas() {
		got = append(got, d)
	}

	if len(got) != 4 {
		t.Fatalf("got %d deltas, want 4", len(got))
	}
	// Each delta carries the full text so far.
	want := []string{"Hel", "Hello ", "Hello world", "Hello world"}
	for i, d := range got {
		if d.Content != want[i] {
			t.Errorf("delta %d content = %q, want %q", i, d.Content, want[i])
		}
	}
	final := got[len(got)-1]
	if !final.Done || final.Err != nil {
		t.Errorf("final delta = %+v, want Done with no error", final)
	}
	if final.Stats == nil {
		t.Fatal("final delta should carry stats")
	}
	if final.Stats.CompletionTokens != 3 {
		t.Errorf("CompletionTokens = %d, want 3", final.Stats.CompletionTokens)
	}
	if final.Stats.TokensPerSecond < 2.9 || final.Stats.TokensPerSecond > 3.1 {
		t.Errorf("TokensPerSecond = %f, want ~3", final.Stats.TokensPerSecond)
	}
}

func TestDispatchModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Dispatch(context.Background(), Request{})
	if !IsModelNotFound(err) {
		t.Errorf("err = %v, want model not found", err)
	}
}

func TestDispatchProviderDown(t *testing.T) {
	srv := httptest.NewServer(nil)
	srv.Close() // connection refused

	_, err := newTestClient(srv.URL).Dispatch(context.Background(), Request{})
	if !IsNotRunning(err) {
		t.Errorf("err = %v, want not running", err)
	}
}

func TestDispatchServerErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"model requires more memory"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Dispatch(context.Background(), Request{})
	var ce *ClientError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want ClientError", err)
	}
	if ce.Message != "model requires more memory" {
		t.Errorf("message = %q, want server error text", ce.Message)
	}
}

func TestDispatchAbortDeliversCanceled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprint(w, `{"message":{"content":"partial"},"done":false}`+"\n")
		flusher.Flush()
		<-release // hold the stream open
	}))
	defer srv.Close()
	defer close(release)

	handle, err := newTestClient(srv.URL).Dispatch(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	first := <-handle.Deltas()
	if first.Content != "partial" {
		t.Fatalf("first delta = %q, want partial", first.Content)
	}

	handle.Abort()

	var terminal *Delta
	deadline := time.After(2 * time.Second)
	for terminal == nil {
		select {
		case d, ok := <-handle.Deltas():
			if !ok {
				t.Fatal("channel closed without terminal delta")
			}
			if d.Err != nil || d.Done {
				terminal = &d
			}
		case <-deadline:
			t.Fatal("timed out waiting for terminal delta")
		}
	}
	if !errors.Is(terminal.Err, context.Canceled) {
		t.Errorf("terminal err = %v, want context.Canceled", terminal.Err)
	}
	if terminal.Content != "partial" {
		t.Errorf("terminal content = %q, want accumulated partial", terminal.Content)
	}
}

func TestDispatchTruncatedStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":{"content":"half"},"done":false}`+"\n")
		// Connection closes without a done marker.
	}))
	defer srv.Close()

	handle, err := newTestClient(srv.URL).Dispatch(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	var last Delta
	for d := range handle.Deltas() {
		last = d
	}
	if last.Err == nil {
		t.Error("truncated stream should end with an error delta")
	}
	if last.Done {
		t.Error("truncated stream must not report Done")
	}
}

func TestDispatchStreamErrorLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message":{"content":"ok so far"},"done":false}`+"\n")
		fmt.Fprint(w, `{"error":"model crashed"}`+"\n")
	}))
	defer srv.Close()

	handle, err := newTestClient(srv.URL).Dispatch(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	var last Delta
	for d := range handle.Deltas() {
		last = d
	}
	var ce *ClientError
	if !errors.As(last.Err, &ce) || ce.Message != "model crashed" {
		t.Errorf("terminal err = %v, want model crashed", last.Err)
	}
}

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"model":"test-model","message":{"role":"assistant","content":"42"},"done":true,"eval_count":1,"eval_duration":500000000}`)
	}))
	defer srv.Close()

	content, stats, err := newTestClient(srv.URL).Complete(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "meaning of life?"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if content != "42" {
		t.Errorf("content = %q, want 42", content)
	}
	if stats == nil || stats.CompletionTokens != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestMockReplaysScript(t *testing.T) {
	mock := NewMock("a", "ab", "abc")
	mock.Stats = &Stats{CompletionTokens: 3}

	handle, err := mock.Dispatch(context.Background(), Request{Model: "m"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	var got []Delta
	for d := range handle.Deltas() {
		got = append(got, d)
	}
	if len(got) != 4 {
		t.Fatalf("got %d deltas, want 4", len(got))
	}
	if got[2].Content != "abc" || got[3].Content != "abc" || !got[3].Done {
		t.Errorf("unexpected deltas: %+v", got)
	}
	if got[3].Stats == nil || got[3].Stats.CompletionTokens != 3 {
		t.Error("final delta should carry stats")
	}
	if len(mock.Requests()) != 1 || mock.LastRequest().Model != "m" {
		t.Error("mock should record dispatched requests")
	}
}

func TestMockFailAfter(t *testing.T) {
	mock := NewMock("a", "ab", "abc")
	mock.FailAfter = 2

	handle, err := mock.Dispatch(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	var got []Delta
	for d := range handle.Deltas() {
		got = append(got, d)
	}
	if len(got) != 3 {
		t.Fatalf("got %d deltas, want 2 content + 1 error", len(got))
	}
	if got[2].Err == nil {
		t.Error("last delta should carry the injected error")
	}
	if got[2].Content != "ab" {
		t.Errorf("error delta content = %q, want last emitted content", got[2].Content)
	}
}

func TestMockDispatchErr(t *testing.T) {
	mock := NewMock("x")
	mock.DispatchErr = ErrNotRunning

	if _, err := mock.Dispatch(context.Background(), Request{}); !IsNotRunning(err) {
		t.Errorf("err = %v, want not running", err)
	}
	if len(mock.Requests()) != 0 {
		t.Error("failed dispatch should not be recorded")
	}
}
