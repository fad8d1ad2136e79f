// Copyright (c) 2025 Inkwell Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mgrindal/inkwell-tui/internal/knowledge"
	"github.com/mgrindal/inkwell-tui/internal/model"
	"github.com/mgrindal/inkwell-tui/internal/provider"
	"github.com/mgrindal/inkwell-tui/internal/store"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

type notice struct {
	sessionID string
	err       error
}

type harness struct {
	store   *store.Store
	engine  *Engine
	session *model.Session
	events  chan store.Event
	notices chan notice
}

func newHarness(t *testing.T, gw provider.Gateway, kn knowledge.Provider, opts Options) *harness {
	t.Helper()
	h := &harness{
		store:   store.New(store.NullRepository{}, zerolog.Nop()),
		events:  make(chan store.Event, 128),
		notices: make(chan notice, 16),
	}
	h.store.Subscribe(func(ev store.Event) { h.events <- ev })
	notifier := NotifierFunc(func(sessionID string, err error) {
		h.notices <- notice{sessionID, err}
	})
	h.engine = New(h.store, gw, kn, notifier, opts, zerolog.Nop())

	sess, err := h.store.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	h.session = sess
	return h
}

// waitEvent blocks until an event of the given type arrives.
func (h *harness) waitEvent(t *testing.T, typ store.EventType) store.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-h.events:
			if ev.Type == typ {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", typ)
		}
	}
}

// waitReady blocks until the session's status returns to ready.
func (h *harness) waitReady(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.engine.Status(h.session.ID) != StatusReady {
		if time.Now().After(deadline) {
			t.Fatalf("session never returned to ready, status = %s", h.engine.Status(h.session.ID))
		}
		time.Sleep(time.Millisecond)
	}
}

func (h *harness) messages() []*model.Message {
	return h.store.Messages(h.session.ID)
}

// blockingGateway holds Dispatch until released, so tests can observe the
// submitting state deterministically.
type blockingGateway struct {
	inner   provider.Gateway
	release chan struct{}
	entered chan struct{}
}

func newBlockingGateway(inner provider.Gateway) *blockingGateway {
	return &blockingGateway{
		inner:   inner,
		release: make(chan struct{}),
		entered: make(chan struct{}, 8),
	}
}

func (g *blockingGateway) Dispatch(ctx context.Context, req provider.Request) (*provider.StreamHandle, error) {
	g.entered <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, context.Canceled
	}
	return g.inner.Dispatch(ctx, req)
}

func (g *blockingGateway) Complete(ctx context.Context, req provider.Request) (string, *provider.Stats, error) {
	return g.inner.Complete(ctx, req)
}

// =============================================================================
// SEND TESTS
// =============================================================================

func TestSendMessageAppendsProvisionalPair(t *testing.T) {
	gw := newBlockingGateway(provider.NewMock("hi there"))
	h := newHarness(t, gw, nil, Options{})

	if err := h.engine.SendMessage(h.session.ID, "hi"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	// Synchronous mutations: both messages exist before any network
	// activity completes.
	msgs := h.messages()
	if len(msgs) != 2 {
		t.Fatalf("message count = %d, want 2", len(msgs))
	}
	if msgs[0].Role != model.RoleUser || msgs[0].Content != "hi" {
		t.Errorf("user message = %+v", msgs[0])
	}
	if msgs[1].Role != model.RoleAssistant || msgs[1].Content != "" {
		t.Errorf("placeholder = %+v", msgs[1])
	}
	if !msgs[1].IsStreaming {
		t.Error("placeholder should be streaming")
	}

	<-gw.entered
	if got := h.engine.Status(h.session.ID); got != StatusSubmitting {
		t.Errorf("status = %s, want submitting before the handle arrives", got)
	}

	close(gw.release)
	h.waitReady(t)
}

func TestSendMessageRejectsWhileBusy(t *testing.T) {
	gw := newBlockingGateway(provider.NewMock("x"))
	h := newHarness(t, gw, nil, Options{})

	if err := h.engine.SendMessage(h.session.ID, "first"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	<-gw.entered

	err := h.engine.SendMessage(h.session.ID, "second")
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
	// Zero mutation on rejection.
	if got := len(h.messages()); got != 2 {
		t.Errorf("message count = %d, want 2 (rejected send must not mutate)", got)
	}

	close(gw.release)
	h.waitReady(t)
}

func TestSendMessageEmptyInput(t *testing.T) {
	h := newHarness(t, provider.NewMock(), nil, Options{})
	if err := h.engine.SendMessage(h.session.ID, "   \n"); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("err = %v, want ErrEmptyInput", err)
	}
	if got := len(h.messages()); got != 0 {
		t.Errorf("message count = %d, want 0", got)
	}
}

func TestSendMessageUnknownSession(t *testing.T) {
	h := newHarness(t, provider.NewMock(), nil, Options{})
	err := h.engine.SendMessage("no-such-session", "hi")
	if !errors.Is(err, store.ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
	if got := h.engine.Status("no-such-session"); got != StatusReady {
		t.Errorf("status = %s, want ready after failed send", got)
	}
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

func TestCumulativeDeltasProduceFinalContent(t *testing.T) {
	mock := provider.NewMock("The", "The answer", "The answer is 42.")
	mock.Stats = &provider.Stats{CompletionTokens: 5, TTFT: 10 * time.Millisecond, TokensPerSecond: 12.5}
	h := newHarness(t, mock, nil, Options{})

	if err := h.engine.SendMessage(h.session.ID, "question"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	h.waitReady(t)

	msgs := h.messages()
	if len(msgs) != 2 {
		t.Fatalf("message count = %d, want 2", len(msgs))
	}
	final := msgs[1]
	if final.Content != "The answer is 42." {
		t.Errorf("content = %q, want final cumulative delta", final.Content)
	}
	if final.IsStreaming {
		t.Error("finalized message must not be streaming")
	}
	if final.TokenCount != 5 {
		t.Errorf("token count = %d, want provider-reported 5", final.TokenCount)
	}
	if final.TokensPerSec != 12.5 {
		t.Errorf("tokens/sec = %f, want 12.5", final.TokensPerSec)
	}

	select {
	case n := <-h.notices:
		t.Errorf("unexpected notification: %+v", n)
	default:
	}
}

func TestDeltasOverwriteNotAppend(t *testing.T) {
	mock := provider.NewMock("abc", "abcdef")
	mock.Gate = make(chan struct{})
	h := newHarness(t, mock, nil, Options{})

	if err := h.engine.SendMessage(h.session.ID, "q"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	mock.Gate <- struct{}{} // release delta 1
	h.waitEvent(t, store.EventMessageUpdated)
	if got := h.messages()[1].Content; got != "abc" {
		t.Errorf("content after d1 = %q, want abc", got)
	}

	mock.Gate <- struct{}{} // release delta 2
	h.waitEvent(t, store.EventMessageUpdated)
	if got := h.messages()[1].Content; got != "abcdef" {
		t.Errorf("content after d2 = %q, want overwritten cumulative value", got)
	}

	mock.Gate <- struct{}{} // release terminal
	h.waitReady(t)
}

// =============================================================================
// STOP TESTS
// =============================================================================

func TestStopKeepsPartialContent(t *testing.T) {
	mock := provider.NewMock("partial", "partial answer", "never seen")
	mock.Gate = make(chan struct{})
	h := newHarness(t, mock, nil, Options{})

	if err := h.engine.SendMessage(h.session.ID, "q"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	mock.Gate <- struct{}{}
	h.waitEvent(t, store.EventMessageUpdated)
	mock.Gate <- struct{}{}
	h.waitEvent(t, store.EventMessageUpdated)

	h.engine.Stop(h.session.ID)

	// Ready immediately, without waiting for the abort round-trip.
	if got := h.engine.Status(h.session.ID); got != StatusReady {
		t.Errorf("status = %s, want ready immediately after Stop", got)
	}

	msgs := h.messages()
	if len(msgs) != 2 {
		t.Fatalf("message count = %d, want both messages kept", len(msgs))
	}
	if msgs[1].Content != "partial answer" {
		t.Errorf("content = %q, want last applied delta", msgs[1].Content)
	}
	if msgs[1].IsStreaming {
		t.Error("stopped message must be finalized")
	}

	// Cancellation is not an error.
	select {
	case n := <-h.notices:
		t.Errorf("unexpected notification: %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStopDuringSubmitting(t *testing.T) {
	gw := newBlockingGateway(provider.NewMock("never"))
	h := newHarness(t, gw, nil, Options{})

	if err := h.engine.SendMessage(h.session.ID, "q"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	<-gw.entered

	h.engine.Stop(h.session.ID)

	if got := h.engine.Status(h.session.ID); got != StatusReady {
		t.Errorf("status = %s, want ready", got)
	}
	msgs := h.messages()
	if len(msgs) != 2 {
		t.Fatalf("message count = %d, want 2 (no rollback on stop)", len(msgs))
	}
	if msgs[1].Content != "" || msgs[1].IsStreaming {
		t.Errorf("placeholder should be finalized empty: %+v", msgs[1])
	}
}

func TestStopOnReadySessionIsNoop(t *testing.T) {
	h := newHarness(t, provider.NewMock(), nil, Options{})
	h.engine.Stop(h.session.ID) // must not panic or mutate
	if got := len(h.messages()); got != 0 {
		t.Errorf("message count = %d, want 0", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	mock := provider.NewMock("a", "ab")
	mock.Gate = make(chan struct{})
	h := newHarness(t, mock, nil, Options{})

	h.engine.SendMessage(h.session.ID, "q")
	mock.Gate <- struct{}{}
	h.waitEvent(t, store.EventMessageUpdated)

	h.engine.Stop(h.session.ID)
	h.engine.Stop(h.session.ID)

	if got := h.messages()[1].Content; got != "a" {
		t.Errorf("content = %q, want a", got)
	}
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestMidStreamErrorRollsBackFully(t *testing.T) {
	mock := provider.NewMock("doomed partial")
	mock.FailAfter = 1
	h := newHarness(t, mock, nil, Options{})

	// Pre-existing history must survive the rollback untouched.
	existing := model.NewUserMessage("keep")
	h.store.AppendMessage(context.Background(), h.session.ID, existing)

	if err := h.engine.SendMessage(h.session.ID, "will fail"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	ev := h.waitEvent(t, store.EventRollback)
	if len(ev.MessageIDs) != 2 {
		t.Errorf("rollback batch = %d messages, want 2", len(ev.MessageIDs))
	}
	h.waitReady(t)

	msgs := h.messages()
	if len(msgs) != 1 || msgs[0].ID != existing.ID {
		t.Fatalf("transcript not restored: %d messages", len(msgs))
	}

	select {
	case n := <-h.notices:
		if n.sessionID != h.session.ID || n.err == nil {
			t.Errorf("notification = %+v", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected exactly one notification")
	}
	select {
	case n := <-h.notices:
		t.Errorf("second notification: %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatchErrorRollsBack(t *testing.T) {
	mock := provider.NewMock("unused")
	mock.DispatchErr = provider.ErrNotRunning
	h := newHarness(t, mock, nil, Options{})

	if err := h.engine.SendMessage(h.session.ID, "hello?"); err != nil {
		t.Fatalf("SendMessage itself should succeed: %v", err)
	}

	h.waitEvent(t, store.EventRollback)
	h.waitReady(t)

	if got := len(h.messages()); got != 0 {
		t.Errorf("message count = %d, want 0 after rollback", got)
	}
	n := <-h.notices
	if !errors.Is(n.err, provider.ErrNotRunning) {
		t.Errorf("notified err = %v, want ErrNotRunning", n.err)
	}

	// The session accepts a new send after recovery.
	mock2 := provider.NewMock("recovered")
	h.engine.gateway = mock2
	if err := h.engine.SendMessage(h.session.ID, "retry"); err != nil {
		t.Errorf("send after recovery: %v", err)
	}
	h.waitReady(t)
}

// =============================================================================
// COMPOSITION TESTS
// =============================================================================

func TestDispatchPayloadCarriesComposedContext(t *testing.T) {
	kn := knowledge.NewStaticProvider()
	kn.Set("notes-1", []model.Fragment{
		{Kind: model.FragmentText, Payload: "A"},
		{Kind: model.FragmentText, Payload: "B"},
	})
	mock := provider.NewMock("done")
	h := newHarness(t, mock, kn, Options{})
	h.engine.SetAssociation(h.session.ID, "notes-1")

	if err := h.engine.SendMessage(h.session.ID, "Summarize this"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	h.waitReady(t)

	req := mock.LastRequest()
	if req == nil {
		t.Fatal("no request dispatched")
	}
	final := req.Messages[len(req.Messages)-1]
	if !strings.HasPrefix(final.Content, "The following note excerpts are provided as reference: ") {
		t.Errorf("payload missing context preamble: %q", final.Content)
	}
	if !strings.Contains(final.Content, "1. A") || !strings.Contains(final.Content, "2. B") {
		t.Errorf("payload missing enumerated fragments: %q", final.Content)
	}
	if !strings.HasSuffix(final.Content, "Summarize this") {
		t.Errorf("payload must end with the raw input: %q", final.Content)
	}

	// The persisted user message stores the raw input, never the composed
	// string.
	if got := h.messages()[0].Content; got != "Summarize this" {
		t.Errorf("persisted user message = %q, want raw input", got)
	}
}

func TestBrokenFragmentProviderDoesNotBlockSend(t *testing.T) {
	mock := provider.NewMock("ok")
	h := newHarness(t, mock, failingProvider{}, Options{})
	h.engine.SetAssociation(h.session.ID, "broken")

	if err := h.engine.SendMessage(h.session.ID, "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	h.waitReady(t)

	final := mock.LastRequest().Messages
	if got := final[len(final)-1].Content; got != "hello" {
		t.Errorf("payload = %q, want raw input without context", got)
	}
}

type failingProvider struct{}

func (failingProvider) FragmentsFor(string) ([]model.Fragment, error) {
	return nil, errors.New("fragment source offline")
}

func TestHistoryLimitAndSystemPrompt(t *testing.T) {
	mock := provider.NewMock("done")
	h := newHarness(t, mock, nil, Options{HistoryLimit: 2, SystemPrompt: "Be terse."})
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three", "four"} {
		h.store.AppendMessage(ctx, h.session.ID, model.NewUserMessage(content))
	}

	if err := h.engine.SendMessage(h.session.ID, "latest"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	h.waitReady(t)

	msgs := mock.LastRequest().Messages
	// system + 2 prior + composed final
	if len(msgs) != 4 {
		t.Fatalf("payload length = %d, want 4", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[0].Content != "Be terse." {
		t.Errorf("first message = %+v, want system prompt", msgs[0])
	}
	if msgs[1].Content != "three" || msgs[2].Content != "four" {
		t.Errorf("history window = %q, %q; want the last two prior messages", msgs[1].Content, msgs[2].Content)
	}
	if msgs[3].Content != "latest" {
		t.Errorf("final message = %q", msgs[3].Content)
	}
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

func TestSessionsStreamIndependently(t *testing.T) {
	mock := provider.NewMock() // empty script: gate, then terminal
	mock.Gate = make(chan struct{})
	h := newHarness(t, mock, nil, Options{})

	other, err := h.store.CreateSession(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if err := h.engine.SendMessage(h.session.ID, "to A"); err != nil {
		t.Fatalf("send A: %v", err)
	}
	if got := h.engine.Status(other.ID); got != StatusReady {
		t.Errorf("B status = %s, want ready while A streams", got)
	}

	// B accepts a concurrent send while A is in flight.
	if err := h.engine.SendMessage(other.ID, "to B"); err != nil {
		t.Fatalf("send B: %v", err)
	}
	if err := h.engine.SendMessage(h.session.ID, "again A"); !errors.Is(err, ErrBusy) {
		t.Errorf("resend to A = %v, want ErrBusy", err)
	}

	mock.Gate <- struct{}{}
	mock.Gate <- struct{}{}
	h.waitReady(t)

	deadline := time.Now().Add(2 * time.Second)
	for h.engine.Status(other.ID) != StatusReady {
		if time.Now().After(deadline) {
			t.Fatal("session B never returned to ready")
		}
		time.Sleep(time.Millisecond)
	}

	if got := len(h.store.Messages(other.ID)); got != 2 {
		t.Errorf("B message count = %d, want 2", got)
	}
}

func TestStopAll(t *testing.T) {
	mock := provider.NewMock("x", "xy")
	mock.Gate = make(chan struct{})
	h := newHarness(t, mock, nil, Options{})

	h.engine.SendMessage(h.session.ID, "q")
	mock.Gate <- struct{}{}
	h.waitEvent(t, store.EventMessageUpdated)

	h.engine.StopAll()
	if got := h.engine.Status(h.session.ID); got != StatusReady {
		t.Errorf("status = %s, want ready", got)
	}
}
