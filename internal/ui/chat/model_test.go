// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/jeranaias/localchat/internal/config"
	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/ollama"
	"github.com/jeranaias/localchat/internal/session"
	"github.com/jeranaias/localchat/internal/stream"
)

// blockingGenerator never produces output; it parks until cancelled. Tests
// drive the UI by injecting stream messages directly.
type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, model, prompt string, cb ollama.StreamCallback) error {
	<-ctx.Done()
	return ctx.Err()
}

type nullPort struct{}

func (nullPort) Load() ([]*model.ChatSession, error) { return nil, nil }
func (nullPort) Save([]*model.ChatSession) error     { return nil }

func newTestModel(t *testing.T) (*Model, *session.Store) {
	t.Helper()
	store := session.NewStore(nullPort{}, nil)
	runner := stream.NewRunner(blockingGenerator{}, store, NewProgramSink())

	cfg := config.Default()
	cfg.Server.DefaultModel = "llama3:8b"

	m := New(cfg, ollama.NewClient(), store, runner)
	m.resize(100, 40)
	t.Cleanup(runner.CancelAll)
	return m, store
}

func pressEnter(m *Model) {
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
}

func TestSubmitStartsStream(t *testing.T) {
	m, store := newTestModel(t)

	m.input.SetValue("hello there")
	pressEnter(m)

	sess := store.Active()
	if sess == nil {
		t.Fatal("submit should create a session when none exists")
	}
	if len(sess.Messages) != 1 || sess.Messages[0].Text != "hello there" {
		t.Fatalf("messages = %+v", sess.Messages)
	}
	if sess.Messages[0].Sender != model.RoleUser {
		t.Errorf("sender = %q, want user", sess.Messages[0].Sender)
	}

	ls := m.streams[sess.ID]
	if ls == nil {
		t.Fatal("no live stream after submit")
	}
	if !ls.waitingFirst {
		t.Error("stream should wait for the first fragment")
	}
	if m.input.Value() != "" {
		t.Error("input should clear after submit")
	}
}

func TestSubmitWhileStreamingIsRefused(t *testing.T) {
	m, store := newTestModel(t)

	m.input.SetValue("first")
	pressEnter(m)
	sessID := store.ActiveID()

	m.input.SetValue("second")
	pressEnter(m)

	sess, _ := store.Get(sessID)
	if len(sess.Messages) != 1 {
		t.Errorf("second submit while streaming should be refused, messages = %d", len(sess.Messages))
	}
}

func TestEmptySubmitIgnored(t *testing.T) {
	m, store := newTestModel(t)

	m.input.SetValue("   ")
	pressEnter(m)

	if store.Len() != 0 {
		t.Error("whitespace submit should not create a session")
	}
}

func TestStreamPartialUpdatesTail(t *testing.T) {
	m, store := newTestModel(t)

	m.input.SetValue("q")
	pressEnter(m)
	sessID := store.ActiveID()
	ls := m.streams[sessID]

	m.Update(StreamPartialMsg{SessionID: sessID, StreamID: ls.id, Snapshot: "He"})
	if got := ls.tail.DisplayText(); got != "He" {
		t.Errorf("tail = %q, want %q", got, "He")
	}
	if ls.waitingFirst {
		t.Error("first fragment should clear waiting state")
	}

	m.Update(StreamPartialMsg{SessionID: sessID, StreamID: ls.id, Snapshot: "Hello"})
	if got := ls.tail.DisplayText(); got != "Hello" {
		t.Errorf("tail = %q, want %q", got, "Hello")
	}
}

func TestStaleStreamEventsIgnored(t *testing.T) {
	m, store := newTestModel(t)

	m.input.SetValue("q")
	pressEnter(m)
	sessID := store.ActiveID()
	ls := m.streams[sessID]

	stale := uuid.New()
	m.Update(StreamPartialMsg{SessionID: sessID, StreamID: stale, Snapshot: "WRONG"})
	if got := ls.tail.DisplayText(); got != "" {
		t.Errorf("stale event mutated the tail: %q", got)
	}

	m.Update(StreamFinalMsg{SessionID: sessID, StreamID: stale, Text: "WRONG"})
	if m.streams[sessID] == nil {
		t.Error("stale final event removed the live stream")
	}
}

func TestStreamFinalClearsLiveStream(t *testing.T) {
	m, store := newTestModel(t)

	m.input.SetValue("q")
	pressEnter(m)
	sessID := store.ActiveID()
	ls := m.streams[sessID]

	m.Update(StreamFinalMsg{SessionID: sessID, StreamID: ls.id, Text: "done"})
	if m.streams[sessID] != nil {
		t.Error("final event should clear the live stream")
	}
}

func TestStreamFailedShowsError(t *testing.T) {
	m, store := newTestModel(t)

	m.input.SetValue("q")
	pressEnter(m)
	sessID := store.ActiveID()
	ls := m.streams[sessID]

	m.Update(StreamFailedMsg{SessionID: sessID, StreamID: ls.id, Err: ollama.ErrNotRunning})
	if m.streams[sessID] != nil {
		t.Error("failure should clear the live stream")
	}
	if m.errText == "" {
		t.Error("failure should surface an error message")
	}
}

func TestModelsLoadedPicksDefault(t *testing.T) {
	m, _ := newTestModel(t)
	m.selectedModel = ""

	m.Update(ModelsLoadedMsg{Models: []ollama.ModelInfo{
		{Name: "llama3:8b"},
		{Name: "mistral:7b"},
	}})

	if m.selectedModel != "llama3:8b" {
		t.Errorf("selectedModel = %q, want first listed", m.selectedModel)
	}
}

func TestModelPickUpdatesConfigDefault(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(ModelsLoadedMsg{Models: []ollama.ModelInfo{
		{Name: "llama3:8b"},
		{Name: "mistral:7b"},
	}})

	m.focus = focusModels
	m.modelCursor = 1
	pressEnter(m)

	if m.selectedModel != "mistral:7b" {
		t.Errorf("selectedModel = %q, want mistral:7b", m.selectedModel)
	}
	if m.cfg.Server.DefaultModel != "mistral:7b" {
		t.Errorf("config default = %q, want mistral:7b", m.cfg.Server.DefaultModel)
	}
	if m.focus != focusInput {
		t.Error("picking a model should return focus to the input")
	}
}

func TestDeleteSessionCancelsStream(t *testing.T) {
	m, store := newTestModel(t)

	m.input.SetValue("q")
	pressEnter(m)
	sessID := store.ActiveID()

	m.deleteSession(sessID)
	if _, ok := store.Get(sessID); ok {
		t.Error("session should be deleted")
	}
	if m.streams[sessID] != nil {
		t.Error("live stream should be dropped with its session")
	}
}
