// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/jeranaias/localchat/internal/config"
	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/ollama"
	"github.com/jeranaias/localchat/internal/session"
	"github.com/jeranaias/localchat/internal/stream"
)

type nullPort struct{}

func (nullPort) Load() ([]*model.ChatSession, error) { return nil, nil }
func (nullPort) Save([]*model.ChatSession) error     { return nil }

func newTestChat() (*Chat, *bytes.Buffer, *session.Store) {
	out := &bytes.Buffer{}
	store := session.NewStore(nullPort{}, nil)
	sink := newConsoleSink(out)
	c := &Chat{
		cfg:    config.Default(),
		client: ollama.NewClient(),
		store:  store,
		sink:   sink,
		out:    out,
		model:  "llama3:8b",
	}
	c.runner = stream.NewRunner(c.client, store, sink)
	return c, out, store
}

// =============================================================================
// SLASH COMMAND TESTS
// =============================================================================

func TestHandleCommand_NewAndSessions(t *testing.T) {
	c, out, store := newTestChat()

	if quit := c.handleCommand(context.Background(), "/new"); quit {
		t.Fatal("/new should not quit")
	}
	if store.Len() != 1 {
		t.Fatalf("sessions = %d, want 1", store.Len())
	}

	out.Reset()
	c.handleCommand(context.Background(), "/sessions")
	if !strings.Contains(out.String(), "Chat 1") {
		t.Errorf("/sessions output = %q", out.String())
	}
	if !strings.Contains(out.String(), "*") {
		t.Errorf("active marker missing: %q", out.String())
	}
}

func TestHandleCommand_SwitchAndDelete(t *testing.T) {
	c, out, store := newTestChat()
	a := store.Create("")
	store.Create("")

	c.handleCommand(context.Background(), "/switch 1")
	if store.ActiveID() != a.ID {
		t.Errorf("active = %d, want %d", store.ActiveID(), a.ID)
	}

	out.Reset()
	c.handleCommand(context.Background(), "/switch 99")
	if !strings.Contains(out.String(), "error") {
		t.Errorf("switching to a missing chat should error, got %q", out.String())
	}

	c.handleCommand(context.Background(), "/delete 2")
	if store.Len() != 1 {
		t.Errorf("sessions = %d after delete, want 1", store.Len())
	}
}

func TestHandleCommand_Quit(t *testing.T) {
	c, _, _ := newTestChat()
	for _, cmd := range []string{"/quit", "/q", "/exit"} {
		if !c.handleCommand(context.Background(), cmd) {
			t.Errorf("%s should quit", cmd)
		}
	}
}

func TestHandleCommand_Unknown(t *testing.T) {
	c, out, _ := newTestChat()
	c.handleCommand(context.Background(), "/bogus")
	if !strings.Contains(out.String(), "Unknown command") {
		t.Errorf("output = %q", out.String())
	}
}

func TestHandleCommand_ModelOverride(t *testing.T) {
	c, out, _ := newTestChat()
	c.handleCommand(context.Background(), "/model mistral:7b")
	if c.model != "mistral:7b" {
		t.Errorf("model = %q", c.model)
	}
	if !strings.Contains(out.String(), "mistral:7b") {
		t.Errorf("output = %q", out.String())
	}
}

func TestHandleCommand_ModelPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	c, _, _ := newTestChat()
	c.cfg = cfg
	c.handleCommand(context.Background(), "/model mistral:7b")

	loaded, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.Server.DefaultModel != "mistral:7b" {
		t.Errorf("persisted default model = %q, want mistral:7b", loaded.Server.DefaultModel)
	}
}

func TestHandleCommand_ExportMarkdown(t *testing.T) {
	c, out, store := newTestChat()
	c.cfg.Export.Dir = t.TempDir()
	c.cfg.Export.OpenAfterExport = false

	sess := store.Create("")
	store.AppendMessage(sess.ID, model.NewMessage(model.RoleUser, "hi"))
	store.AppendMessage(sess.ID, model.NewMessage(model.RoleAssistant, "hello"))

	c.handleCommand(context.Background(), "/export md")
	if !strings.Contains(out.String(), "Exported to") {
		t.Fatalf("output = %q", out.String())
	}

	entries, err := os.ReadDir(c.cfg.Export.Dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), ".md") {
		t.Errorf("export dir entries = %v, want one .md file", entries)
	}

	data, err := os.ReadFile(filepath.Join(c.cfg.Export.Dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	for _, want := range []string{"## You", "## Assistant"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("markdown export missing %q:\n%s", want, data)
		}
	}
}

func TestHandleCommand_ExportBadFormat(t *testing.T) {
	c, out, store := newTestChat()
	sess := store.Create("")
	store.AppendMessage(sess.ID, model.NewMessage(model.RoleUser, "hi"))

	c.handleCommand(context.Background(), "/export pdf")
	if !strings.Contains(out.String(), "usage: /export") {
		t.Errorf("output = %q", out.String())
	}
}

// =============================================================================
// CONSOLE SINK TESTS
// =============================================================================

func TestConsoleSink_PrintsOnlyNewSuffix(t *testing.T) {
	out := &bytes.Buffer{}
	s := newConsoleSink(out)
	done := s.begin()

	id := uuid.New()
	s.StreamPartial(1, id, "He")
	s.StreamPartial(1, id, "Hello")
	s.StreamFinal(1, id, "Hello")

	if got := out.String(); got != "Hello\n" {
		t.Errorf("output = %q, want %q", got, "Hello\n")
	}
	if err := <-done; err != nil {
		t.Errorf("done = %v, want nil", err)
	}
}

func TestConsoleSink_FailurePropagates(t *testing.T) {
	out := &bytes.Buffer{}
	s := newConsoleSink(out)
	done := s.begin()

	id := uuid.New()
	s.StreamPartial(1, id, "par")
	s.StreamFailed(1, id, ollama.ErrNotRunning)

	if err := <-done; !ollama.IsNotRunning(err) {
		t.Errorf("done = %v, want ErrNotRunning", err)
	}
}

func TestConsoleSink_BeginResets(t *testing.T) {
	out := &bytes.Buffer{}
	s := newConsoleSink(out)

	done := s.begin()
	id := uuid.New()
	s.StreamPartial(1, id, "first")
	s.StreamFinal(1, id, "first")
	<-done

	out.Reset()
	done = s.begin()
	id2 := uuid.New()
	s.StreamPartial(1, id2, "second")
	s.StreamFinal(1, id2, "second")
	<-done

	if got := out.String(); got != "second\n" {
		t.Errorf("output = %q, want %q", got, "second\n")
	}
}
