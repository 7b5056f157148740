// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeranaias/localchat/internal/model"
)

func sampleSession() *model.ChatSession {
	sess := model.NewChatSession(5, "Chat 5")
	sess.Append(model.NewMessage(model.RoleUser, "hello"))
	sess.Append(model.NewMessage(model.RoleAssistant, "hi, how can I help?"))
	return sess
}

func TestTextExporter(t *testing.T) {
	content, err := NewTextExporter().Export(sampleSession())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	want := "user: hello\nassistant: hi, how can I help?\n"
	if string(content) != want {
		t.Errorf("content = %q, want %q", content, want)
	}
}

func TestMarkdownExporter(t *testing.T) {
	content, err := NewMarkdownExporter().Export(sampleSession())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	text := string(content)
	for _, want := range []string{"# Chat 5", "## You", "## Assistant", "hello", "hi, how can I help?"} {
		if !strings.Contains(text, want) {
			t.Errorf("markdown missing %q:\n%s", want, text)
		}
	}
}

func TestToFile(t *testing.T) {
	dir := t.TempDir()
	opts := &Options{OutputDir: dir, OpenAfterExport: false}

	path, err := ToFile(sampleSession(), NewTextExporter(), opts)
	if err != nil {
		t.Fatalf("ToFile failed: %v", err)
	}

	base := filepath.Base(path)
	if !strings.HasPrefix(base, "chat_5_") || !strings.HasSuffix(base, ".txt") {
		t.Errorf("filename = %q, want chat_5_<timestamp>.txt", base)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "user: hello") {
		t.Errorf("file content = %q", data)
	}
}

func TestToFile_CreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports", "nested")
	opts := &Options{OutputDir: dir, OpenAfterExport: false}

	if _, err := ToFile(sampleSession(), NewTextExporter(), opts); err != nil {
		t.Fatalf("ToFile failed: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("output dir not created: %v", err)
	}
}

func TestToFile_EmptySession(t *testing.T) {
	opts := &Options{OutputDir: t.TempDir(), OpenAfterExport: false}
	path, err := ToFile(model.NewChatSession(1, ""), NewTextExporter(), opts)
	if err != nil {
		t.Fatalf("ToFile failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if len(data) != 0 {
		t.Errorf("empty session export = %q, want empty file", data)
	}
}
