// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/localchat/internal/export"
	"github.com/jeranaias/localchat/internal/model"
)

// =============================================================================
// EXPORT & CLIPBOARD ACTIONS
// =============================================================================

// exportText writes the active session to a timestamped text file and
// opens it in the default viewer.
func (m *Model) exportText() tea.Cmd {
	return m.exportAs(export.NewTextExporter())
}

// exportMarkdown writes the active session as a markdown document.
func (m *Model) exportMarkdown() tea.Cmd {
	return m.exportAs(export.NewMarkdownExporter())
}

func (m *Model) exportAs(exp export.Exporter) tea.Cmd {
	sess := m.store.Active()
	if sess == nil || len(sess.Messages) == 0 {
		return m.setStatus("Nothing to export")
	}

	path, err := export.ToFile(sess, exp, m.exportOptions())
	if err != nil {
		m.errText = fmt.Sprintf("Export failed: %v", err)
		return nil
	}
	return m.setStatus("Exported to " + path)
}

// copyChat puts the whole transcript on the clipboard in the same
// "sender: text" form the export file uses.
func (m *Model) copyChat() tea.Cmd {
	sess := m.store.Active()
	if sess == nil || len(sess.Messages) == 0 {
		return m.setStatus("Nothing to copy")
	}

	if err := clipboard.WriteAll(sess.Transcript()); err != nil {
		m.errText = fmt.Sprintf("Copy failed: %v", err)
		return nil
	}
	return m.setStatus("Chat copied to clipboard")
}

// copyLastReply copies the most recent committed assistant message.
func (m *Model) copyLastReply() tea.Cmd {
	sess := m.store.Active()
	if sess == nil {
		return m.setStatus("Nothing to copy")
	}

	for i := len(sess.Messages) - 1; i >= 0; i-- {
		msg := sess.Messages[i]
		if msg.Sender == model.RoleAssistant && !msg.IsStreaming() {
			if err := clipboard.WriteAll(msg.DisplayText()); err != nil {
				m.errText = fmt.Sprintf("Copy failed: %v", err)
				return nil
			}
			return m.setStatus("Reply copied to clipboard")
		}
	}
	return m.setStatus("No reply to copy")
}
