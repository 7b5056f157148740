// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/util"
)

// View renders the full chat interface.
func (m *Model) View() string {
	if !m.ready {
		return "Starting localchat..."
	}

	header := m.renderHeader()
	sidebar := m.renderSidebar()

	var main string
	if m.focus == focusModels {
		main = m.renderModelPicker()
	} else if m.showHelp {
		main = m.renderHelp()
	} else {
		main = m.viewport.View()
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)

	input := m.theme.InputContainer.Width(m.contentWidth()).Render(m.input.View())
	status := m.renderStatusBar()

	return lipgloss.JoinVertical(lipgloss.Left, header, body, input, status)
}

func (m *Model) contentWidth() int {
	w := m.width - sidebarWidth - 2
	if w < 20 {
		w = 20
	}
	return w
}

// =============================================================================
// HEADER & STATUS
// =============================================================================

func (m *Model) renderHeader() string {
	title := "localchat"
	if sess := m.store.Active(); sess != nil {
		title += " - " + sess.Name
	}
	modelName := m.selectedModel
	if modelName == "" {
		modelName = "no model"
	}
	left := m.theme.Header.Render(title)
	right := m.theme.StatusBar.Render(modelName)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m *Model) renderStatusBar() string {
	if m.errText != "" {
		return m.theme.ErrorText.Render(m.errText)
	}
	if m.statusText != "" {
		return m.theme.InfoText.Render(m.statusText)
	}

	var parts []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts,
			m.theme.HelpKey.Render(h.Key)+" "+m.theme.HelpDesc.Render(h.Desc))
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m *Model) renderSidebar() string {
	sessions := m.store.Sessions()
	innerWidth := sidebarWidth - 3

	var b strings.Builder
	b.WriteString(m.theme.SessionActive.Render("Chats"))
	b.WriteString("\n\n")

	if len(sessions) == 0 {
		b.WriteString(m.theme.SessionPreview.Render("No chats yet"))
		b.WriteString("\n")
		b.WriteString(m.theme.SessionPreview.Render("C-n starts one"))
	}

	for i, sess := range sessions {
		marker := "  "
		if m.focus == focusSidebar && i == m.sidebarCursor {
			marker = "> "
		}

		name := util.TruncateWidth(sess.Name, innerWidth-2)
		style := m.theme.SessionItem
		if sess.ID == m.store.ActiveID() {
			style = m.theme.SessionActive
		}
		b.WriteString(marker + style.Render(name))
		b.WriteString("\n")

		preview := util.TruncateWidth(util.FirstLine(sess.Preview()), innerWidth)
		b.WriteString("  " + m.theme.SessionPreview.Render(preview))
		b.WriteString("\n")
	}

	height := m.viewport.Height
	return m.theme.Sidebar.Width(sidebarWidth - 2).Height(height).Render(b.String())
}

// =============================================================================
// MODEL PICKER & HELP
// =============================================================================

func (m *Model) renderModelPicker() string {
	var b strings.Builder
	b.WriteString(m.theme.SessionActive.Render("Pick a model"))
	b.WriteString("\n\n")

	if len(m.models) == 0 {
		if m.modelsErr != nil {
			b.WriteString(m.theme.ErrorText.Render("No models available."))
			b.WriteString("\n")
			b.WriteString(m.theme.SessionPreview.Render("Is Ollama running?"))
		} else {
			b.WriteString(m.theme.SessionPreview.Render("Loading models..."))
		}
	}

	for i, info := range m.models {
		line := info.Name
		if info.Name == m.selectedModel {
			line += " (current)"
		}
		if i == m.modelCursor {
			b.WriteString(m.theme.ModelSelected.Render(line))
		} else {
			b.WriteString(m.theme.ModelItem.Render(line))
		}
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().
		Width(m.contentWidth()).
		Height(m.viewport.Height).
		Render(b.String())
}

func (m *Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(m.theme.SessionActive.Render("Keyboard shortcuts"))
	b.WriteString("\n\n")

	for _, group := range m.keys.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(fmt.Sprintf("  %s  %s\n",
				m.theme.HelpKey.Render(util.PadWidth(h.Key, 8)),
				m.theme.HelpDesc.Render(h.Desc)))
		}
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().
		Width(m.contentWidth()).
		Height(m.viewport.Height).
		Render(b.String())
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refreshViewport rebuilds the transcript content. Follow keeps the view
// pinned to the newest text, matching how a chat should read while
// streaming.
func (m *Model) refreshViewport(follow bool) {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderTranscript() string {
	sess := m.store.Active()
	if sess == nil {
		return m.theme.Thinking.Render("Press C-n to start a chat, or just type and hit Enter.")
	}

	var b strings.Builder
	for _, msg := range sess.Messages {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	if ls := m.activeStream(); ls != nil {
		if ls.waitingFirst {
			b.WriteString(m.theme.AssistantLabel.Render("Assistant"))
			b.WriteString("\n")
			b.WriteString(m.spin.View())
			b.WriteString(m.theme.Thinking.Render(" " + m.cfg.Chat.ThinkingMessage))
			b.WriteString("\n")
		} else {
			b.WriteString(m.renderMessage(ls.tail))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// renderMessage renders one transcript entry. Committed assistant messages
// go through the markdown renderer; the streaming tail stays plain so half-
// open code fences cannot garble the display.
func (m *Model) renderMessage(msg *model.Message) string {
	var label string
	if msg.Sender == model.RoleUser {
		label = m.theme.UserLabel.Render(m.cfg.Chat.UserName)
	} else {
		label = m.theme.AssistantLabel.Render("Assistant")
	}

	text := msg.DisplayText()
	if msg.Sender == model.RoleAssistant && !msg.IsStreaming() && m.renderer != nil {
		if rendered, err := m.renderer.Render(text); err == nil {
			return label + "\n" + strings.TrimRight(rendered, "\n") + "\n"
		}
	}
	return label + "\n" + m.theme.MessageText.Render(text) + "\n"
}
