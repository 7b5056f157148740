// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/stream"
)

const sidebarWidth = 28

// Update is the Bubble Tea update loop.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refreshViewport(true)

	case spinner.TickMsg:
		if m.anyWaiting() {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			cmds = append(cmds, cmd)
			m.refreshViewport(false)
		}

	case typingTickMsg:
		if m.advanceTyping() {
			m.refreshViewport(true)
		}
		if m.anyTypingPending() {
			cmds = append(cmds, typingTick())
		}

	case StreamPartialMsg:
		if ls, ok := m.streams[msg.SessionID]; ok && ls.id == msg.StreamID {
			ls.typing.SetTarget(msg.Snapshot)
			if ls.waitingFirst {
				ls.waitingFirst = false
			}
			if !ls.typing.Pending() {
				ls.tail.SetStreamText(ls.typing.Visible())
				m.refreshViewport(true)
			} else {
				cmds = append(cmds, typingTick())
			}
		}

	case StreamFinalMsg:
		if ls, ok := m.streams[msg.SessionID]; ok && ls.id == msg.StreamID {
			// The runner already committed the text; the tail placeholder
			// just disappears in favor of the stored message.
			delete(m.streams, msg.SessionID)
			m.refreshViewport(true)
		}

	case StreamFailedMsg:
		if ls, ok := m.streams[msg.SessionID]; ok && ls.id == msg.StreamID {
			delete(m.streams, msg.SessionID)
			m.errText = fmt.Sprintf("Response failed: %v", msg.Err)
			m.refreshViewport(true)
		}

	case StreamCancelledMsg:
		if ls, ok := m.streams[msg.SessionID]; ok && ls.id == msg.StreamID {
			delete(m.streams, msg.SessionID)
			cmds = append(cmds, m.setStatus("Response cancelled"))
			m.refreshViewport(true)
		}

	case ModelsLoadedMsg:
		m.modelsErr = msg.Err
		if msg.Err == nil {
			m.models = msg.Models
			if m.selectedModel == "" && len(m.models) > 0 {
				m.selectedModel = m.models[0].Name
			}
			for i, info := range m.models {
				if info.Name == m.selectedModel {
					m.modelCursor = i
				}
			}
		} else {
			m.errText = fmt.Sprintf("Could not load models: %v", msg.Err)
		}

	case HistoryChangedMsg:
		if err := m.store.Load(); err != nil {
			m.errText = fmt.Sprintf("Could not reload history: %v", err)
		} else {
			m.clampSidebarCursor()
			cmds = append(cmds, m.setStatus("History reloaded from disk"))
		}
		m.refreshViewport(true)

	case SaveErrorMsg:
		m.errText = fmt.Sprintf("Could not save history: %v", msg.Err)

	case statusExpiredMsg:
		if msg.seq == m.statusSeq {
			m.statusText = ""
		}

	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	// Forward to the text input: every non-key message (blink, paste) and,
	// when the input has focus, any key not claimed by a binding above.
	keyMsg, isKey := msg.(tea.KeyMsg)
	if !isKey || (m.focus == focusInput && m.isInputKey(keyMsg)) {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// isInputKey filters keys that belong to the text input rather than to a
// global binding.
func (m *Model) isInputKey(msg tea.KeyMsg) bool {
	k := m.keys
	for _, b := range []key.Binding{
		k.Submit, k.Cancel, k.Quit, k.NewChat, k.DeleteChat,
		k.Sidebar, k.Models, k.Export, k.ExportMd, k.CopyChat, k.CopyLast, k.Help,
		k.PageUp, k.PageDown, k.Up, k.Down,
	} {
		if key.Matches(msg, b) {
			return false
		}
	}
	return true
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	// Quit always works.
	if key.Matches(msg, m.keys.Quit) {
		m.runner.CancelAll()
		return tea.Quit
	}

	switch m.focus {
	case focusModels:
		return m.handleModelsKey(msg)
	case focusSidebar:
		return m.handleSidebarKey(msg)
	default:
		return m.handleInputKey(msg)
	}
}

func (m *Model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Cancel):
		if m.showHelp {
			m.showHelp = false
			return nil
		}
		if m.runner.Cancel(m.store.ActiveID()) {
			return nil // StreamCancelledMsg follows
		}
		m.errText = ""
		return nil

	case key.Matches(msg, m.keys.Sidebar):
		m.focus = focusSidebar
		m.input.Blur()
		m.syncSidebarCursor()
		return nil

	case key.Matches(msg, m.keys.Models):
		m.focus = focusModels
		m.input.Blur()
		return nil

	case key.Matches(msg, m.keys.NewChat):
		m.newChat()
		return nil

	case key.Matches(msg, m.keys.DeleteChat):
		return m.deleteSession(m.store.ActiveID())

	case key.Matches(msg, m.keys.Export):
		return m.exportText()

	case key.Matches(msg, m.keys.ExportMd):
		return m.exportMarkdown()

	case key.Matches(msg, m.keys.CopyChat):
		return m.copyChat()

	case key.Matches(msg, m.keys.CopyLast):
		return m.copyLastReply()

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return nil

	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
	}
	return nil
}

func (m *Model) handleSidebarKey(msg tea.KeyMsg) tea.Cmd {
	sessions := m.store.Sessions()

	switch {
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Sidebar):
		m.focus = focusInput
		m.input.Focus()

	case key.Matches(msg, m.keys.Up):
		if m.sidebarCursor > 0 {
			m.sidebarCursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.sidebarCursor < len(sessions)-1 {
			m.sidebarCursor++
		}

	case key.Matches(msg, m.keys.Submit):
		if m.sidebarCursor < len(sessions) {
			if err := m.store.SetActive(sessions[m.sidebarCursor].ID); err == nil {
				m.focus = focusInput
				m.input.Focus()
				m.errText = ""
				m.refreshViewport(true)
			}
		}

	case key.Matches(msg, m.keys.NewChat):
		m.newChat()
		m.focus = focusInput
		m.input.Focus()

	case key.Matches(msg, m.keys.DeleteChat):
		if m.sidebarCursor < len(sessions) {
			return m.deleteSession(sessions[m.sidebarCursor].ID)
		}
	}
	return nil
}

func (m *Model) handleModelsKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Models):
		m.focus = focusInput
		m.input.Focus()

	case key.Matches(msg, m.keys.Up):
		if m.modelCursor > 0 {
			m.modelCursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.modelCursor < len(m.models)-1 {
			m.modelCursor++
		}

	case key.Matches(msg, m.keys.Submit):
		if m.modelCursor < len(m.models) {
			m.selectedModel = m.models[m.modelCursor].Name
			m.cfg.Server.DefaultModel = m.selectedModel
			if err := m.cfg.Persist(); err != nil {
				m.errText = fmt.Sprintf("Could not save config: %v", err)
			}
		}
		m.focus = focusInput
		m.input.Focus()
		return m.setStatus("Model: " + m.selectedModel)
	}
	return nil
}

// =============================================================================
// ACTIONS
// =============================================================================

// submit sends the input as a user message and starts a stream.
func (m *Model) submit() tea.Cmd {
	prompt := strings.TrimSpace(m.input.Value())
	if prompt == "" {
		return nil
	}
	if m.selectedModel == "" {
		m.errText = "No model selected. Is Ollama running?"
		return m.loadModels()
	}

	if m.store.Active() == nil {
		m.store.Create("")
		m.syncSidebarCursor()
	}
	sessionID := m.store.ActiveID()

	if m.runner.Streaming(sessionID) {
		return m.setStatus("Still responding - Esc to cancel")
	}

	if err := m.store.AppendMessage(sessionID, model.NewMessage(model.RoleUser, prompt)); err != nil {
		m.errText = fmt.Sprintf("Could not record message: %v", err)
		return nil
	}

	streamID, err := m.runner.Start(context.Background(), sessionID, m.selectedModel, prompt)
	if err != nil {
		if err == stream.ErrStreamActive {
			return m.setStatus("Still responding - Esc to cancel")
		}
		m.errText = fmt.Sprintf("Could not start response: %v", err)
		return nil
	}

	m.streams[sessionID] = &liveStream{
		id:           streamID,
		tail:         model.NewStreamingMessage(),
		typing:       NewTypingBuffer(m.cfg.UI.TypingEffect, m.cfg.UI.TypingCharsPerSec),
		waitingFirst: true,
	}

	m.input.Reset()
	m.errText = ""
	m.refreshViewport(true)
	return m.spin.Tick
}

// newChat creates and activates an empty session.
func (m *Model) newChat() {
	m.store.Create("")
	m.errText = ""
	m.syncSidebarCursor()
	m.refreshViewport(true)
}

// deleteSession removes a session, cancelling its stream first so a late
// completion cannot commit into a dead transcript.
func (m *Model) deleteSession(id int) tea.Cmd {
	if id == 0 {
		return nil
	}
	m.runner.Cancel(id)
	delete(m.streams, id)
	if err := m.store.Delete(id); err != nil {
		m.errText = fmt.Sprintf("Could not delete chat: %v", err)
		return nil
	}
	m.clampSidebarCursor()
	m.refreshViewport(true)
	return m.setStatus("Chat deleted")
}

// =============================================================================
// TYPING & LAYOUT HELPERS
// =============================================================================

// advanceTyping moves every live typing buffer forward and pushes the
// revealed text into the streaming tails. Reports whether anything changed.
func (m *Model) advanceTyping() bool {
	changed := false
	for _, ls := range m.streams {
		if ls.typing.Advance() {
			ls.tail.SetStreamText(ls.typing.Visible())
			changed = true
		}
		if !ls.typing.Pending() {
			ls.tail.SetStreamText(ls.typing.Visible())
		}
	}
	return changed
}

// anyWaiting reports whether any stream is still before its first fragment.
func (m *Model) anyWaiting() bool {
	for _, ls := range m.streams {
		if ls.waitingFirst {
			return true
		}
	}
	return false
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	contentWidth := width - sidebarWidth - 2
	if contentWidth < 20 {
		contentWidth = 20
	}
	contentHeight := height - 6
	if contentHeight < 3 {
		contentHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(contentWidth, contentHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = contentHeight
	}

	m.input.Width = contentWidth - 4

	// Markdown wraps to the viewport, so the renderer follows resizes.
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(contentWidth),
	)
	if err == nil {
		m.renderer = renderer
	}
}

// syncSidebarCursor points the cursor at the active session.
func (m *Model) syncSidebarCursor() {
	for i, sess := range m.store.Sessions() {
		if sess.ID == m.store.ActiveID() {
			m.sidebarCursor = i
			return
		}
	}
	m.sidebarCursor = 0
}

func (m *Model) clampSidebarCursor() {
	if n := m.store.Len(); m.sidebarCursor >= n && n > 0 {
		m.sidebarCursor = n - 1
	} else if n == 0 {
		m.sidebarCursor = 0
	}
}
