// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// ROLES
// =============================================================================

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// NormalizeRole maps legacy sender values from older history files onto the
// current role set. Early versions of the history format wrote "ai" for
// assistant messages.
func NormalizeRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ai", "assistant":
		return RoleAssistant
	default:
		return RoleUser
	}
}

// =============================================================================
// MESSAGE
// =============================================================================

// Message is a single transcript entry. Committed messages are immutable;
// the one exception is an assistant message that is still streaming, whose
// text is replaced wholesale by each accumulator snapshot until
// FinalizeStream freezes it.
type Message struct {
	Sender    Role      `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`

	mu        sync.Mutex
	streaming bool
}

// NewMessage creates a committed (non-streaming) message.
func NewMessage(sender Role, text string) *Message {
	return &Message{
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewStreamingMessage creates an assistant message placeholder whose text
// will be filled in by stream snapshots.
func NewStreamingMessage() *Message {
	return &Message{
		Sender:    RoleAssistant,
		Timestamp: time.Now(),
		streaming: true,
	}
}

// IsStreaming reports whether the message is still receiving stream text.
func (m *Message) IsStreaming() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streaming
}

// SetStreamText replaces the message text with a full accumulator snapshot.
// No-op once the message has been finalized.
func (m *Message) SetStreamText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.streaming {
		return
	}
	m.Text = text
}

// FinalizeStream freezes the message with its final text. Further
// SetStreamText calls are ignored.
func (m *Message) FinalizeStream(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.streaming {
		return
	}
	m.Text = text
	m.streaming = false
}

// DisplayText returns the current text for rendering. Safe to call while
// the message is streaming.
func (m *Message) DisplayText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Text
}

// TranscriptLine renders the message in the "sender: text" form used by
// export files and clipboard copy.
func (m *Message) TranscriptLine() string {
	return fmt.Sprintf("%s: %s", m.Sender, m.DisplayText())
}
