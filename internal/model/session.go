// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// CHAT SESSION
// =============================================================================

// ChatSession is an ordered transcript of messages with a numeric id and a
// display name. Message order is append order and is never reordered.
type ChatSession struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Messages  []*Message `json:"messages"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewChatSession creates an empty session. The caller assigns the id.
func NewChatSession(id int, name string) *ChatSession {
	if name == "" {
		name = fmt.Sprintf("Chat %d", id)
	}
	return &ChatSession{
		ID:        id,
		Name:      name,
		Messages:  []*Message{},
		CreatedAt: time.Now(),
	}
}

// Clone returns a detached copy of the session. The message list is
// copied; the messages themselves are shared, which is safe because a
// committed message never changes and streaming tails are never stored.
func (s *ChatSession) Clone() *ChatSession {
	return &ChatSession{
		ID:        s.ID,
		Name:      s.Name,
		Messages:  append([]*Message(nil), s.Messages...),
		CreatedAt: s.CreatedAt,
	}
}

// Append adds a message to the end of the transcript.
func (s *ChatSession) Append(m *Message) {
	s.Messages = append(s.Messages, m)
}

// Last returns the final message, or nil for an empty transcript.
func (s *ChatSession) Last() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// RemoveLast drops the final message if it matches the given pointer. Used
// to retract a streaming placeholder after a failed or cancelled stream.
func (s *ChatSession) RemoveLast(m *Message) {
	if n := len(s.Messages); n > 0 && s.Messages[n-1] == m {
		s.Messages = s.Messages[:n-1]
	}
}

// Transcript renders the whole session as "sender: text" lines, one per
// message. This is the export and clipboard format.
func (s *ChatSession) Transcript() string {
	var b strings.Builder
	for i, m := range s.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.TranscriptLine())
	}
	return b.String()
}

// Preview returns a short single-line summary for the sidebar: the first
// user message, or the session name when empty.
func (s *ChatSession) Preview() string {
	for _, m := range s.Messages {
		if m.Sender == RoleUser {
			return m.DisplayText()
		}
	}
	return s.Name
}
