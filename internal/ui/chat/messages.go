// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/jeranaias/localchat/internal/ollama"
)

// =============================================================================
// STREAM MESSAGES
// =============================================================================

// StreamPartialMsg carries a full snapshot of the text streamed so far.
type StreamPartialMsg struct {
	SessionID int
	StreamID  uuid.UUID
	Snapshot  string
}

// StreamFinalMsg signals clean completion; the text is already committed to
// the session store by the runner.
type StreamFinalMsg struct {
	SessionID int
	StreamID  uuid.UUID
	Text      string
}

// StreamFailedMsg signals a terminal stream error. Partial text is void.
type StreamFailedMsg struct {
	SessionID int
	StreamID  uuid.UUID
	Err       error
}

// StreamCancelledMsg signals cancellation. Partial text is void.
type StreamCancelledMsg struct {
	SessionID int
	StreamID  uuid.UUID
}

// =============================================================================
// OTHER MESSAGES
// =============================================================================

// ModelsLoadedMsg delivers the /api/tags result at startup or on refresh.
type ModelsLoadedMsg struct {
	Models []ollama.ModelInfo
	Err    error
}

// HistoryChangedMsg signals that the history file changed on disk outside
// this process.
type HistoryChangedMsg struct{}

// SaveErrorMsg reports a non-fatal persistence failure.
type SaveErrorMsg struct {
	Err error
}

// typingTickMsg drives the typing-effect reveal.
type typingTickMsg struct{}

// statusExpiredMsg clears a transient status line.
type statusExpiredMsg struct{ seq int }

// =============================================================================
// PROGRAM SINK
// =============================================================================

// ProgramSink bridges stream runner events into the Bubble Tea program.
// Program.Send is a channel underneath, so events keep their order. The
// program is attached after construction because the tea.Program itself is
// built around the model that needs this sink.
type ProgramSink struct {
	mu      sync.Mutex
	program *tea.Program
}

// NewProgramSink creates a sink with no program attached; events are
// dropped until SetProgram.
func NewProgramSink() *ProgramSink {
	return &ProgramSink{}
}

// SetProgram attaches the running program.
func (s *ProgramSink) SetProgram(p *tea.Program) {
	s.mu.Lock()
	s.program = p
	s.mu.Unlock()
}

func (s *ProgramSink) send(msg tea.Msg) {
	s.mu.Lock()
	p := s.program
	s.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (s *ProgramSink) StreamPartial(sessionID int, streamID uuid.UUID, snapshot string) {
	s.send(StreamPartialMsg{SessionID: sessionID, StreamID: streamID, Snapshot: snapshot})
}

func (s *ProgramSink) StreamFinal(sessionID int, streamID uuid.UUID, text string) {
	s.send(StreamFinalMsg{SessionID: sessionID, StreamID: streamID, Text: text})
}

func (s *ProgramSink) StreamFailed(sessionID int, streamID uuid.UUID, err error) {
	s.send(StreamFailedMsg{SessionID: sessionID, StreamID: streamID, Err: err})
}

func (s *ProgramSink) StreamCancelled(sessionID int, streamID uuid.UUID) {
	s.send(StreamCancelledMsg{SessionID: sessionID, StreamID: streamID})
}
