// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

// =============================================================================
// CONSOLE SINK
// =============================================================================

// consoleSink prints stream events straight to a writer. The REPL runs one
// stream at a time, so the sink tracks how much of the snapshot has been
// printed and emits only the new suffix of each partial.
type consoleSink struct {
	mu      sync.Mutex
	w       io.Writer
	printed int
	done    chan error
}

func newConsoleSink(w io.Writer) *consoleSink {
	return &consoleSink{w: w}
}

// begin resets per-stream state and returns the completion channel.
func (s *consoleSink) begin() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.printed = 0
	s.done = make(chan error, 1)
	return s.done
}

func (s *consoleSink) StreamPartial(sessionID int, streamID uuid.UUID, snapshot string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.printed < len(snapshot) {
		fmt.Fprint(s.w, snapshot[s.printed:])
		s.printed = len(snapshot)
	}
}

func (s *consoleSink) StreamFinal(sessionID int, streamID uuid.UUID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w)
	s.finishLocked(nil)
}

func (s *consoleSink) StreamFailed(sessionID int, streamID uuid.UUID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w)
	s.finishLocked(err)
}

func (s *consoleSink) StreamCancelled(sessionID int, streamID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w)
	s.finishLocked(errCancelled)
}

func (s *consoleSink) finishLocked(err error) {
	if s.done != nil {
		s.done <- err
		s.done = nil
	}
}
