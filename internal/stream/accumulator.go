// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"
	"sync"
)

// =============================================================================
// ACCUMULATOR STATE MACHINE
// =============================================================================

// State is the lifecycle state of an accumulator.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// terminal reports whether no further transitions are allowed from s.
func (s State) terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Accumulator collects response fragments in arrival order and hands out
// full-text snapshots. Transitions: Idle -> Streaming -> one of Completed,
// Failed, Cancelled. Once terminal, every mutation is a no-op; fragments
// arriving after cancellation or failure are silently dropped.
type Accumulator struct {
	mu    sync.Mutex
	state State
	buf   strings.Builder
	err   error
}

// NewAccumulator returns an idle accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{state: StateIdle}
}

// Start moves Idle -> Streaming. Reports false if the accumulator already
// left Idle.
func (a *Accumulator) Start() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateIdle {
		return false
	}
	a.state = StateStreaming
	return true
}

// Append adds one fragment and returns the full accumulated snapshot.
// Fragments are concatenated in call order with nothing inserted between
// them. Reports false (and drops the fragment) unless streaming.
func (a *Accumulator) Append(fragment string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateStreaming {
		return "", false
	}
	a.buf.WriteString(fragment)
	return a.buf.String(), true
}

// Complete moves Streaming -> Completed and returns the final text. Only a
// completed accumulator's text may be committed to a session.
func (a *Accumulator) Complete() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateStreaming {
		return "", false
	}
	a.state = StateCompleted
	return a.buf.String(), true
}

// Fail moves Streaming -> Failed, recording the cause. The partial text is
// abandoned, never committed.
func (a *Accumulator) Fail(err error) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.terminal() {
		return false
	}
	a.state = StateFailed
	a.err = err
	return true
}

// Cancel moves to Cancelled. Like Fail, the partial text is abandoned.
func (a *Accumulator) Cancel() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.terminal() {
		return false
	}
	a.state = StateCancelled
	return true
}

// State returns the current lifecycle state.
func (a *Accumulator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Err returns the failure cause, if any.
func (a *Accumulator) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Text returns the current accumulated text.
func (a *Accumulator) Text() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.String()
}
