// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// typingTickInterval is the reveal cadence when the typing effect is on.
const typingTickInterval = 33 * time.Millisecond

// =============================================================================
// TYPING BUFFER
// =============================================================================

// TypingBuffer turns wholesale stream snapshots into a character-by-
// character reveal. It is purely cosmetic: the target text only ever grows
// by appending, so the revealed prefix is always a prefix of the final
// text and order is preserved. With the effect disabled every snapshot is
// revealed immediately.
type TypingBuffer struct {
	target  []rune
	shown   int
	enabled bool
	cps     int
	last    time.Time
}

// NewTypingBuffer creates a buffer revealing cps characters per second.
// When enabled is false the buffer is a passthrough.
func NewTypingBuffer(enabled bool, cps int) *TypingBuffer {
	if cps <= 0 {
		cps = 240
	}
	return &TypingBuffer{enabled: enabled, cps: cps}
}

// SetTarget replaces the target text with a newer snapshot. Snapshots from
// the accumulator are monotonic, so the revealed prefix stays valid.
func (b *TypingBuffer) SetTarget(s string) {
	b.target = []rune(s)
	if !b.enabled {
		b.shown = len(b.target)
	}
	if b.shown > len(b.target) {
		b.shown = len(b.target)
	}
	if b.last.IsZero() {
		b.last = time.Now()
	}
}

// Advance reveals characters according to the elapsed time since the last
// call. Reports whether anything new became visible.
func (b *TypingBuffer) Advance() bool {
	if !b.enabled || b.shown >= len(b.target) {
		return false
	}
	now := time.Now()
	if b.last.IsZero() {
		b.last = now
	}
	n := int(now.Sub(b.last).Seconds() * float64(b.cps))
	if n <= 0 {
		return false
	}
	b.last = now
	b.shown += n
	if b.shown > len(b.target) {
		b.shown = len(b.target)
	}
	return true
}

// Visible returns the currently revealed text.
func (b *TypingBuffer) Visible() string {
	return string(b.target[:b.shown])
}

// Pending reports whether more text is waiting to be revealed.
func (b *TypingBuffer) Pending() bool {
	return b.shown < len(b.target)
}

// Flush reveals everything immediately. Used when a stream finishes so the
// committed text never lags behind the display.
func (b *TypingBuffer) Flush() {
	b.shown = len(b.target)
}

// =============================================================================
// TICK COMMAND
// =============================================================================

// typingTick schedules the next reveal frame.
func typingTick() tea.Cmd {
	return tea.Tick(typingTickInterval, func(time.Time) tea.Msg {
		return typingTickMsg{}
	})
}
