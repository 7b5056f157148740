// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"testing"
)

func TestAccumulator_OrderedConcatenation(t *testing.T) {
	a := NewAccumulator()
	if !a.Start() {
		t.Fatal("Start failed on idle accumulator")
	}

	fragments := []string{"The ", "quick", " brown", " fox"}
	var lastSnapshot string
	for _, f := range fragments {
		snap, ok := a.Append(f)
		if !ok {
			t.Fatalf("Append(%q) refused while streaming", f)
		}
		lastSnapshot = snap
	}

	want := "The quick brown fox"
	if lastSnapshot != want {
		t.Errorf("snapshot = %q, want %q", lastSnapshot, want)
	}

	text, ok := a.Complete()
	if !ok {
		t.Fatal("Complete failed while streaming")
	}
	if text != want {
		t.Errorf("final text = %q, want %q", text, want)
	}
	if a.State() != StateCompleted {
		t.Errorf("state = %v, want completed", a.State())
	}
}

func TestAccumulator_SnapshotIsWholesale(t *testing.T) {
	a := NewAccumulator()
	a.Start()

	snap1, _ := a.Append("He")
	if snap1 != "He" {
		t.Errorf("first snapshot = %q, want %q", snap1, "He")
	}
	snap2, _ := a.Append("llo")
	if snap2 != "Hello" {
		t.Errorf("second snapshot = %q, want %q", snap2, "Hello")
	}
}

func TestAccumulator_DoubleStart(t *testing.T) {
	a := NewAccumulator()
	if !a.Start() {
		t.Fatal("first Start failed")
	}
	if a.Start() {
		t.Error("second Start should be refused")
	}
}

func TestAccumulator_AppendBeforeStart(t *testing.T) {
	a := NewAccumulator()
	if _, ok := a.Append("x"); ok {
		t.Error("Append should be refused while idle")
	}
}

func TestAccumulator_LateFragmentsAfterCancel(t *testing.T) {
	a := NewAccumulator()
	a.Start()
	a.Append("kept so far")

	if !a.Cancel() {
		t.Fatal("Cancel failed while streaming")
	}
	if a.State() != StateCancelled {
		t.Fatalf("state = %v, want cancelled", a.State())
	}

	if _, ok := a.Append("late"); ok {
		t.Error("fragment after cancel should be dropped")
	}
	if a.Text() != "kept so far" {
		t.Errorf("text mutated after cancel: %q", a.Text())
	}
	if _, ok := a.Complete(); ok {
		t.Error("Complete after cancel should be refused")
	}
}

func TestAccumulator_FailRecordsCause(t *testing.T) {
	a := NewAccumulator()
	a.Start()
	a.Append("partial")

	cause := errors.New("stream broke")
	if !a.Fail(cause) {
		t.Fatal("Fail refused while streaming")
	}
	if a.State() != StateFailed {
		t.Errorf("state = %v, want failed", a.State())
	}
	if !errors.Is(a.Err(), cause) {
		t.Errorf("Err = %v, want %v", a.Err(), cause)
	}

	// Terminal states are sticky.
	if a.Cancel() {
		t.Error("Cancel after Fail should be refused")
	}
	if _, ok := a.Complete(); ok {
		t.Error("Complete after Fail should be refused")
	}
}

func TestAccumulator_EmptyCompletion(t *testing.T) {
	a := NewAccumulator()
	a.Start()
	text, ok := a.Complete()
	if !ok {
		t.Fatal("Complete failed")
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateIdle, "idle"},
		{StateStreaming, "streaming"},
		{StateCompleted, "completed"},
		{StateFailed, "failed"},
		{StateCancelled, "cancelled"},
	}
	for _, tc := range tests {
		if got := tc.s.String(); got != tc.want {
			t.Errorf("State(%d).String() = %q, want %q", tc.s, got, tc.want)
		}
	}
}
