// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/localchat/internal/ollama"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// funcGenerator scripts the network side of a stream.
type funcGenerator func(ctx context.Context, model, prompt string, cb ollama.StreamCallback) error

func (f funcGenerator) Generate(ctx context.Context, model, prompt string, cb ollama.StreamCallback) error {
	return f(ctx, model, prompt, cb)
}

// chunkGenerator emits the given chunks then returns err.
func chunkGenerator(chunks []ollama.Chunk, err error) funcGenerator {
	return func(ctx context.Context, model, prompt string, cb ollama.StreamCallback) error {
		for _, c := range chunks {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			cb(c)
		}
		if err == nil && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
}

type sinkEvent struct {
	kind      string // "partial", "final", "failed", "cancelled"
	sessionID int
	streamID  uuid.UUID
	text      string
	err       error
}

// recordingSink captures events in order and signals when a terminal event
// arrives.
type recordingSink struct {
	mu       sync.Mutex
	events   []sinkEvent
	done     chan struct{}
	doneOnce sync.Once
}

func newRecordingSink() *recordingSink {
	return &recordingSink{done: make(chan struct{})}
}

func (s *recordingSink) add(e sinkEvent) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
	if e.kind != "partial" {
		s.doneOnce.Do(func() { close(s.done) })
	}
}

func (s *recordingSink) StreamPartial(id int, sid uuid.UUID, snapshot string) {
	s.add(sinkEvent{kind: "partial", sessionID: id, streamID: sid, text: snapshot})
}

func (s *recordingSink) StreamFinal(id int, sid uuid.UUID, text string) {
	s.add(sinkEvent{kind: "final", sessionID: id, streamID: sid, text: text})
}

func (s *recordingSink) StreamFailed(id int, sid uuid.UUID, err error) {
	s.add(sinkEvent{kind: "failed", sessionID: id, streamID: sid, err: err})
}

func (s *recordingSink) StreamCancelled(id int, sid uuid.UUID) {
	s.add(sinkEvent{kind: "cancelled", sessionID: id, streamID: sid})
}

func (s *recordingSink) wait(t *testing.T) []sinkEvent {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		t.Fatal("no terminal sink event")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sinkEvent(nil), s.events...)
}

// memCommitter records commits; sessions in missing refuse them.
type memCommitter struct {
	mu      sync.Mutex
	commits map[int][]string
	missing map[int]bool
}

func newMemCommitter() *memCommitter {
	return &memCommitter{commits: make(map[int][]string), missing: make(map[int]bool)}
}

func (c *memCommitter) CommitAssistant(sessionID int, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.missing[sessionID] {
		return errors.New("session not found")
	}
	c.commits[sessionID] = append(c.commits[sessionID], text)
	return nil
}

func (c *memCommitter) committed(sessionID int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.commits[sessionID]...)
}

// =============================================================================
// RUNNER TESTS
// =============================================================================

func TestRunner_PartialsThenFinal(t *testing.T) {
	gen := chunkGenerator([]ollama.Chunk{
		{Text: "He"},
		{Text: "llo"},
		{Done: true},
	}, nil)
	store := newMemCommitter()
	sink := newRecordingSink()
	r := NewRunner(gen, store, sink)

	streamID, err := r.Start(context.Background(), 1, "m", "hi")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, streamID)

	events := sink.wait(t)
	require.Len(t, events, 3)

	require.Equal(t, "partial", events[0].kind)
	require.Equal(t, "He", events[0].text)
	require.Equal(t, "partial", events[1].kind)
	require.Equal(t, "Hello", events[1].text)
	require.Equal(t, "final", events[2].kind)
	require.Equal(t, "Hello", events[2].text)

	for _, e := range events {
		require.Equal(t, 1, e.sessionID)
		require.Equal(t, streamID, e.streamID)
	}

	require.Equal(t, []string{"Hello"}, store.committed(1))
}

func TestRunner_ErrorFragmentNoCommit(t *testing.T) {
	streamErr := &ollama.ClientError{Type: ollama.ErrTypeStream, Message: "model exploded"}
	gen := chunkGenerator([]ollama.Chunk{
		{Text: "par"},
		{Text: "tial"},
	}, streamErr)
	store := newMemCommitter()
	sink := newRecordingSink()
	r := NewRunner(gen, store, sink)

	_, err := r.Start(context.Background(), 1, "m", "hi")
	require.NoError(t, err)

	events := sink.wait(t)
	last := events[len(events)-1]
	require.Equal(t, "failed", last.kind)
	require.ErrorIs(t, last.err, streamErr)

	require.Empty(t, store.committed(1), "failed stream must not commit")
}

func TestRunner_OneStreamPerSession(t *testing.T) {
	release := make(chan struct{})
	gen := funcGenerator(func(ctx context.Context, model, prompt string, cb ollama.StreamCallback) error {
		<-release
		cb(ollama.Chunk{Done: true})
		return nil
	})
	store := newMemCommitter()
	sink := newRecordingSink()
	r := NewRunner(gen, store, sink)

	_, err := r.Start(context.Background(), 1, "m", "first")
	require.NoError(t, err)
	require.True(t, r.Streaming(1))

	_, err = r.Start(context.Background(), 1, "m", "second")
	require.ErrorIs(t, err, ErrStreamActive)

	// A different session is unaffected by session 1's live stream.
	_, err = r.Start(context.Background(), 2, "m", "other")
	require.NoError(t, err)

	close(release)
	sink.wait(t)

	// Once finished, the slot frees up.
	require.Eventually(t, func() bool { return !r.Streaming(1) }, time.Second, 5*time.Millisecond)
}

func TestRunner_CancelDiscardsPartial(t *testing.T) {
	started := make(chan struct{})
	gen := funcGenerator(func(ctx context.Context, model, prompt string, cb ollama.StreamCallback) error {
		cb(ollama.Chunk{Text: "partial "})
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	store := newMemCommitter()
	sink := newRecordingSink()
	r := NewRunner(gen, store, sink)

	_, err := r.Start(context.Background(), 1, "m", "hi")
	require.NoError(t, err)

	<-started
	require.True(t, r.Cancel(1))

	events := sink.wait(t)
	last := events[len(events)-1]
	require.Equal(t, "cancelled", last.kind)
	require.Empty(t, store.committed(1), "cancelled stream must not commit")
}

func TestRunner_LateFragmentsAfterCancelDropped(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})
	gen := funcGenerator(func(ctx context.Context, model, prompt string, cb ollama.StreamCallback) error {
		cb(ollama.Chunk{Text: "early"})
		close(started)
		<-cancelled
		// Fragments that were already in flight when the user cancelled.
		cb(ollama.Chunk{Text: " late"})
		return ctx.Err()
	})
	store := newMemCommitter()
	sink := newRecordingSink()
	r := NewRunner(gen, store, sink)

	_, err := r.Start(context.Background(), 1, "m", "hi")
	require.NoError(t, err)

	<-started
	require.True(t, r.Cancel(1))
	close(cancelled)

	events := sink.wait(t)
	for _, e := range events {
		require.NotEqual(t, " late", e.text, "late fragment leaked to sink")
		require.NotContains(t, e.text, "late")
	}
}

func TestRunner_CommitDroppedForDeletedSession(t *testing.T) {
	gen := chunkGenerator([]ollama.Chunk{
		{Text: "answer"},
		{Done: true},
	}, nil)
	store := newMemCommitter()
	store.missing[1] = true
	sink := newRecordingSink()
	r := NewRunner(gen, store, sink)

	_, err := r.Start(context.Background(), 1, "m", "hi")
	require.NoError(t, err)

	events := sink.wait(t)
	last := events[len(events)-1]
	require.NotEqual(t, "final", last.kind, "deleted session must not receive a final commit")
	require.Empty(t, store.committed(1))
}

func TestRunner_CancelWithoutStream(t *testing.T) {
	r := NewRunner(chunkGenerator(nil, nil), newMemCommitter(), newRecordingSink())
	require.False(t, r.Cancel(42))
}

func TestRunner_CancelAll(t *testing.T) {
	started := make(chan struct{}, 2)
	gen := funcGenerator(func(ctx context.Context, model, prompt string, cb ollama.StreamCallback) error {
		started <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	})
	store := newMemCommitter()
	sink1 := newRecordingSink()
	r := NewRunner(gen, store, sink1)

	_, err := r.Start(context.Background(), 1, "m", "a")
	require.NoError(t, err)
	<-started

	r.CancelAll()
	events := sink1.wait(t)
	require.Equal(t, "cancelled", events[len(events)-1].kind)
	require.Eventually(t, func() bool { return !r.Streaming(1) }, time.Second, 5*time.Millisecond)
}

func TestRunner_DistinctStreamIDs(t *testing.T) {
	gen := chunkGenerator([]ollama.Chunk{{Done: true}}, nil)
	store := newMemCommitter()

	sink := newRecordingSink()
	r := NewRunner(gen, store, sink)
	id1, err := r.Start(context.Background(), 1, "m", "a")
	require.NoError(t, err)
	sink.wait(t)

	sink2 := newRecordingSink()
	r2 := NewRunner(gen, store, sink2)
	id2, err := r2.Start(context.Background(), 1, "m", "b")
	require.NoError(t, err)
	sink2.wait(t)

	require.NotEqual(t, id1, id2)
}
