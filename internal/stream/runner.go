// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/jeranaias/localchat/internal/ollama"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrStreamActive is returned by Start when the session already has a live
// stream. The caller must cancel or wait before starting another.
var ErrStreamActive = errors.New("a stream is already active for this session")

// =============================================================================
// PORTS
// =============================================================================

// Generator is the inference capability the runner needs. *ollama.Client
// satisfies it.
type Generator interface {
	Generate(ctx context.Context, model, prompt string, callback ollama.StreamCallback) error
}

// Committer receives the final text of a completed stream. Implementations
// return an error when the target session no longer exists, in which case
// the commit is dropped.
type Committer interface {
	CommitAssistant(sessionID int, text string) error
}

// Sink receives ordered display events for a stream. All calls for one
// stream happen on that stream's reader goroutine, so calls arrive in
// fragment order; implementations bridge to their own event loop.
type Sink interface {
	// StreamPartial delivers a full snapshot of the text so far.
	StreamPartial(sessionID int, streamID uuid.UUID, snapshot string)
	// StreamFinal delivers the complete text after a clean finish.
	StreamFinal(sessionID int, streamID uuid.UUID, text string)
	// StreamFailed reports a terminal error; any partial text is void.
	StreamFailed(sessionID int, streamID uuid.UUID, err error)
	// StreamCancelled reports a user cancellation; partial text is void.
	StreamCancelled(sessionID int, streamID uuid.UUID)
}

// =============================================================================
// RUNNER
// =============================================================================

// run is the bookkeeping for one live stream.
type run struct {
	id     uuid.UUID
	acc    *Accumulator
	cancel context.CancelFunc
}

// Runner starts, tracks, and cancels streams. It enforces the one-live-
// stream-per-session rule and is the only component that commits assistant
// text to the store.
type Runner struct {
	mu     sync.Mutex
	client Generator
	store  Committer
	sink   Sink
	active map[int]*run
}

// NewRunner creates a runner wired to the given client, store, and sink.
func NewRunner(client Generator, store Committer, sink Sink) *Runner {
	return &Runner{
		client: client,
		store:  store,
		sink:   sink,
		active: make(map[int]*run),
	}
}

// Start begins streaming a response for prompt into the given session and
// returns the new stream's id. Returns ErrStreamActive if the session
// already has a live stream. The stream runs on its own goroutine; events
// reach the sink in fragment order.
func (r *Runner) Start(ctx context.Context, sessionID int, model, prompt string) (uuid.UUID, error) {
	r.mu.Lock()
	if _, exists := r.active[sessionID]; exists {
		r.mu.Unlock()
		return uuid.Nil, ErrStreamActive
	}

	ctx, cancel := context.WithCancel(ctx)
	rn := &run{
		id:     uuid.New(),
		acc:    NewAccumulator(),
		cancel: cancel,
	}
	rn.acc.Start()
	r.active[sessionID] = rn
	r.mu.Unlock()

	go r.consume(ctx, sessionID, rn, model, prompt)
	return rn.id, nil
}

// consume is the reader goroutine: it drives the network stream, feeds the
// accumulator, and emits the terminal event exactly once.
func (r *Runner) consume(ctx context.Context, sessionID int, rn *run, model, prompt string) {
	defer r.finish(sessionID, rn)

	err := r.client.Generate(ctx, model, prompt, func(chunk ollama.Chunk) {
		if chunk.Err != nil || chunk.Done {
			return // terminal handling below, driven by Generate's return
		}
		// Append refuses fragments after cancellation, so a late chunk
		// racing Cancel is dropped rather than displayed.
		if snapshot, ok := rn.acc.Append(chunk.Text); ok {
			r.sink.StreamPartial(sessionID, rn.id, snapshot)
		}
	})

	if err != nil {
		if errors.Is(err, context.Canceled) {
			rn.acc.Cancel()
			r.sink.StreamCancelled(sessionID, rn.id)
			return
		}
		if rn.acc.Fail(err) {
			r.sink.StreamFailed(sessionID, rn.id, err)
		} else {
			// Fail refused: a racing Cancel already made the state terminal.
			r.sink.StreamCancelled(sessionID, rn.id)
		}
		return
	}

	text, ok := rn.acc.Complete()
	if !ok {
		// Cancelled between the last read and completion.
		r.sink.StreamCancelled(sessionID, rn.id)
		return
	}

	// The session may have been deleted mid-stream; the commit is simply
	// dropped in that case, but the sink still learns the stream is over.
	if err := r.store.CommitAssistant(sessionID, text); err != nil {
		r.sink.StreamCancelled(sessionID, rn.id)
		return
	}
	r.sink.StreamFinal(sessionID, rn.id, text)
}

// finish clears the session's active slot, but only if it still belongs to
// this run.
func (r *Runner) finish(sessionID int, rn *run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.active[sessionID]; ok && cur == rn {
		delete(r.active, sessionID)
	}
}

// Cancel aborts the session's live stream, if any. The partial response is
// discarded and nothing is committed. Reports whether a stream was live.
func (r *Runner) Cancel(sessionID int) bool {
	r.mu.Lock()
	rn, ok := r.active[sessionID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	// Mark cancelled before releasing the context so in-flight fragments
	// are refused by the accumulator.
	rn.acc.Cancel()
	rn.cancel()
	return true
}

// CancelAll aborts every live stream. Used at shutdown.
func (r *Runner) CancelAll() {
	r.mu.Lock()
	runs := make([]*run, 0, len(r.active))
	for _, rn := range r.active {
		runs = append(runs, rn)
	}
	r.mu.Unlock()
	for _, rn := range runs {
		rn.acc.Cancel()
		rn.cancel()
	}
}

// Streaming reports whether the session has a live stream.
func (r *Runner) Streaming(sessionID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[sessionID]
	return ok
}
