// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// HISTORY FILE WATCHER
// =============================================================================

// Watcher notifies when the history file changes on disk outside this
// process (another instance, a sync tool, manual edits). The parent
// directory is watched rather than the file itself, because atomic saves
// replace the file by rename and would otherwise drop the watch.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	onChange func()

	mu      sync.Mutex
	pending bool
	timer   *time.Timer

	ctx    context.Context
	cancel context.CancelFunc

	// suppressUntil masks events caused by our own saves.
	suppressMu    sync.Mutex
	suppressUntil time.Time
}

// NewWatcher creates a watcher for the given history file. onChange fires
// at most once per debounce window, on the watcher goroutine.
func NewWatcher(path string, debounce time.Duration, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		watcher:  fsw,
		path:     filepath.Clean(path),
		debounce: debounce,
		onChange: onChange,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts delivering change notifications. The history file's parent
// directory must exist.
func (w *Watcher) Watch() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	go w.processEvents()
	return nil
}

// SuppressFor masks change notifications for the given window. Called
// around our own saves so they do not bounce back as external changes.
func (w *Watcher) SuppressFor(d time.Duration) {
	w.suppressMu.Lock()
	w.suppressUntil = time.Now().Add(d)
	w.suppressMu.Unlock()
}

func (w *Watcher) suppressed() bool {
	w.suppressMu.Lock()
	defer w.suppressMu.Unlock()
	return time.Now().Before(w.suppressUntil)
}

// processEvents filters directory events down to the history file and
// debounces bursts (an atomic save is create+rename+chmod) into a single
// notification.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if w.suppressed() {
				continue
			}
			w.schedule()

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the app keeps its in-memory
			// state and simply loses external-change detection.
		}
	}
}

// schedule arms (or re-arms) the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = true
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		fire := w.pending
		w.pending = false
		w.mu.Unlock()
		if fire && w.ctx.Err() == nil {
			w.onChange()
		}
	})
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}
