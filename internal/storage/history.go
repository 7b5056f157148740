// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"os"
	"time"

	"github.com/jeranaias/localchat/internal/model"
	"github.com/jeranaias/localchat/internal/util"
)

// =============================================================================
// ERROR TYPE
// =============================================================================

// HistoryError wraps persistence failures with the operation and path.
type HistoryError struct {
	Op    string // "load" or "save"
	Path  string
	Cause error
}

func (e *HistoryError) Error() string {
	return "history " + e.Op + " failed for " + e.Path + ": " + e.Cause.Error()
}

func (e *HistoryError) Unwrap() error {
	return e.Cause
}

// =============================================================================
// RECORD TYPES
// =============================================================================

// sessionRecord is the on-disk shape of one session. The document is a JSON
// array of these records; the layout is shared with earlier versions of the
// app, so loading stays tolerant of their quirks (sender "ai", loose
// timestamp strings).
type sessionRecord struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Messages  []messageRecord `json:"messages"`
	CreatedAt string          `json:"created_at"`
}

type messageRecord struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// parseTime accepts RFC3339 and falls back to the zero time for anything
// else. Legacy files carried clock-only strings not worth preserving.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// =============================================================================
// HISTORY STORE
// =============================================================================

// HistoryStore reads and writes the chat history file. It satisfies the
// session store's persistence Port. Writes are atomic full-file replaces.
type HistoryStore struct {
	// Path to the history JSON file.
	Path string

	// beforeSave, when set, runs just before each write. The TUI uses it
	// to tell the file watcher the upcoming change is ours.
	beforeSave func()
}

// NewHistoryStore creates a store over the given file path.
func NewHistoryStore(path string) *HistoryStore {
	return &HistoryStore{Path: path}
}

// BeforeSave registers fn to run ahead of every write.
func (h *HistoryStore) BeforeSave(fn func()) {
	h.beforeSave = fn
}

// Load reads every session from the history file. A missing file is an
// empty history, not an error: first launch has nothing on disk yet.
func (h *HistoryStore) Load() ([]*model.ChatSession, error) {
	data, err := os.ReadFile(h.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return []*model.ChatSession{}, nil
		}
		return nil, &HistoryError{Op: "load", Path: h.Path, Cause: err}
	}

	var records []sessionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &HistoryError{Op: "load", Path: h.Path, Cause: err}
	}

	sessions := make([]*model.ChatSession, 0, len(records))
	for _, rec := range records {
		sess := &model.ChatSession{
			ID:        rec.ID,
			Name:      rec.Name,
			Messages:  make([]*model.Message, 0, len(rec.Messages)),
			CreatedAt: parseTime(rec.CreatedAt),
		}
		for _, mr := range rec.Messages {
			sess.Messages = append(sess.Messages, &model.Message{
				Sender:    model.NormalizeRole(mr.Sender),
				Text:      mr.Text,
				Timestamp: parseTime(mr.Timestamp),
			})
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// Save writes the whole session list, replacing the file atomically so a
// crash mid-save cannot corrupt existing history.
func (h *HistoryStore) Save(sessions []*model.ChatSession) error {
	records := make([]sessionRecord, 0, len(sessions))
	for _, sess := range sessions {
		rec := sessionRecord{
			ID:        sess.ID,
			Name:      sess.Name,
			Messages:  make([]messageRecord, 0, len(sess.Messages)),
			CreatedAt: sess.CreatedAt.Format(time.RFC3339),
		}
		for _, m := range sess.Messages {
			// A still-streaming tail is uncommitted and stays out of
			// the file; only finalized messages persist.
			if m.IsStreaming() {
				continue
			}
			rec.Messages = append(rec.Messages, messageRecord{
				Sender:    string(m.Sender),
				Text:      m.Text,
				Timestamp: m.Timestamp.Format(time.RFC3339),
			})
		}
		records = append(records, rec)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &HistoryError{Op: "save", Path: h.Path, Cause: err}
	}

	if h.beforeSave != nil {
		h.beforeSave()
	}
	if err := util.AtomicWriteFile(h.Path, data, 0644); err != nil {
		return &HistoryError{Op: "save", Path: h.Path, Cause: err}
	}
	return nil
}
