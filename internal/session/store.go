// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"sync"

	"github.com/jeranaias/localchat/internal/model"
)

// =============================================================================
// ERRORS & PORTS
// =============================================================================

// ErrNotFound is returned when an operation targets a session id that does
// not exist (typically because it was deleted).
var ErrNotFound = errors.New("session not found")

// Port is the persistence boundary for the store. Load on a missing backing
// file returns an empty list and nil error; Save replaces the whole
// document.
type Port interface {
	Load() ([]*model.ChatSession, error)
	Save(sessions []*model.ChatSession) error
}

// =============================================================================
// STORE
// =============================================================================

// Store is the in-memory session collection. Every mutation is written
// through to the Port; a failed save is reported via the error callback but
// never blocks or rolls back the in-memory state, so a broken disk degrades
// to a working but unpersisted session list.
//
// All mutation goes through store methods under the lock. Accessors hand
// out detached copies: the stream runner commits from its reader goroutine
// while the UI renders, so live message slices must never escape.
//
// Session ids are strictly monotonic. The counter is seeded from the
// highest loaded id and never reset, so a deleted session's id is never
// reused and a stream commit can never land in the wrong transcript.
type Store struct {
	mu       sync.Mutex
	port     Port
	sessions []*model.ChatSession
	activeID int // 0 when no session is active
	nextID   int

	// onSaveError receives persistence failures. May be nil.
	onSaveError func(error)
}

// NewStore creates an empty store over the given port.
func NewStore(port Port, onSaveError func(error)) *Store {
	return &Store{
		port:        port,
		nextID:      1,
		onSaveError: onSaveError,
	}
}

// Load replaces the store contents from the port and seeds the id counter
// past every loaded id. The most recent session becomes active.
func (s *Store) Load() error {
	sessions, err := s.port.Load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = sessions
	s.nextID = 1
	s.activeID = 0
	for _, sess := range sessions {
		if sess.ID >= s.nextID {
			s.nextID = sess.ID + 1
		}
	}
	if n := len(sessions); n > 0 {
		s.activeID = sessions[n-1].ID
	}
	return nil
}

// Create adds a new empty session, makes it active, and persists.
func (s *Store) Create(name string) *model.ChatSession {
	s.mu.Lock()
	sess := model.NewChatSession(s.nextID, name)
	s.nextID++
	s.sessions = append(s.sessions, sess)
	s.activeID = sess.ID
	out := sess.Clone()
	s.mu.Unlock()

	s.save()
	return out
}

// Delete removes the session with the given id and persists. When the
// active session is deleted the most recent remaining one becomes active.
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)
	if s.activeID == id {
		s.activeID = 0
		if n := len(s.sessions); n > 0 {
			s.activeID = s.sessions[n-1].ID
		}
	}
	s.mu.Unlock()

	s.save()
	return nil
}

// SetActive switches the active session.
func (s *Store) SetActive(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(id) < 0 {
		return ErrNotFound
	}
	s.activeID = id
	return nil
}

// Active returns a detached copy of the active session, or nil when there
// is none.
func (s *Store) Active() *model.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(s.activeID); idx >= 0 {
		return s.sessions[idx].Clone()
	}
	return nil
}

// ActiveID returns the active session id, 0 when none.
func (s *Store) ActiveID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Get looks up a session by id and returns a detached copy.
func (s *Store) Get(id int) (*model.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(id); idx >= 0 {
		return s.sessions[idx].Clone(), true
	}
	return nil, false
}

// Sessions returns detached copies of every session in creation order.
func (s *Store) Sessions() []*model.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.ChatSession, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = sess.Clone()
	}
	return out
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// AppendMessage appends a committed message to the given session and
// persists. Returns ErrNotFound when the session was deleted.
func (s *Store) AppendMessage(id int, m *model.Message) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.sessions[idx].Append(m)
	s.mu.Unlock()

	s.save()
	return nil
}

// CommitAssistant appends a completed assistant response. This is the
// stream runner's commit path; it fails with ErrNotFound when the session
// was deleted mid-stream so the runner drops the commit.
func (s *Store) CommitAssistant(id int, text string) error {
	return s.AppendMessage(id, model.NewMessage(model.RoleAssistant, text))
}

// Save forces a persistence pass outside any mutation. Used by the file
// watcher path and at shutdown.
func (s *Store) Save() {
	s.save()
}

// indexLocked finds a session's position; caller holds s.mu.
func (s *Store) indexLocked(id int) int {
	if id == 0 {
		return -1
	}
	for i, sess := range s.sessions {
		if sess.ID == id {
			return i
		}
	}
	return -1
}

// save snapshots detached copies under the lock and writes them through
// the port. The port iterates message lists off this lock during disk I/O,
// so the snapshot must not share slices with live sessions.
func (s *Store) save() {
	s.mu.Lock()
	snapshot := make([]*model.ChatSession, len(s.sessions))
	for i, sess := range s.sessions {
		snapshot[i] = sess.Clone()
	}
	s.mu.Unlock()

	if err := s.port.Save(snapshot); err != nil && s.onSaveError != nil {
		s.onSaveError(err)
	}
}
