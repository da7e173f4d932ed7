package session

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/twin.report/internal/editor"
)

// Manager is a registry of open sessions. It is safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	opts     Options
}

// NewManager returns an empty registry whose sessions use o.
func NewManager(o Options) *Manager {
	return &Manager{sessions: make(map[uuid.UUID]*Session), opts: o}
}

// Open starts and registers a session.
func (m *Manager) Open(ctx context.Context, canvasID int64, ed *editor.Editor, store editor.Store) *Session {
	s := Open(ctx, canvasID, ed, store, m.opts)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session with id.
func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns the open sessions, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}

// Close stops and removes the session with id. It reports whether one was
// open.
func (m *Manager) Close(id uuid.UUID) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

// CloseAll stops every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[uuid.UUID]*Session)
	m.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}

// Broadcast runs fn on every session editing canvasID. Sessions that have
// closed are skipped.
func (m *Manager) Broadcast(ctx context.Context, canvasID int64, fn func(*editor.Editor)) {
	for _, s := range m.List() {
		if s.CanvasID != canvasID {
			continue
		}
		if err := s.Do(ctx, fn); err != nil && err != ErrClosed {
			return
		}
	}
}
