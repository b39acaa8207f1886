// Package persistence provides storage for session transcripts.
package persistence

import (
	"sort"
	"sync"

	"github.com/fastnlabs/fastn-agent/chat"
)

// Store defines the interface for persisting session transcripts. A session
// holds the full transcript of a conversation, including assistant tool-call
// and tool-result messages.
type Store interface {
	// Load retrieves the transcript for a session. A session that does not
	// exist, or whose stored data cannot be decoded, yields an empty
	// transcript rather than an error so a damaged history never blocks a
	// new conversation.
	Load(sessionID string) (chat.Transcript, error)

	// Save replaces the stored transcript for a session.
	Save(sessionID string, transcript chat.Transcript) error

	// Delete removes all data for a session.
	Delete(sessionID string) error

	// ListSessions returns all session IDs in the store.
	ListSessions() ([]string, error)

	// Close closes the store and releases resources.
	Close() error
}

// MemoryStore provides an in-memory implementation of Store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]chat.Transcript
}

var _ Store = &MemoryStore{}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]chat.Transcript),
	}
}

// Load returns a copy of the session's transcript, or an empty transcript if
// the session is unknown.
func (m *MemoryStore) Load(sessionID string) (chat.Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	transcript, ok := m.sessions[sessionID]
	if !ok {
		return chat.Transcript{}, nil
	}
	return transcript.Clone(), nil
}

// Save stores a copy of the transcript for the session.
func (m *MemoryStore) Save(sessionID string, transcript chat.Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[sessionID] = transcript.Clone()
	return nil
}

// Delete removes all data for a session.
func (m *MemoryStore) Delete(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}

// ListSessions returns all session IDs in the store, sorted.
func (m *MemoryStore) ListSessions() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
