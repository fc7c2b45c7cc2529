// Package session holds the per-session scoring record: the running score,
// the once-guard flags and the recent navigation history. Values cross the
// store boundary as strings; parse failures are absorbed here and nowhere else.
package session

import (
	"context"
	"sync"
)

// Store is a string key/value store scoped by session id.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, sessionID, key string) (string, bool, error)
	Set(ctx context.Context, sessionID, key, value string) error
	// Clear removes every key of the session.
	Clear(ctx context.Context, sessionID string) error
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, sessionID, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.sessions[sessionID][key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, sessionID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kv, ok := m.sessions[sessionID]
	if !ok {
		kv = make(map[string]string)
		m.sessions[sessionID] = kv
	}
	kv[key] = value
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}
