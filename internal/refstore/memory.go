// ABOUTME: In-memory Store implementation backed by a mutex-guarded map
// ABOUTME: Used for tests and ephemeral deployments with no durability needs

package refstore

import (
	"context"
	"sync"
)

// MemoryStore implements Store with an in-process map. Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	refs map[string]*ConversationReference
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{refs: make(map[string]*ConversationReference)}
}

// Upsert writes or replaces the record for conversationID.
func (s *MemoryStore) Upsert(_ context.Context, conversationID string, ref *ConversationReference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[conversationID] = ref.Clone()
	return nil
}

// Get returns a copy of the record or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, conversationID string) (*ConversationReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.refs[conversationID]
	if !ok {
		return nil, ErrNotFound
	}
	return ref.Clone(), nil
}

// ListAll returns a snapshot of all records.
func (s *MemoryStore) ListAll(_ context.Context) (map[string]*ConversationReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*ConversationReference, len(s.refs))
	for id, ref := range s.refs {
		out[id] = ref.Clone()
	}
	return out, nil
}

// Delete removes a record; unknown ids are a no-op.
func (s *MemoryStore) Delete(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refs, conversationID)
	return nil
}

// Clear removes every record.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs = make(map[string]*ConversationReference)
	return nil
}

// Diagnostics reports the record count.
func (s *MemoryStore) Diagnostics(_ context.Context) (*EngineStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &EngineStatus{Engine: "memory", TotalRecords: len(s.refs)}, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
