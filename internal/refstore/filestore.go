// ABOUTME: File-backed Store implementation persisting the legacy nested JSON format
// ABOUTME: Loads on construction, rewrites the file atomically on every mutation

package refstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore implements Store on top of a single JSON file in the legacy
// nested-object format. All records are held in memory; every mutation
// rewrites the file through a temp-file rename so readers of the file never
// observe a half-written object.
type FileStore struct {
	path   string
	logger *slog.Logger

	mu   sync.RWMutex
	refs map[string]*ConversationReference
}

// NewFileStore creates a file-backed store at path. A missing file means an
// empty store; an unreadable or malformed file is fatal.
func NewFileStore(path string) (*FileStore, error) {
	logger := slog.Default().With("component", "filestore")

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}
	}

	s := &FileStore{
		path:   path,
		logger: logger,
		refs:   make(map[string]*ConversationReference),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Info("file store initialized", "path", path, "records", 0)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading storage file: %w", err)
	}

	refs, err := decodeLegacyFile(data)
	if err != nil {
		return nil, fmt.Errorf("parsing storage file %s: %w", path, err)
	}
	s.refs = refs

	logger.Info("file store initialized", "path", path, "records", len(refs))
	return s, nil
}

// Upsert writes or replaces the record and persists the file. The map entry
// commits only after the file write lands; a failed persist rolls back so the
// store never serves a record the file does not hold.
func (s *FileStore) Upsert(_ context.Context, conversationID string, ref *ConversationReference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior, hadPrior := s.refs[conversationID]
	s.refs[conversationID] = ref.Clone()
	if err := s.persistLocked(); err != nil {
		if hadPrior {
			s.refs[conversationID] = prior
		} else {
			delete(s.refs, conversationID)
		}
		return err
	}
	return nil
}

// Get returns a copy of the record or ErrNotFound.
func (s *FileStore) Get(_ context.Context, conversationID string) (*ConversationReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.refs[conversationID]
	if !ok {
		return nil, ErrNotFound
	}
	return ref.Clone(), nil
}

// ListAll returns a snapshot of all records.
func (s *FileStore) ListAll(_ context.Context) (map[string]*ConversationReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*ConversationReference, len(s.refs))
	for id, ref := range s.refs {
		out[id] = ref.Clone()
	}
	return out, nil
}

// Delete removes a record and persists; unknown ids are a no-op. A failed
// persist restores the record.
func (s *FileStore) Delete(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior, ok := s.refs[conversationID]
	if !ok {
		return nil
	}
	delete(s.refs, conversationID)
	if err := s.persistLocked(); err != nil {
		s.refs[conversationID] = prior
		return err
	}
	return nil
}

// Clear removes every record and persists. A failed persist restores the map.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior := s.refs
	s.refs = make(map[string]*ConversationReference)
	if err := s.persistLocked(); err != nil {
		s.refs = prior
		return err
	}
	return nil
}

// Diagnostics reports the record count and backing path.
func (s *FileStore) Diagnostics(_ context.Context) (*EngineStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &EngineStatus{Engine: "file", TotalRecords: len(s.refs)}, nil
}

// Close is a no-op; the file is rewritten on every mutation.
func (s *FileStore) Close() error { return nil }

// persistLocked writes the current map to disk. Caller holds s.mu.
func (s *FileStore) persistLocked() error {
	data, err := encodeLegacyFile(s.refs)
	if err != nil {
		return fmt.Errorf("encoding storage file: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing storage file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing storage file: %w", err)
	}
	return nil
}
