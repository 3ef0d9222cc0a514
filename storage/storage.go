package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound indicates no document exists at the requested path.
var ErrNotFound = errors.New("document not found")

// Store reads and writes JSON documents at project/feature-scoped paths.
// Implementations serialize writes to the same path, so read-modify-write
// sequences over one document land whole.
type Store interface {
	// ReadJSON decodes the document at path into v. Returns ErrNotFound
	// if no document exists.
	ReadJSON(path string, v any) error

	// WriteJSON encodes v and replaces the document at path atomically.
	WriteJSON(path string, v any) error
}

// FileStore stores documents as files under a base directory.
type FileStore struct {
	baseDir string

	mu    sync.Mutex
	paths map[string]*sync.Mutex
}

// NewFileStore creates a file-based document store rooted at baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{
		baseDir: baseDir,
		paths:   make(map[string]*sync.Mutex),
	}, nil
}

// pathLock returns the per-path mutex, creating it on first use.
func (s *FileStore) pathLock(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.paths[path]
	if !ok {
		l = &sync.Mutex{}
		s.paths[path] = l
	}
	return l
}

// ReadJSON decodes the document at path into v.
func (s *FileStore) ReadJSON(path string, v any) error {
	l := s.pathLock(path)
	l.Lock()
	defer l.Unlock()

	data, err := os.ReadFile(filepath.Join(s.baseDir, filepath.FromSlash(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// WriteJSON encodes v and replaces the document at path. The write goes
// through a temp file and rename so a crash never leaves a torn document.
func (s *FileStore) WriteJSON(path string, v any) error {
	l := s.pathLock(path)
	l.Lock()
	defer l.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	full := filepath.Join(s.baseDir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return err
	}

	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, full)
}

// BaseDir returns the store's root directory.
func (s *FileStore) BaseDir() string {
	return s.baseDir
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{docs: make(map[string][]byte)}
}

// ReadJSON decodes the stored document at path into v.
func (s *MemStore) ReadJSON(path string, v any) error {
	s.mu.RLock()
	data, ok := s.docs[path]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(data, v)
}

// WriteJSON stores v at path.
func (s *MemStore) WriteJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[path] = data
	s.mu.Unlock()
	return nil
}
