// Package cursor persists the identifier of the last delivered post between runs.
package cursor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store reads and writes the last delivered post identifier.
// Read reports ok=false when no run has delivered anything yet.
type Store interface {
	Read(ctx context.Context) (id string, ok bool, err error)
	Write(ctx context.Context, id string) error
}

// FileStore keeps the cursor in a plain text file
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path. The file itself is
// created on the first Write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Read(ctx context.Context) (string, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cursor at '%s' with %w", s.path, err)
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", false, nil
	}
	return id, true, nil
}

// Write replaces the cursor through a rename so a crash never leaves a torn file
func (s *FileStore) Write(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("refusing to write an empty cursor")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cursor directory at '%s' with %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary cursor file with %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(id); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write cursor with %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close cursor file with %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move cursor into '%s' with %w", s.path, err)
	}
	return nil
}

// MemoryStore keeps the cursor in memory
type MemoryStore struct {
	mu     sync.Mutex
	id     string
	ok     bool
	writes int
}

// NewMemoryStore creates a store, optionally seeded with a cursor
func NewMemoryStore(initial string) *MemoryStore {
	return &MemoryStore{id: initial, ok: initial != ""}
}

func (s *MemoryStore) Read(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, s.ok, nil
}

func (s *MemoryStore) Write(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("refusing to write an empty cursor")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id, s.ok = id, true
	s.writes++
	return nil
}

// Writes returns how many times Write succeeded
func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
