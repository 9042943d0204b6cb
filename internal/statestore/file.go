package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MrWong99/turnabout/internal/exchange"
)

// FileStore keeps the state in one JSON file. Writes go to a temporary file
// in the same directory which is synced and renamed over the target, so a
// crash leaves either the old or the new state on disk.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var _ Backend = (*FileStore)(nil)

// NewFileStore returns a store for path. The file itself is created on the
// first save.
func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("statestore: file path is required")
	}
	return &FileStore{path: filepath.Clean(path)}, nil
}

// Path returns the state file location.
func (s *FileStore) Path() string { return s.path }

// Load reads the state file. A missing file yields a fresh state; an
// unreadable or corrupt file is an error.
func (s *FileStore) Load(_ context.Context) (*exchange.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("statestore: no state file, starting fresh", "path", s.path)
		return exchange.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("statestore: read %q: %w", s.path, err)
	}

	st := exchange.NewState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("statestore: decode %q: %w", s.path, err)
	}
	st.Normalize()
	return st, nil
}

// Save atomically replaces the state file with st.
func (s *FileStore) Save(ctx context.Context, st *exchange.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("statestore: encode state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("statestore: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("statestore: write %q: %w", tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("statestore: sync %q: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("statestore: close %q: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("statestore: replace %q: %w", s.path, err)
	}
	return nil
}

// Ping checks that the state file's directory exists.
func (s *FileStore) Ping(_ context.Context) error {
	info, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return fmt.Errorf("statestore: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("statestore: %q is not a directory", filepath.Dir(s.path))
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }
