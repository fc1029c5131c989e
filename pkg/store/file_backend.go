package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrInvalidKey is returned when a key contains unsafe path characters.
var ErrInvalidKey = errors.New("invalid key: contains path separator or traversal sequence")

// validateKey checks that a string is safe to use as a file name.
// It rejects empty strings, path separators, and traversal sequences.
func validateKey(key string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}

// FileBackend implements Backend using one JSON file per key.
// Storage layout:
//
//	~/.focusforge/state/
//	  ├── progression.json
//	  ├── wallet.json
//	  └── ...
type FileBackend struct {
	baseDir string
	mu      sync.RWMutex
	closed  bool
}

// NewFileBackend creates a file-based store backend.
// If baseDir is empty, uses ~/.focusforge/state.
func NewFileBackend(baseDir string) (*FileBackend, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".focusforge", "state")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	return &FileBackend{baseDir: baseDir}, nil
}

// Save writes the blob for a key, overwriting any previous value.
// The write goes through a temp file and rename so a crash mid-write
// cannot leave a torn snapshot behind.
func (f *FileBackend) Save(ctx context.Context, key string, blob Blob) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStoreClosed
	}
	if err := validateKey(key); err != nil {
		return fmt.Errorf("invalid key: %w", err)
	}

	data, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal blob: %w", err)
	}

	path := filepath.Join(f.baseDir, key+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit blob: %w", err)
	}

	return nil
}

// Load retrieves the blob for a key.
func (f *FileBackend) Load(ctx context.Context, key string) (Blob, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return Blob{}, ErrStoreClosed
	}
	if err := validateKey(key); err != nil {
		return Blob{}, fmt.Errorf("invalid key: %w", err)
	}

	path := filepath.Join(f.baseDir, key+".json")
	data, err := os.ReadFile(path) // #nosec G304 - key validated to prevent traversal
	if err != nil {
		if os.IsNotExist(err) {
			return Blob{}, ErrNotFound
		}
		return Blob{}, fmt.Errorf("read blob: %w", err)
	}

	var blob Blob
	if err := json.Unmarshal(data, &blob); err != nil {
		// Corrupt file on disk is indistinguishable from absent for
		// callers; they fall back to the other store or to defaults.
		return Blob{}, ErrNotFound
	}

	return blob, nil
}

// Keys lists all keys present in the store.
func (f *FileBackend) Keys(ctx context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStoreClosed
	}

	entries, err := os.ReadDir(f.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read base directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	return keys, nil
}

// Close releases resources held by the backend.
func (f *FileBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}
