package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FilesystemStore keeps payloads on local disk, sharded by key prefix to
// keep directories small.
type FilesystemStore struct {
	root string
}

// NewFilesystemStore creates a filesystem store rooted at dir
func NewFilesystemStore(dir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}
	return &FilesystemStore{root: dir}, nil
}

func (s *FilesystemStore) path(key string) string {
	if len(key) < 2 {
		return filepath.Join(s.root, key)
	}
	return filepath.Join(s.root, key[:2], key)
}

// Put stores the payload and returns its content key
func (s *FilesystemStore) Put(ctx context.Context, payload []byte) (string, error) {
	key := Key(payload)
	path := s.path(key)

	if _, err := os.Stat(path); err == nil {
		// Content-addressed: same key means same bytes.
		return key, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob directory: %w", err)
	}

	// Write-then-rename so readers never observe a partial payload.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to finalize payload: %w", err)
	}

	return key, nil
}

// Get returns the payload stored under key
func (s *FilesystemStore) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return payload, nil
}

// Delete removes the payload stored under key
func (s *FilesystemStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete payload: %w", err)
	}
	return nil
}
