package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileSnapshotStore implements SnapshotStore using the local filesystem
type FileSnapshotStore struct {
	rootDir string
}

// NewFileSnapshotStore creates a new filesystem-based store
func NewFileSnapshotStore(rootDir string) (*FileSnapshotStore, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileSnapshotStore{rootDir: rootDir}, nil
}

func (s *FileSnapshotStore) path(root string) string {
	return filepath.Join(s.rootDir, SnapshotKey(root)+".json")
}

// Load implements SnapshotStore.Load
func (s *FileSnapshotStore) Load(ctx context.Context, root, fingerprint string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(root))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrSnapshotNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if snap.Fingerprint != fingerprint {
		return nil, ErrSnapshotNotFound
	}
	return &snap, nil
}

// Save implements SnapshotStore.Save. The file is replaced atomically.
func (s *FileSnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	target := s.path(snap.Root)
	tmp, err := os.CreateTemp(s.rootDir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}
	return nil
}

// Delete implements SnapshotStore.Delete
func (s *FileSnapshotStore) Delete(_ context.Context, root string) error {
	if err := os.Remove(s.path(root)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete snapshot file: %w", err)
	}
	return nil
}

// Ping implements SnapshotStore.Ping
func (s *FileSnapshotStore) Ping(context.Context) error {
	info, err := os.Stat(s.rootDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("snapshot directory %s is not a directory", s.rootDir)
	}
	return nil
}

// Close implements SnapshotStore.Close
func (s *FileSnapshotStore) Close() error {
	return nil
}
