package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/platinummonkey/hub/pkg/plugins"
)

// ErrSnapshotNotFound is returned when no usable snapshot exists for a root.
// A snapshot whose fingerprint differs from the requested one is not usable.
var ErrSnapshotNotFound = errors.New("registry snapshot not found")

// Snapshot is a serialised plugin registry of one project root
type Snapshot struct {
	Root        string                `json:"root"`
	Fingerprint string                `json:"fingerprint"`
	CreatedAt   time.Time             `json:"created_at"`
	Plugins     []*plugins.Descriptor `json:"plugins"` // discovery order
}

// NewSnapshot captures reg as discovered below root
func NewSnapshot(root, fingerprint string, reg *plugins.Registry) *Snapshot {
	items := reg.Items()
	snap := &Snapshot{
		Root:        root,
		Fingerprint: fingerprint,
		CreatedAt:   time.Now().UTC(),
		Plugins:     make([]*plugins.Descriptor, 0, len(items)),
	}
	for _, item := range items {
		snap.Plugins = append(snap.Plugins, item.Clone())
	}
	return snap
}

// Registry rebuilds a registry from the snapshot, preserving discovery order
func (s *Snapshot) Registry() *plugins.Registry {
	reg := plugins.NewRegistry()
	for _, desc := range s.Plugins {
		reg.Set(desc.Name, desc.Clone())
	}
	return reg
}

// SnapshotStore persists registry snapshots between processes
type SnapshotStore interface {
	// Load returns the snapshot of root when its fingerprint matches, else ErrSnapshotNotFound
	Load(ctx context.Context, root, fingerprint string) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Delete(ctx context.Context, root string) error
	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error
	Close() error
}

// SnapshotKey derives the storage key of a project root
func SnapshotKey(root string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(root)))
	return hex.EncodeToString(sum[:16])
}

// Config for the snapshot backend
type Config struct {
	Backend string `mapstructure:"backend"` // "none", "file", "redis"

	// File config
	Dir string `mapstructure:"dir"`

	// Redis config
	RedisURL        string `mapstructure:"redis_url"`
	RedisPassword   string `mapstructure:"redis_password"`
	RedisDB         int    `mapstructure:"redis_db"`
	RedisMaxRetries int    `mapstructure:"redis_max_retries"`
	RedisPoolSize   int    `mapstructure:"redis_pool_size"`

	// Cache config
	TTL         time.Duration `mapstructure:"ttl"`
	L1CacheSize int           `mapstructure:"l1_cache_size"` // Entries, 0 disables
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Backend:         "none",
		Dir:             filepath.Join(os.TempDir(), "hub", "snapshots"),
		RedisURL:        "redis://localhost:6379/0",
		RedisDB:         0,
		RedisMaxRetries: 3,
		RedisPoolSize:   10,
		TTL:             24 * time.Hour,
		L1CacheSize:     16,
	}
}
