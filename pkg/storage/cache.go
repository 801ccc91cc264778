package storage

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/platinummonkey/hub/pkg/observability"
)

// CachedStore keeps recently used snapshots in memory in front of another store
type CachedStore struct {
	next    SnapshotStore
	cache   *lru.Cache[string, *Snapshot]
	metrics *observability.Metrics
}

// NewCachedStore wraps next with an LRU of size entries
func NewCachedStore(next SnapshotStore, size int, metrics *observability.Metrics) (*CachedStore, error) {
	cache, err := lru.New[string, *Snapshot](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot cache: %w", err)
	}
	return &CachedStore{next: next, cache: cache, metrics: metrics}, nil
}

// Load implements SnapshotStore.Load
func (c *CachedStore) Load(ctx context.Context, root, fingerprint string) (*Snapshot, error) {
	key := SnapshotKey(root)
	if snap, ok := c.cache.Get(key); ok && snap.Fingerprint == fingerprint {
		c.observe(true)
		return snap, nil
	}
	c.observe(false)

	snap, err := c.next.Load(ctx, root, fingerprint)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, snap)
	return snap, nil
}

// Save implements SnapshotStore.Save
func (c *CachedStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := c.next.Save(ctx, snap); err != nil {
		return err
	}
	c.cache.Add(SnapshotKey(snap.Root), snap)
	return nil
}

// Delete implements SnapshotStore.Delete
func (c *CachedStore) Delete(ctx context.Context, root string) error {
	c.cache.Remove(SnapshotKey(root))
	return c.next.Delete(ctx, root)
}

// Ping implements SnapshotStore.Ping
func (c *CachedStore) Ping(ctx context.Context) error {
	return c.next.Ping(ctx)
}

// Close implements SnapshotStore.Close
func (c *CachedStore) Close() error {
	c.cache.Purge()
	return c.next.Close()
}

func (c *CachedStore) observe(hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.CacheHitsTotal.WithLabelValues("snapshot").Inc()
	} else {
		c.metrics.CacheMissesTotal.WithLabelValues("snapshot").Inc()
	}
}
