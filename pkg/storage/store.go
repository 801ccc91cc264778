package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/hub/pkg/observability"
)

// Open creates the snapshot store selected by config. Backend "none" returns a nil store.
func Open(ctx context.Context, config Config, metrics *observability.Metrics, otelMetrics *observability.OTelMetrics) (SnapshotStore, error) {
	var store SnapshotStore

	switch config.Backend {
	case "", "none":
		return nil, nil
	case "file":
		fs, err := NewFileSnapshotStore(config.Dir)
		if err != nil {
			return nil, err
		}
		store = fs
	case "redis":
		client, err := NewRedisClient(config)
		if err != nil {
			return nil, err
		}
		rs := NewRedisSnapshotStore(client, config.TTL)
		rs.owned = true
		store = rs
	default:
		return nil, fmt.Errorf("invalid snapshot backend: %s (must be none, file, or redis)", config.Backend)
	}

	store = Instrument(store, config.Backend, metrics, otelMetrics)
	if config.L1CacheSize > 0 {
		cached, err := NewCachedStore(store, config.L1CacheSize, metrics)
		if err != nil {
			store.Close()
			return nil, err
		}
		store = cached
	}

	observability.FromContext(ctx).WithField("backend", config.Backend).Debug("Snapshot store opened")
	return store, nil
}

// instrumentedStore records metrics for every operation of the wrapped store
type instrumentedStore struct {
	next        SnapshotStore
	backend     string
	metrics     *observability.Metrics
	otelMetrics *observability.OTelMetrics
}

// Instrument wraps next so that its operations are recorded under backend
func Instrument(next SnapshotStore, backend string, metrics *observability.Metrics, otelMetrics *observability.OTelMetrics) SnapshotStore {
	return &instrumentedStore{next: next, backend: backend, metrics: metrics, otelMetrics: otelMetrics}
}

func (s *instrumentedStore) record(ctx context.Context, operation string, start time.Time, err error) {
	// a missing snapshot is an expected outcome
	if errors.Is(err, ErrSnapshotNotFound) {
		err = nil
	}
	s.metrics.ObserveSnapshot(operation, s.backend, start, err)
	s.otelMetrics.RecordSnapshotOperation(ctx, operation, s.backend, time.Since(start), err)
}

func (s *instrumentedStore) Load(ctx context.Context, root, fingerprint string) (*Snapshot, error) {
	start := time.Now()
	snap, err := s.next.Load(ctx, root, fingerprint)
	s.record(ctx, "load", start, err)
	return snap, err
}

func (s *instrumentedStore) Save(ctx context.Context, snap *Snapshot) error {
	start := time.Now()
	err := s.next.Save(ctx, snap)
	s.record(ctx, "save", start, err)
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context, root string) error {
	start := time.Now()
	err := s.next.Delete(ctx, root)
	s.record(ctx, "delete", start, err)
	return err
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *instrumentedStore) Close() error {
	return s.next.Close()
}
