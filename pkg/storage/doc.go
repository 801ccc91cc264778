// Package storage provides persistence for registry snapshots and the
// database connections used by test environments.
//
// # Snapshots
//
// A Snapshot is the serialised plugin registry of one project root together
// with the descriptor fingerprint it was discovered under. Stores return
// ErrSnapshotNotFound for a root they do not hold and for a stale fingerprint,
// so callers fall back to discovery in both cases.
//
// Backends:
//
//   - FileSnapshotStore: one JSON file per root, replaced atomically
//   - RedisSnapshotStore: one key per root under RedisKeyPrefix, with an optional TTL
//   - CachedStore: an in-memory LRU in front of either
//
// Open builds the configured backend and instruments it with Prometheus and
// OpenTelemetry metrics:
//
//	store, err := storage.Open(ctx, storage.Config{
//		Backend:  "redis",
//		RedisURL: "redis://localhost:6379/0",
//		TTL:      24 * time.Hour,
//	}, metrics, otelMetrics)
//
// # Databases
//
// Connect opens a database of one RDBMS kind (mariadb, pg, sqlite,
// sqlite_better) from a DBConfig and pings it before returning:
//
//	db, err := storage.Connect(ctx, storage.Postgres, cfg, storage.DefaultPoolConfig())
//
// An unsupported kind fails with ErrUnknownRDBMS.
package storage
