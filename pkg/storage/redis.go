package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisKeyPrefix prefixes every snapshot key written to redis
const RedisKeyPrefix = "hub:snapshot:"

// NewRedisClient creates a redis client from config and checks connectivity
func NewRedisClient(config Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if config.RedisPassword != "" {
		opts.Password = config.RedisPassword
	}
	if config.RedisDB >= 0 {
		opts.DB = config.RedisDB
	}
	if config.RedisMaxRetries > 0 {
		opts.MaxRetries = config.RedisMaxRetries
	}
	if config.RedisPoolSize > 0 {
		opts.PoolSize = config.RedisPoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// RedisSnapshotStore implements SnapshotStore on redis
type RedisSnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
	owned  bool
}

// NewRedisSnapshotStore stores snapshots through client. A zero ttl keeps them forever.
// Close does not close a client passed in here.
func NewRedisSnapshotStore(client *redis.Client, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, ttl: ttl}
}

func redisKey(root string) string {
	return RedisKeyPrefix + SnapshotKey(root)
}

// Load implements SnapshotStore.Load
func (s *RedisSnapshotStore) Load(ctx context.Context, root, fingerprint string) (*Snapshot, error) {
	key := redisKey(root)

	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrSnapshotNotFound
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// If unmarshal fails, delete corrupt data
		s.client.Del(ctx, key)
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if snap.Fingerprint != fingerprint {
		return nil, ErrSnapshotNotFound
	}
	return &snap, nil
}

// Save implements SnapshotStore.Save
func (s *RedisSnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(snap.Root), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete implements SnapshotStore.Delete
func (s *RedisSnapshotStore) Delete(ctx context.Context, root string) error {
	return s.client.Del(ctx, redisKey(root)).Err()
}

// Client returns the underlying redis client
func (s *RedisSnapshotStore) Client() *redis.Client {
	return s.client
}

// Ping implements SnapshotStore.Ping
func (s *RedisSnapshotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements SnapshotStore.Close
func (s *RedisSnapshotStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
