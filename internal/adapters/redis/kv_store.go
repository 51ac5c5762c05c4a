package redis

// Package redis provides Redis-based adapters for the aquaops console.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/aquaops-console/internal/ports"
)

// DefaultKeyPrefix namespaces session keys so several consoles can share one Redis.
const DefaultKeyPrefix = "aquaops:session:"

// KVStoreOptions configures a KVStore.
type KVStoreOptions struct {
	Client redis.UniversalClient // Required
	Prefix string
	// TTL, when positive, expires every written key. Zero keeps keys until deleted.
	TTL time.Duration
}

// KVStore is a Redis-backed ports.KeyValueStore for consoles that share a session across processes.
type KVStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ ports.KeyValueStore = (*KVStore)(nil)

// NewKVStore creates a new Redis key-value store. It panics if Client is nil.
func NewKVStore(opts KVStoreOptions) *KVStore {
	if opts.Client == nil {
		panic("redis: KVStore requires a client")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	ttl := max(opts.TTL, 0)
	return &KVStore{client: opts.Client, prefix: prefix, ttl: ttl}
}

func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ports.ErrKeyNotFound
	}
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ports.ErrKeyNotFound
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			full = append(full, s.prefix+k)
		}
	}
	if len(full) == 0 {
		return nil // Nothing to delete
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
