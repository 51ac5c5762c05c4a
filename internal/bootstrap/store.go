package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/target/aquaops-console/config"
	"github.com/target/aquaops-console/internal/adapters/filestore"
	redisadapter "github.com/target/aquaops-console/internal/adapters/redis"
	"github.com/target/aquaops-console/internal/ports"
)

// StoreOptions contains configuration for the durable token store.
type StoreOptions struct {
	Store  config.StoreConfig
	Redis  config.RedisConfig
	Logger *slog.Logger
}

// DurableStore is the selected key-value backend plus its release hook.
type DurableStore struct {
	KV      ports.KeyValueStore
	Backend config.StoreBackend
	close   func() error
}

// Close releases the backend connection, if any.
func (s *DurableStore) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStore builds the key-value backend selected by STORE_BACKEND.
func OpenStore(opts StoreOptions) (*DurableStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Store.Backend {
	case config.StoreBackendMemory:
		logger.Warn("token store is in memory; sessions will not survive a restart")
		return &DurableStore{KV: filestore.NewMemory(), Backend: config.StoreBackendMemory}, nil

	case config.StoreBackendRedis:
		client, err := ConnectRedis(RedisOptions{Config: opts.Redis, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		kv := redisadapter.NewKVStore(redisadapter.KVStoreOptions{
			Client: client,
			Prefix: opts.Store.KeyPrefix,
			TTL:    opts.Store.TTL,
		})
		return &DurableStore{KV: kv, Backend: config.StoreBackendRedis, close: client.Close}, nil

	default:
		logger.Info("token store opened", "backend", config.StoreBackendFile, "path", opts.Store.Path)
		return &DurableStore{KV: filestore.New(opts.Store.Path), Backend: config.StoreBackendFile}, nil
	}
}
