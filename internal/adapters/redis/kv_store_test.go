package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/aquaops-console/internal/ports"
	"github.com/target/aquaops-console/internal/testutil"
)

// setupTestRedis creates a Redis client for testing.
// Tests will be skipped if Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func TestKVStore_SetAndGet(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewKVStore(KVStoreOptions{Client: client})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "access_token", "header.payload.sig"))

	got, err := store.Get(ctx, "access_token")
	require.NoError(t, err)
	assert.Equal(t, "header.payload.sig", got)

	// Keys are namespaced under the default prefix.
	raw, err := client.Get(ctx, DefaultKeyPrefix+"access_token").Result()
	require.NoError(t, err)
	assert.Equal(t, "header.payload.sig", raw)
}

func TestKVStore_GetMissing(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewKVStore(KVStoreOptions{Client: client})

	_, err := store.Get(context.Background(), "refresh_token")
	assert.ErrorIs(t, err, ports.ErrKeyNotFound)

	_, err = store.Get(context.Background(), "")
	assert.ErrorIs(t, err, ports.ErrKeyNotFound)
}

func TestKVStore_SetEmptyKey(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewKVStore(KVStoreOptions{Client: client})
	assert.Error(t, store.Set(context.Background(), "", "v"))
}

func TestKVStore_Delete(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewKVStore(KVStoreOptions{Client: client, Prefix: "test:"})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "access_token", "a"))
	require.NoError(t, store.Set(ctx, "refresh_token", "r"))
	require.NoError(t, store.Set(ctx, "user_info", "{}"))

	require.NoError(t, store.Delete(ctx, "access_token", "refresh_token"))

	_, err := store.Get(ctx, "access_token")
	assert.ErrorIs(t, err, ports.ErrKeyNotFound)
	_, err = store.Get(ctx, "refresh_token")
	assert.ErrorIs(t, err, ports.ErrKeyNotFound)

	v, err := store.Get(ctx, "user_info")
	require.NoError(t, err)
	assert.Equal(t, "{}", v)

	// Deleting nothing or absent keys is fine.
	require.NoError(t, store.Delete(ctx))
	require.NoError(t, store.Delete(ctx, "", "missing"))
}

func TestKVStore_TTL(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	store := NewKVStore(KVStoreOptions{Client: client, TTL: time.Hour})
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "token_expiry", "1704110400000"))

	ttl, err := client.TTL(ctx, DefaultKeyPrefix+"token_expiry").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
	assert.LessOrEqual(t, ttl, time.Hour)
}

func TestKVStore_SharedAcrossInstances(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	writer := NewKVStore(KVStoreOptions{Client: client})
	reader := NewKVStore(KVStoreOptions{Client: client})
	ctx := context.Background()

	require.NoError(t, writer.Set(ctx, "refresh_token", "refresh-1"))
	got, err := reader.Get(ctx, "refresh_token")
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", got)
}

func TestNewKVStore_PanicsWithoutClient(t *testing.T) {
	assert.Panics(t, func() { NewKVStore(KVStoreOptions{}) })
}
