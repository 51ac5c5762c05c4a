package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/aquaops-console/internal/domain/auth"
	mocks "github.com/target/aquaops-console/internal/mocks/auth"
	"github.com/target/aquaops-console/internal/testutil"
)

func TestUserCache_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	kv := mocks.NewMemoryKV()
	cache := NewUserCache(kv, nil)

	assert.Nil(t, cache.Load(ctx))

	user := testutil.NewUser().WithID("user-7").WithOrganization("org-3").
		WithRoles(domainauth.RoleAnalyst).Build()
	require.NoError(t, cache.Save(ctx, user))
	assert.Contains(t, kv.Snapshot(), domainauth.KeyUserInfo)

	got := cache.Load(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "user-7", got.UserID)
	assert.Equal(t, "org-3", got.OrganizationID)
	assert.Equal(t, []domainauth.Role{domainauth.RoleAnalyst}, got.Roles)

	require.NoError(t, cache.Clear(ctx))
	assert.Nil(t, cache.Load(ctx))
}

func TestUserCache_LoadDiscardsUnusableEntries(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed json", "{not json"},
		{"missing user id", `{"username":"operator"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := mocks.NewMemoryKV()
			require.NoError(t, kv.Set(ctx, domainauth.KeyUserInfo, tt.raw))

			assert.Nil(t, NewUserCache(kv, nil).Load(ctx))
		})
	}
}

func TestUserCache_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("nil user", func(t *testing.T) {
		assert.Error(t, NewUserCache(mocks.NewMemoryKV(), nil).Save(ctx, nil))
	})

	t.Run("store write failure", func(t *testing.T) {
		kv := mocks.NewMemoryKV()
		kv.SetErr = errors.New("disk full")
		err := NewUserCache(kv, nil).Save(ctx, testutil.NewUser().Build())
		require.Error(t, err)
		assert.ErrorIs(t, err, kv.SetErr)
	})

	t.Run("store read failure", func(t *testing.T) {
		kv := mocks.NewMemoryKV()
		kv.GetErr = errors.New("unavailable")
		assert.Nil(t, NewUserCache(kv, nil).Load(ctx))
	})

	t.Run("nil store panics", func(t *testing.T) {
		assert.Panics(t, func() { NewUserCache(nil, nil) })
	})
}
