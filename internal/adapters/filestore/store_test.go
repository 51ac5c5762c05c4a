package filestore

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/aquaops-console/internal/ports"
)

func TestStore_Backends(t *testing.T) {
	tests := []struct {
		name  string
		store func(t *testing.T) *Store
	}{
		{name: "file", store: func(t *testing.T) *Store { return New(filepath.Join(t.TempDir(), "s", "session.json")) }},
		{name: "memory", store: func(*testing.T) *Store { return NewMemory() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.store(t)
			ctx := context.Background()

			_, err := s.Get(ctx, "access_token")
			require.ErrorIs(t, err, ports.ErrKeyNotFound)

			require.NoError(t, s.Set(ctx, "access_token", "a.b.c"))
			require.NoError(t, s.Set(ctx, "refresh_token", "r-1"))
			require.NoError(t, s.Set(ctx, "access_token", "a.b.d"))

			got, err := s.Get(ctx, "access_token")
			require.NoError(t, err)
			assert.Equal(t, "a.b.d", got)

			require.NoError(t, s.Delete(ctx, "access_token", "missing"))
			_, err = s.Get(ctx, "access_token")
			require.ErrorIs(t, err, ports.ErrKeyNotFound)

			got, err = s.Get(ctx, "refresh_token")
			require.NoError(t, err)
			assert.Equal(t, "r-1", got)

			require.Error(t, s.Set(ctx, "", "x"))
			require.NoError(t, s.Delete(ctx))
		})
	}
}

func TestStore_SharedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()

	console := New(path)
	cli := New(path)

	require.NoError(t, cli.Set(ctx, "refresh_token", "from-cli"))

	got, err := console.Get(ctx, "refresh_token")
	require.NoError(t, err)
	assert.Equal(t, "from-cli", got)

	require.NoError(t, console.Delete(ctx, "refresh_token"))
	_, err = cli.Get(ctx, "refresh_token")
	assert.ErrorIs(t, err, ports.ErrKeyNotFound)
}

func TestStore_FileRemovedWhenEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()
	s := New(path)

	require.NoError(t, s.Set(ctx, "user_info", `{"userId":"user-1"}`))
	_, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "user_info"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not enforced on windows")
	}
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, New(path).Set(context.Background(), "access_token", "secret"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(fileMode), info.Mode().Perm())
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := New(path).Get(context.Background(), "access_token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrKeyNotFound)
}

func TestStore_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	_, err := New(path).Get(context.Background(), "access_token")
	assert.ErrorIs(t, err, ports.ErrKeyNotFound)
}
