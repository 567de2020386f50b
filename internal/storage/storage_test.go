package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/fleettrack-dev/fleettrack/internal/database"
	"github.com/fleettrack-dev/fleettrack/internal/models"
)

// exerciseStorage runs the contract every backend must honor
func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok, "fresh store should be empty")

	require.NoError(t, s.Set(ctx, KeyToken, "t1"))
	require.NoError(t, s.Set(ctx, KeyUser, `{"id":"1"}`))

	v, ok, err := s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "t1", v)

	require.NoError(t, s.Set(ctx, KeyToken, "t2"))
	v, _, err = s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "t2", v, "set should overwrite")

	require.NoError(t, s.Delete(ctx, KeyToken))
	_, ok, err = s.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Delete(ctx, KeyToken), "deleting a missing key is a no-op")

	v, ok, err = s.Get(ctx, KeyUser)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"1"}`, v)
}

func TestMemoryStore(t *testing.T) {
	exerciseStorage(t, NewMemoryStore())
}

func TestSQLStore(t *testing.T) {
	db, err := database.Open(":memory:", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	exerciseStorage(t, NewSQLStore(db, "visitor-a"))

	t.Run("namespaces are isolated", func(t *testing.T) {
		ctx := context.Background()
		a := NewSQLStore(db, "ns-a")
		b := NewSQLStore(db, "ns-b")

		require.NoError(t, a.Set(ctx, KeyToken, "token-a"))
		_, ok, err := b.Get(ctx, KeyToken)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, DeleteNamespace(ctx, db, "ns-a"))
		_, ok, err = a.Get(ctx, KeyToken)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	exerciseStorage(t, NewKeyringStore("localhost:3000"))

	t.Run("scopes are isolated", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, NewKeyringStore("a.example").Set(ctx, KeyToken, "a"))

		_, ok, err := NewKeyringStore("b.example").Get(ctx, KeyToken)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	exerciseStorage(t, NewFileStore(path, "localhost:3000"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	t.Run("corrupt file surfaces an error", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "session.json")
		require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0600))

		_, _, err := NewFileStore(bad, "x").Get(context.Background(), KeyToken)
		assert.Error(t, err)
	})

	t.Run("null document is treated as empty", func(t *testing.T) {
		ctx := context.Background()
		nullPath := filepath.Join(t.TempDir(), "session.json")
		require.NoError(t, os.WriteFile(nullPath, []byte("null"), 0600))

		store := NewFileStore(nullPath, "x")
		_, ok, err := store.Get(ctx, KeyToken)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, store.Set(ctx, KeyToken, "t1"))
		v, ok, err := store.Get(ctx, KeyToken)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "t1", v)

		require.NoError(t, os.WriteFile(nullPath, []byte("null"), 0600))
		assert.NoError(t, store.Delete(ctx, KeyToken))
	})
}
