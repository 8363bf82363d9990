package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemory(t *testing.T) *Memory {
	t.Helper()

	m, err := NewMemory(64, time.Hour)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func TestMemory_GetSetRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestMemory(t)

	t.Run("Should return nil for a missing key", func(t *testing.T) {
		value, err := m.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("Should round-trip a value", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "snapshot", []byte(`{"v":1}`)))

		value, err := m.Get(ctx, "snapshot")
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"v":1}`), value)
	})

	t.Run("Should overwrite on repeated set", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "overwrite", []byte("old")))
		require.NoError(t, m.Set(ctx, "overwrite", []byte("new")))

		value, err := m.Get(ctx, "overwrite")
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), value)
	})

	t.Run("Should remove a key", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "doomed", []byte("x")))
		require.NoError(t, m.Remove(ctx, "doomed"))

		value, err := m.Get(ctx, "doomed")
		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("Should tolerate removing a missing key", func(t *testing.T) {
		assert.NoError(t, m.Remove(ctx, "never-existed"))
	})
}
