package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryStore()

	_, found, err := store.Load(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, found)

	creds := []byte("noise-key")
	require.NoError(t, store.Save(ctx, "user-1", creds))
	creds[0] = 'X'

	got, found, err := store.Load(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("noise-key"), got)

	got[0] = 'Y'
	again, _, _ := store.Load(ctx, "user-1")
	assert.Equal(t, []byte("noise-key"), again)

	require.NoError(t, store.Delete(ctx, "user-1"))
	require.NoError(t, store.Delete(ctx, "user-1"))
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreRejectsEmptyKeyAndCancelledContext(t *testing.T) {
	t.Parallel()
	store := NewMemoryStore()

	assert.Error(t, store.Save(context.Background(), "", []byte("x")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := store.Load(ctx, "user-1")
	assert.ErrorIs(t, err, context.Canceled)
}
