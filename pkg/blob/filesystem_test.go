package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemStoreRoundTrip(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	payload := []byte("archive bytes")
	key, err := store.Put(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, Key(payload), key)

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFilesystemStorePutIdempotent(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	payload := []byte("same bytes")
	key1, err := store.Put(ctx, payload)
	require.NoError(t, err)
	key2, err := store.Put(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, key1, key2)
}

func TestFilesystemStoreGetMissing(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get(context.Background(), Key([]byte("never stored")))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilesystemStoreDelete(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key, err := store.Put(ctx, []byte("deleted soon"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing key is not an error
	assert.NoError(t, store.Delete(ctx, key))
}
