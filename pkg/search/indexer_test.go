package search

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndexer(t *testing.T) (*RedisIndexer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisIndexer(client, ""), mr
}

func TestRedisIndexerPushesDocument(t *testing.T) {
	indexer, mr := newTestIndexer(t)

	doc := map[string]interface{}{"id": "ent-1", "kind": "extension", "name": "Example"}
	require.NoError(t, indexer.Index(context.Background(), doc))

	queued, err := mr.Lpop(DefaultQueue)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(queued), &got))
	assert.Equal(t, "ent-1", got["id"])
	assert.Equal(t, "extension", got["kind"])
}

func TestRedisIndexerPreservesOrder(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	indexer := NewRedisIndexer(client, "custom:queue")

	require.NoError(t, indexer.Index(context.Background(), map[string]string{"id": "a"}))
	require.NoError(t, indexer.Index(context.Background(), map[string]string{"id": "b"}))

	assert.Equal(t, "custom:queue", indexer.Queue())
	// LPush prepends, so RPOP drains oldest first.
	first, err := mr.RPop("custom:queue")
	require.NoError(t, err)
	assert.Contains(t, first, `"a"`)
}

func TestRedisIndexerUnreachableServer(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	indexer := NewRedisIndexer(client, "")

	mr.Close()
	err := indexer.Index(context.Background(), map[string]string{"id": "x"})
	assert.Error(t, err)
}

func TestNoopIndexer(t *testing.T) {
	assert.NoError(t, NoopIndexer{}.Index(context.Background(), map[string]string{"id": "x"}))
}
