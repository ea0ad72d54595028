package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var indexerTracer = otel.Tracer("bazaar/search/indexer")

// DefaultQueue is the Redis list the index feed is pushed onto
const DefaultQueue = "bazaar:search:index"

// Indexer receives entities that became publicly visible
type Indexer interface {
	Index(ctx context.Context, doc interface{}) error
}

// RedisIndexer pushes serialized documents onto a Redis list consumed by
// the external index builder
type RedisIndexer struct {
	client *redis.Client
	queue  string
}

// NewRedisIndexer creates an indexer over an existing Redis client. An
// empty queue name selects DefaultQueue.
func NewRedisIndexer(client *redis.Client, queue string) *RedisIndexer {
	if queue == "" {
		queue = DefaultQueue
	}
	return &RedisIndexer{client: client, queue: queue}
}

// Index serializes the document and appends it to the queue
func (r *RedisIndexer) Index(ctx context.Context, doc interface{}) error {
	ctx, span := indexerTracer.Start(ctx, "Index",
		trace.WithAttributes(attribute.String("queue", r.queue)),
	)
	defer span.End()

	data, err := json.Marshal(doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal index document")
		return fmt.Errorf("failed to marshal index document: %w", err)
	}
	if err := r.client.LPush(ctx, r.queue, data).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to enqueue index document")
		return fmt.Errorf("failed to enqueue index document: %w", err)
	}
	return nil
}

// Queue returns the queue name documents are pushed to
func (r *RedisIndexer) Queue() string {
	return r.queue
}

// NoopIndexer discards documents. It stands in when no Redis endpoint is
// configured; publication proceeds without an index feed.
type NoopIndexer struct{}

// Index implements Indexer
func (NoopIndexer) Index(context.Context, interface{}) error { return nil }
