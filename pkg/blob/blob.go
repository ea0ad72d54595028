package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/packbazaar/bazaar/pkg/observability"
)

// ErrNotFound is returned when no payload exists under a key
var ErrNotFound = errors.New("blob not found")

// Store is content-addressed payload storage
type Store interface {
	// Put stores the payload and returns its content key
	Put(ctx context.Context, payload []byte) (string, error)
	// Get returns the payload stored under key
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes the payload stored under key; deleting a missing
	// key is not an error
	Delete(ctx context.Context, key string) error
}

// Key returns the content-addressed key for a payload
func Key(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// WithMetrics wraps a store with Prometheus operation metrics
func WithMetrics(store Store, metrics *observability.Metrics, backend string) Store {
	return &metricsStore{store: store, metrics: metrics, backend: backend}
}

type metricsStore struct {
	store   Store
	metrics *observability.Metrics
	backend string
}

func (m *metricsStore) Put(ctx context.Context, payload []byte) (string, error) {
	start := time.Now()
	key, err := m.store.Put(ctx, payload)
	m.observe("put", start, err)
	return key, err
}

func (m *metricsStore) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	payload, err := m.store.Get(ctx, key)
	m.observe("get", start, err)
	return payload, err
}

func (m *metricsStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := m.store.Delete(ctx, key)
	m.observe("delete", start, err)
	return err
}

func (m *metricsStore) observe(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.metrics.ObserveBlobOperation(operation, m.backend, status, time.Since(start))
}
