package catalog

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packbazaar/bazaar/pkg/authz"
)

func (f *fixture) promotePending(t *testing.T, kind Kind, descriptor string) *Entity {
	t.Helper()
	upload := f.makeUpload(t, author, descriptor)
	entity, _, err := f.catalog.Promote(context.Background(), author, PromoteRequest{
		UploadID: upload.ID,
		Kind:     kind,
	})
	require.NoError(t, err)
	return entity
}

func TestPublish(t *testing.T) {
	f := newFixture(t)
	entity := f.promotePending(t, KindExtension, `{"name": "Example"}`)

	published, err := f.catalog.Publish(context.Background(), reviewer, KindExtension, entity.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusPublic, published.Status)
	assert.True(t, published.Active)

	// Publication feeds the search index.
	require.Len(t, f.indexed, 1)
	doc, ok := f.indexed[0].(*Entity)
	require.True(t, ok)
	assert.Equal(t, entity.ID, doc.ID)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	entity := f.promotePending(t, KindExtension, `{"name": "Example"}`)

	rejected, err := f.catalog.Reject(context.Background(), reviewer, KindExtension, entity.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, rejected.Status)
	assert.False(t, rejected.Active)
	assert.Empty(t, f.indexed)
}

func TestReviewRequiresCapability(t *testing.T) {
	f := newFixture(t)
	entity := f.promotePending(t, KindExtension, `{"name": "Example"}`)

	tests := []struct {
		name  string
		actor authz.Actor
	}{
		{"anonymous", authz.AnonymousActor},
		{"author without review capability", author},
		{"ordinary actor", powerless},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.catalog.Publish(context.Background(), tt.actor, KindExtension, entity.ID)
			assert.True(t, IsKind(err, ErrForbidden))
			_, err = f.catalog.Reject(context.Background(), tt.actor, KindExtension, entity.ID)
			assert.True(t, IsKind(err, ErrForbidden))
		})
	}

	// The entity never left pending.
	got, err := f.catalog.store.Get(context.Background(), entity.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestReviewNonPendingEntity(t *testing.T) {
	f := newFixture(t)
	entity := f.promotePending(t, KindExtension, `{"name": "Example"}`)
	_, err := f.catalog.Publish(context.Background(), reviewer, KindExtension, entity.ID)
	require.NoError(t, err)

	_, err = f.catalog.Reject(context.Background(), reviewer, KindExtension, entity.ID)
	assert.True(t, IsKind(err, ErrInvalidStateTransition))
	_, err = f.catalog.Publish(context.Background(), reviewer, KindExtension, entity.ID)
	assert.True(t, IsKind(err, ErrInvalidStateTransition))

	got, err := f.catalog.store.Get(context.Background(), entity.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPublic, got.Status)
}

func TestReviewUnknownEntity(t *testing.T) {
	f := newFixture(t)
	_, err := f.catalog.Publish(context.Background(), reviewer, KindExtension, "ghost")
	assert.True(t, IsKind(err, ErrNotFound))
}

func TestConcurrentPublishReject(t *testing.T) {
	f := newFixture(t)
	entity := f.promotePending(t, KindExtension, `{"name": "Example"}`)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = f.catalog.Publish(context.Background(), reviewer, KindExtension, entity.ID)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = f.catalog.Reject(context.Background(), reviewer, KindExtension, entity.ID)
	}()
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, IsKind(err, ErrInvalidStateTransition), "loser must see a state conflict, got %v", err)
		}
	}
	assert.Equal(t, 1, winners)

	got, err := f.catalog.store.Get(context.Background(), entity.ID)
	require.NoError(t, err)
	assert.Contains(t, []Status{StatusPublic, StatusRejected}, got.Status)
}

func TestPendingQueue(t *testing.T) {
	f := newFixture(t)
	first := f.promotePending(t, KindExtension, `{"name": "One"}`)
	second := f.promotePending(t, KindExtension, `{"name": "Two"}`)
	f.promotePending(t, KindLangPack, `{"name": "Pack", "language": "de"}`)

	_, err := f.catalog.Pending(context.Background(), powerless, KindExtension)
	assert.True(t, IsKind(err, ErrForbidden))

	queue, err := f.catalog.Pending(context.Background(), reviewer, KindExtension)
	require.NoError(t, err)
	require.Len(t, queue, 2)

	// Published entities drop out of the queue.
	_, err = f.catalog.Publish(context.Background(), reviewer, KindExtension, first.ID)
	require.NoError(t, err)
	queue, err = f.catalog.Pending(context.Background(), reviewer, KindExtension)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, second.ID, queue[0].ID)
}
