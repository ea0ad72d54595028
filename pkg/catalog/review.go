package catalog

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/packbazaar/bazaar/pkg/authz"
	"github.com/packbazaar/bazaar/pkg/observability"
)

func (s *Service) recordTransition(kind Kind, action, outcome string) {
	if s.metrics != nil {
		s.metrics.ReviewTransitionsTotal.WithLabelValues(string(kind), action, outcome).Inc()
	}
}

// transition runs the shared publish/reject path. The store's conditional
// update only succeeds from pending, so of two racing reviewers exactly
// one wins and the loser sees InvalidStateTransition.
func (s *Service) transition(ctx context.Context, actor authz.Actor, kind Kind, id string, to Status, activate bool) (*Entity, error) {
	if !s.gate.Authorize(actor, authz.OpReview, string(kind)) {
		return nil, NewError(ErrForbidden, "actor may not review %s entities", kind)
	}

	ok, err := s.store.Transition(ctx, id, kind, to, activate)
	if err != nil {
		return nil, err
	}
	if !ok {
		entity, getErr := s.store.Get(ctx, id)
		if getErr != nil || entity.Kind != kind {
			return nil, NewError(ErrNotFound, "no entity found")
		}
		return nil, NewError(ErrInvalidStateTransition,
			"entity is %s, transitions are only allowed from pending", entity.Status)
	}

	return s.store.Get(ctx, id)
}

// Publish moves a pending entity to public and activates it. The entity
// then enters the search index feed; a feed failure is logged but does
// not undo the publication.
func (s *Service) Publish(ctx context.Context, actor authz.Actor, kind Kind, id string) (*Entity, error) {
	ctx, span := tracer.Start(ctx, "Publish",
		trace.WithAttributes(
			attribute.String("kind", string(kind)),
			attribute.String("entity_id", id),
		),
	)
	defer span.End()

	entity, err := s.transition(ctx, actor, kind, id, StatusPublic, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		s.recordTransition(kind, "publish", "failed")
		return nil, err
	}
	s.recordTransition(kind, "publish", "ok")

	logger := observability.FromContext(ctx).WithFields(map[string]interface{}{
		"entity_id": entity.ID,
		"kind":      entity.Kind,
	})
	logger.Info("Entity published")

	if err := s.indexer.Index(ctx, entity); err != nil {
		logger.WithError(err).Warn("Failed to emit entity to search index feed")
	}

	return entity, nil
}

// Reject moves a pending entity to rejected. Rejected is terminal, there
// is no resubmission path.
func (s *Service) Reject(ctx context.Context, actor authz.Actor, kind Kind, id string) (*Entity, error) {
	ctx, span := tracer.Start(ctx, "Reject",
		trace.WithAttributes(
			attribute.String("kind", string(kind)),
			attribute.String("entity_id", id),
		),
	)
	defer span.End()

	entity, err := s.transition(ctx, actor, kind, id, StatusRejected, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reject failed")
		s.recordTransition(kind, "reject", "failed")
		return nil, err
	}
	s.recordTransition(kind, "reject", "ok")

	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"entity_id": entity.ID,
		"kind":      entity.Kind,
	}).Info("Entity rejected")

	return entity, nil
}

// Pending lists the reviewer queue for a kind. The queue is a status
// filter over the entity table, not a separate store.
func (s *Service) Pending(ctx context.Context, actor authz.Actor, kind Kind) ([]*Entity, error) {
	if !s.gate.Authorize(actor, authz.OpReview, string(kind)) {
		return nil, NewError(ErrForbidden, "actor may not review %s entities", kind)
	}

	status := StatusPending
	entities, err := s.store.List(ctx, Filter{Kind: kind, Status: &status})
	if err != nil {
		return nil, err
	}
	if entities == nil {
		entities = []*Entity{}
	}
	return entities, nil
}
