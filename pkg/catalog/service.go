package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/packbazaar/bazaar/pkg/authz"
	"github.com/packbazaar/bazaar/pkg/observability"
	"github.com/packbazaar/bazaar/pkg/packfile"
	"github.com/packbazaar/bazaar/pkg/search"
	"github.com/packbazaar/bazaar/pkg/uploads"
)

var tracer = otel.Tracer("bazaar/catalog")

// UploadSource resolves upload records with the caller's visibility rules
// applied. pkg/uploads provides the production implementation.
type UploadSource interface {
	Get(ctx context.Context, id string, actor authz.Actor) (*uploads.Upload, error)
}

// Service is the promotion engine and review front door
type Service struct {
	store   *Store
	uploads UploadSource
	gate    authz.Gate
	indexer search.Indexer
	metrics *observability.Metrics
}

// NewService creates a catalog service. indexer may be a NoopIndexer,
// metrics may be nil.
func NewService(store *Store, uploadSource UploadSource, gate authz.Gate, indexer search.Indexer, metrics *observability.Metrics) *Service {
	if indexer == nil {
		indexer = search.NoopIndexer{}
	}
	return &Service{
		store:   store,
		uploads: uploadSource,
		gate:    gate,
		indexer: indexer,
		metrics: metrics,
	}
}

// metadata is the descriptor-derived slice of an entity
type metadata struct {
	name            string
	version         string
	language        string
	platformVersion string
}

// deriveMetadata pulls kind-specific fields out of a descriptor. Failures
// here surface as PromotionRejected, never as a raw fault.
func deriveMetadata(kind Kind, descriptor packfile.Descriptor) (metadata, error) {
	m := metadata{
		name:    descriptor.String("name"),
		version: descriptor.String("version"),
	}
	switch kind {
	case KindExtension:
		if m.name == "" {
			return m, errors.New(`descriptor is missing required field "name"`)
		}
	case KindLangPack:
		m.language = descriptor.String("language")
		m.platformVersion = descriptor.String("platform_version")
		if m.language == "" {
			return m, errors.New(`descriptor is missing required field "language"`)
		}
	default:
		return m, fmt.Errorf("unknown entity kind %q", kind)
	}
	return m, nil
}

func (s *Service) recordPromotion(kind Kind, outcome string) {
	if s.metrics != nil {
		s.metrics.PromotionsTotal.WithLabelValues(string(kind), outcome).Inc()
	}
}

// Promote converts a valid upload into a catalog entity. With EntityID
// empty it creates a fresh identity every time; with EntityID set it
// updates that entity in place, replacing only the descriptor-derived
// fields. Returns the entity and whether it was created.
//
// Preconditions run in a fixed order and the first failure wins: upload
// visibility, upload validity, then the submit gate.
func (s *Service) Promote(ctx context.Context, actor authz.Actor, req PromoteRequest) (*Entity, bool, error) {
	ctx, span := tracer.Start(ctx, "Promote",
		trace.WithAttributes(
			attribute.String("kind", string(req.Kind)),
			attribute.String("upload_id", req.UploadID),
			attribute.Bool("update", req.EntityID != ""),
		),
	)
	defer span.End()

	entity, created, err := s.promote(ctx, actor, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "promotion failed")
		s.recordPromotion(req.Kind, "rejected")
		return nil, false, err
	}

	outcome := "updated"
	if created {
		outcome = "created"
	}
	s.recordPromotion(req.Kind, outcome)

	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"entity_id": entity.ID,
		"kind":      entity.Kind,
		"upload_id": req.UploadID,
		"created":   created,
	}).Info("Upload promoted")

	return entity, created, nil
}

func (s *Service) promote(ctx context.Context, actor authz.Actor, req PromoteRequest) (*Entity, bool, error) {
	if !req.Kind.Valid() {
		return nil, false, NewError(ErrRequestMalformed, "unknown entity kind %q", req.Kind)
	}
	if req.UploadID == "" {
		return nil, false, NewFieldError(ErrRequestMalformed, "missing upload identifier",
			map[string][]string{"upload": {"This field is required."}})
	}

	upload, err := s.uploads.Get(ctx, req.UploadID, actor)
	if err != nil {
		if errors.Is(err, uploads.ErrNotFound) {
			return nil, false, NewError(ErrNoSuchUpload, "no upload found with id %q", req.UploadID)
		}
		return nil, false, fmt.Errorf("failed to resolve upload: %w", err)
	}
	if !upload.IsValid() {
		return nil, false, NewError(ErrUploadNotValid, "upload %q has not passed validation", req.UploadID)
	}
	if !s.gate.Authorize(actor, authz.OpSubmit, string(req.Kind)) {
		return nil, false, NewError(ErrForbidden, "actor may not submit %s entities", req.Kind)
	}

	meta, err := deriveMetadata(req.Kind, upload.Descriptor)
	if err != nil {
		return nil, false, NewError(ErrPromotionRejected, "promotion rejected: %s", err.Error())
	}

	now := time.Now().UTC()
	if req.EntityID == "" {
		entity := &Entity{
			ID:              uuid.NewString(),
			Kind:            req.Kind,
			Name:            meta.name,
			Authors:         []string{},
			Filename:        upload.Filename,
			Hash:            Fingerprint(upload.BlobKey),
			Size:            upload.Size,
			Version:         meta.version,
			Status:          StatusPending,
			Language:        meta.language,
			PlatformVersion: meta.platformVersion,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if !actor.Anonymous && actor.ID != "" {
			entity.Authors = []string{actor.ID}
		}
		if req.Active != nil {
			entity.Active = *req.Active
		}
		if err := s.store.Create(ctx, entity); err != nil {
			return nil, false, err
		}
		return entity, true, nil
	}

	entity, err := s.store.Get(ctx, req.EntityID)
	if err != nil {
		return nil, false, err
	}
	if entity.Kind != req.Kind {
		return nil, false, NewError(ErrNotFound, "no entity found")
	}
	if len(entity.Authors) > 0 && !entity.OwnedBy(actor.ID) {
		return nil, false, NewError(ErrForbidden, "actor is not an author of this entity")
	}

	// Identity, authors, active flag, review state and description are
	// preserved; only the upload-derived fields are replaced.
	entity.Name = meta.name
	entity.Filename = upload.Filename
	entity.Hash = Fingerprint(upload.BlobKey)
	entity.Size = upload.Size
	entity.Version = meta.version
	entity.Language = meta.language
	entity.PlatformVersion = meta.platformVersion
	entity.UpdatedAt = now

	if err := s.store.Update(ctx, entity); err != nil {
		return nil, false, err
	}
	return entity, false, nil
}

// readOnlyFields are rejected on the metadata update path; they change
// only as a byproduct of promoting a new upload.
var readOnlyFields = map[string]bool{
	"hash":             true,
	"size":             true,
	"version":          true,
	"filename":         true,
	"name":             true,
	"language":         true,
	"platform_version": true,
	"kind":             true,
	"upload":           true,
}

// UpdateMetadata applies a partial update. Only active and description
// are writable. Every read-only field in the patch is collected and
// reported together; when any is present no change is committed.
func (s *Service) UpdateMetadata(ctx context.Context, actor authz.Actor, kind Kind, id string, patch map[string]interface{}) (*Entity, error) {
	ctx, span := tracer.Start(ctx, "UpdateMetadata",
		trace.WithAttributes(
			attribute.String("kind", string(kind)),
			attribute.String("entity_id", id),
		),
	)
	defer span.End()

	entity, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity.Kind != kind {
		return nil, NewError(ErrNotFound, "no entity found")
	}
	if !s.gate.Authorize(actor, authz.OpSubmit, string(kind)) {
		return nil, NewError(ErrForbidden, "actor may not modify %s entities", kind)
	}
	if len(entity.Authors) > 0 && !entity.OwnedBy(actor.ID) {
		return nil, NewError(ErrForbidden, "actor is not an author of this entity")
	}

	rejected := make(map[string][]string)
	malformed := make(map[string][]string)
	var active *bool
	var description *string

	for field, value := range patch {
		if readOnlyFields[field] {
			rejected[field] = append(rejected[field], "This field is read-only.")
			continue
		}
		switch field {
		case "active":
			b, ok := value.(bool)
			if !ok {
				malformed[field] = append(malformed[field], "Must be a boolean.")
				continue
			}
			active = &b
		case "description":
			str, ok := value.(string)
			if !ok {
				malformed[field] = append(malformed[field], "Must be a string.")
				continue
			}
			description = &str
		}
	}

	if len(rejected) > 0 {
		return nil, NewFieldError(ErrReadOnlyField, "read-only fields in update", rejected)
	}
	if len(malformed) > 0 {
		return nil, NewFieldError(ErrRequestMalformed, "malformed fields in update", malformed)
	}

	if active != nil {
		entity.Active = *active
	}
	if description != nil {
		entity.Description = *description
	}
	entity.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, entity); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "metadata update failed")
		return nil, err
	}
	return entity, nil
}

// Get returns an entity visible to the actor. Public active entities are
// visible to everyone; anything else requires authorship or the
// view-inactive capability, and is otherwise reported as missing.
func (s *Service) Get(ctx context.Context, actor authz.Actor, kind Kind, id string) (*Entity, error) {
	entity, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entity.Kind != kind {
		return nil, NewError(ErrNotFound, "no entity found")
	}
	if entity.PubliclyVisible() {
		return entity, nil
	}
	if entity.OwnedBy(actor.ID) || s.gate.Authorize(actor, authz.OpViewInactive, string(kind)) {
		return entity, nil
	}
	return nil, NewError(ErrNotFound, "no entity found")
}

// List returns public entities of a kind. active nil means no active
// filter; both that and active=false require the view-inactive
// capability, ordinary callers only ever see active entities.
func (s *Service) List(ctx context.Context, actor authz.Actor, kind Kind, active *bool) ([]*Entity, error) {
	if active == nil || !*active {
		if !s.gate.Authorize(actor, authz.OpViewInactive, string(kind)) {
			return nil, NewError(ErrForbidden, "listing inactive entities requires elevated access")
		}
	}

	status := StatusPublic
	entities, err := s.store.List(ctx, Filter{Kind: kind, Status: &status, Active: active})
	if err != nil {
		return nil, err
	}
	if entities == nil {
		entities = []*Entity{}
	}
	return entities, nil
}
