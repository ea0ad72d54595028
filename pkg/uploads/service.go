package uploads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/packbazaar/bazaar/pkg/authz"
	"github.com/packbazaar/bazaar/pkg/blob"
	"github.com/packbazaar/bazaar/pkg/observability"
	"github.com/packbazaar/bazaar/pkg/packfile"
)

// Service creates and retrieves upload records
type Service struct {
	store   *Store
	blobs   blob.Store
	metrics *observability.Metrics
}

// NewService creates a new upload service
func NewService(store *Store, blobs blob.Store, metrics *observability.Metrics) *Service {
	return &Service{
		store:   store,
		blobs:   blobs,
		metrics: metrics,
	}
}

// Create validates the payload synchronously and persists a new upload
// record carrying the outcome. Structural validation failures still
// produce a record (with Validity invalid); only an empty payload or a
// content type outside the allow-list reject the request outright.
func (s *Service) Create(ctx context.Context, payload []byte, filename, contentType string, owner authz.Actor) (*Upload, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if !packfile.SupportedContentType(contentType) {
		return nil, fmt.Errorf("%w: %q", packfile.ErrUnsupportedContentType, contentType)
	}

	start := time.Now()
	descriptor, verr := packfile.Validate(payload, contentType)

	upload := &Upload{
		ID:          uuid.NewString(),
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(payload)),
		CreatedAt:   time.Now().UTC(),
	}
	if !owner.Anonymous && owner.ID != "" {
		ownerID := owner.ID
		upload.OwnerID = &ownerID
	}

	if verr != nil {
		upload.Validity = ValidityInvalid
		upload.ValidationError = verr.Error()
	} else {
		upload.Validity = ValidityValid
		upload.Descriptor = descriptor
	}

	if s.metrics != nil {
		s.metrics.ObserveValidation(string(upload.Validity), upload.Size, time.Since(start))
	}

	key, err := s.blobs.Put(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to store payload: %w", err)
	}
	upload.BlobKey = key

	if err := s.store.Create(ctx, upload); err != nil {
		return nil, err
	}

	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"upload_id": upload.ID,
		"validity":  upload.Validity,
		"size":      upload.Size,
	}).Info("Upload created")

	return upload, nil
}

// Get retrieves an upload visible to the requesting actor. An upload
// owned by another actor is reported as missing, never as forbidden. An
// ownerless upload is visible to any authenticated actor.
func (s *Service) Get(ctx context.Context, id string, actor authz.Actor) (*Upload, error) {
	upload, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.Anonymous {
		return nil, ErrNotFound
	}
	if upload.OwnerID != nil && !upload.OwnedBy(actor.ID) {
		return nil, ErrNotFound
	}

	return upload, nil
}

// Payload fetches the raw archive bytes for an upload
func (s *Service) Payload(ctx context.Context, upload *Upload) ([]byte, error) {
	payload, err := s.blobs.Get(ctx, upload.BlobKey)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, fmt.Errorf("payload missing for upload %s: %w", upload.ID, err)
	}
	return payload, err
}
