package uploads

import (
	"errors"
	"time"

	"github.com/packbazaar/bazaar/pkg/packfile"
)

// Validity is the three-valued validation state of an upload
type Validity string

const (
	// ValidityUnchecked means validation has not run (only ever visible
	// to code holding a half-constructed record)
	ValidityUnchecked Validity = "unchecked"
	// ValidityValid means the archive passed structural validation
	ValidityValid Validity = "valid"
	// ValidityInvalid means the archive failed structural validation
	ValidityInvalid Validity = "invalid"
)

var (
	// ErrNotFound is returned when no upload is visible under an id.
	// Uploads owned by another actor are indistinguishable from missing
	// ones on purpose.
	ErrNotFound = errors.New("no upload found")
	// ErrEmptyPayload is returned when a request carries no bytes
	ErrEmptyPayload = errors.New("missing file in request")
)

// Upload is a transient holder of submitted archive bytes plus the
// validation outcome. OwnerID nil means the upload was submitted
// anonymously.
type Upload struct {
	ID              string              `json:"id"`
	OwnerID         *string             `json:"owner_id,omitempty"`
	Filename        string              `json:"filename"`
	ContentType     string              `json:"content_type"`
	Size            int64               `json:"size"`
	BlobKey         string              `json:"-"`
	Validity        Validity            `json:"validity"`
	ValidationError string              `json:"validation_error,omitempty"`
	Descriptor      packfile.Descriptor `json:"-"`
	CreatedAt       time.Time           `json:"created_at"`
}

// IsValid reports whether the upload passed validation
func (u *Upload) IsValid() bool {
	return u.Validity == ValidityValid
}

// OwnedBy reports whether actorID owns this upload
func (u *Upload) OwnedBy(actorID string) bool {
	return u.OwnerID != nil && *u.OwnerID == actorID
}
