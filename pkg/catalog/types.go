package catalog

import (
	"time"
)

// Kind distinguishes the entity families the catalog manages
type Kind string

const (
	KindExtension Kind = "extension"
	KindLangPack  Kind = "langpack"
)

// Valid reports whether the kind is one the catalog knows
func (k Kind) Valid() bool {
	return k == KindExtension || k == KindLangPack
}

// KindFromSegment maps a URL path segment to a kind
func KindFromSegment(segment string) (Kind, bool) {
	switch segment {
	case "extensions":
		return KindExtension, true
	case "langpacks":
		return KindLangPack, true
	}
	return "", false
}

// Segment returns the URL path segment for the kind
func (k Kind) Segment() string {
	switch k {
	case KindExtension:
		return "extensions"
	case KindLangPack:
		return "langpacks"
	}
	return string(k)
}

// Status is the review lifecycle state of an entity
type Status string

const (
	// StatusPending is the initial post-promotion state
	StatusPending Status = "pending"
	// StatusPublic is reached through a reviewer publishing the entity
	StatusPublic Status = "public"
	// StatusRejected is terminal, there is no resubmission path
	StatusRejected Status = "rejected"
)

// HashPrefix names the digest algorithm in entity fingerprints
const HashPrefix = "sha256:"

// Fingerprint formats a content key as an entity fingerprint
func Fingerprint(key string) string {
	return HashPrefix + key
}

// Entity is a promoted catalog entry. Hash, Size, Filename, Version,
// Name, Language and PlatformVersion are derived from an upload at
// promotion time and are read-only through the metadata update path.
type Entity struct {
	ID              string    `json:"id"`
	Kind            Kind      `json:"kind"`
	Name            string    `json:"name,omitempty"`
	Authors         []string  `json:"authors"`
	Filename        string    `json:"filename"`
	Hash            string    `json:"hash"`
	Size            int64     `json:"size"`
	Version         string    `json:"version,omitempty"`
	Active          bool      `json:"active"`
	Status          Status    `json:"status"`
	Language        string    `json:"language,omitempty"`
	PlatformVersion string    `json:"platform_version,omitempty"`
	Description     string    `json:"description,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// OwnedBy reports whether actorID is one of the entity's authors
func (e *Entity) OwnedBy(actorID string) bool {
	if actorID == "" {
		return false
	}
	for _, a := range e.Authors {
		if a == actorID {
			return true
		}
	}
	return false
}

// PubliclyVisible reports whether anonymous callers may see the entity
func (e *Entity) PubliclyVisible() bool {
	return e.Status == StatusPublic && e.Active
}

// PromoteRequest carries a promotion. EntityID empty means create;
// Active is only honored on create, updates preserve the stored flag.
type PromoteRequest struct {
	UploadID string `json:"upload"`
	EntityID string `json:"-"`
	Kind     Kind   `json:"-"`
	Active   *bool  `json:"active,omitempty"`
}
