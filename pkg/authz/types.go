package authz

// Capability is a named grant held by an actor
type Capability string

const (
	// CapSubmitExtensions allows promoting uploads into extensions
	CapSubmitExtensions Capability = "extensions:submit"
	// CapReviewExtensions allows publish/reject on pending extensions
	CapReviewExtensions Capability = "extensions:review"
	// CapManageLangPacks allows promoting and updating language packs
	CapManageLangPacks Capability = "langpacks:manage"
	// CapReviewLangPacks allows publish/reject on pending language packs
	CapReviewLangPacks Capability = "langpacks:review"
	// CapViewInactive allows listing inactive catalog entities
	CapViewInactive Capability = "catalog:view-inactive"
	// CapAll grants every capability (admin)
	CapAll Capability = "*"
)

// Operation identifies a gated catalog operation
type Operation string

const (
	OpSubmit       Operation = "submit"
	OpReview       Operation = "review"
	OpViewInactive Operation = "view-inactive"
)

// Actor is the identity performing a request. A zero-value Actor with
// Anonymous set represents an unauthenticated caller.
type Actor struct {
	ID           string       `json:"id,omitempty"`
	Name         string       `json:"name,omitempty"`
	Anonymous    bool         `json:"anonymous,omitempty"`
	Capabilities []Capability `json:"capabilities,omitempty"`
}

// Anonymous is the canonical unauthenticated actor
var AnonymousActor = Actor{Anonymous: true}

// HasCapability reports whether the actor holds the given capability
func (a Actor) HasCapability(cap Capability) bool {
	if a.Anonymous {
		return false
	}
	for _, c := range a.Capabilities {
		if c == CapAll || c == cap {
			return true
		}
	}
	return false
}
