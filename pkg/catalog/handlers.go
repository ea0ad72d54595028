package catalog

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/packbazaar/bazaar/pkg/authz"
	"github.com/packbazaar/bazaar/pkg/httputil"
	"github.com/packbazaar/bazaar/pkg/middleware"
	"github.com/packbazaar/bazaar/pkg/observability"
)

// Handlers provides HTTP handlers for catalog operations
type Handlers struct {
	service *Service
}

// NewHandlers creates catalog handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers catalog and review routes on the router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/review/{kind:extensions|langpacks}", h.ListPending).Methods("GET")
	router.HandleFunc("/api/v1/review/{kind:extensions|langpacks}/{id}/publish", h.Publish).Methods("POST")
	router.HandleFunc("/api/v1/review/{kind:extensions|langpacks}/{id}/reject", h.Reject).Methods("POST")
	router.HandleFunc("/api/v1/{kind:extensions|langpacks}", h.Create).Methods("POST")
	router.HandleFunc("/api/v1/{kind:extensions|langpacks}", h.List).Methods("GET")
	router.HandleFunc("/api/v1/{kind:extensions|langpacks}/{id}", h.Update).Methods("PUT")
	router.HandleFunc("/api/v1/{kind:extensions|langpacks}/{id}", h.PatchMetadata).Methods("PATCH")
	router.HandleFunc("/api/v1/{kind:extensions|langpacks}/{id}", h.Get).Methods("GET")
}

func requestKind(r *http.Request) (Kind, bool) {
	return KindFromSegment(mux.Vars(r)["kind"])
}

// writeError maps structured catalog errors onto HTTP responses. Field
// errors go out as a field-keyed body so clients can surface every
// offending field at once.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ce *Error
	if !errors.As(err, &ce) {
		observability.FromContext(r.Context()).WithError(err).Error("Catalog operation failed")
		httputil.WriteInternalError(w, errors.New("internal server error"))
		return
	}

	switch ce.Kind {
	case ErrForbidden:
		httputil.WriteForbidden(w, ce.Detail)
	case ErrNotFound:
		httputil.WriteNotFoundError(w, ce.Detail)
	case ErrInvalidStateTransition:
		httputil.WriteConflict(w, ce.Detail)
	case ErrReadOnlyField:
		httputil.WriteFieldErrors(w, http.StatusBadRequest, ce.Fields)
	case ErrRequestMalformed:
		if len(ce.Fields) > 0 {
			httputil.WriteFieldErrors(w, http.StatusBadRequest, ce.Fields)
			return
		}
		httputil.WriteBadRequest(w, ce.Detail)
	case ErrNoSuchUpload, ErrUploadNotValid:
		httputil.WriteFieldErrors(w, http.StatusBadRequest, map[string][]string{
			"upload": {ce.Detail},
		})
	case ErrPromotionRejected:
		httputil.WriteBadRequest(w, ce.Detail)
	default:
		httputil.WriteBadRequest(w, ce.Detail)
	}
}

// Create promotes an upload into a fresh entity
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	kind, ok := requestKind(r)
	if !ok {
		httputil.WriteNotFoundError(w, "unknown entity kind")
		return
	}

	var req PromoteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	req.Kind = kind
	req.EntityID = ""

	entity, _, err := h.service.Promote(r.Context(), middleware.GetActor(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, entity)
}

// Update promotes an upload into an existing entity
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	kind, ok := requestKind(r)
	if !ok {
		httputil.WriteNotFoundError(w, "unknown entity kind")
		return
	}

	var req PromoteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	req.Kind = kind
	req.EntityID = mux.Vars(r)["id"]

	entity, _, err := h.service.Promote(r.Context(), middleware.GetActor(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, entity)
}

// PatchMetadata applies a partial metadata update
func (h *Handlers) PatchMetadata(w http.ResponseWriter, r *http.Request) {
	kind, ok := requestKind(r)
	if !ok {
		httputil.WriteNotFoundError(w, "unknown entity kind")
		return
	}

	var patch map[string]interface{}
	if !httputil.ParseJSONOrError(w, r, &patch) {
		return
	}

	entity, err := h.service.UpdateMetadata(r.Context(), middleware.GetActor(r), kind, mux.Vars(r)["id"], patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, entity)
}

// Get returns an entity detail subject to visibility rules
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	kind, ok := requestKind(r)
	if !ok {
		httputil.WriteNotFoundError(w, "unknown entity kind")
		return
	}

	entity, err := h.service.Get(r.Context(), middleware.GetActor(r), kind, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, entity)
}

// List returns the public listing. The active query parameter accepts
// true (default), false, or all; anything but true requires elevated
// access.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	kind, ok := requestKind(r)
	if !ok {
		httputil.WriteNotFoundError(w, "unknown entity kind")
		return
	}

	var active *bool
	switch httputil.ParseQueryString(r, "active", "true") {
	case "true":
		v := true
		active = &v
	case "false":
		v := false
		active = &v
	case "all", "null":
		active = nil
	default:
		httputil.WriteBadRequest(w, "active must be true, false or all")
		return
	}

	entities, err := h.service.List(r.Context(), middleware.GetActor(r), kind, active)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"results": entities})
}

// ListPending returns the reviewer queue for a kind
func (h *Handlers) ListPending(w http.ResponseWriter, r *http.Request) {
	kind, ok := requestKind(r)
	if !ok {
		httputil.WriteNotFoundError(w, "unknown entity kind")
		return
	}

	entities, err := h.service.Pending(r.Context(), middleware.GetActor(r), kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"results": entities})
}

// Publish moves a pending entity to public
func (h *Handlers) Publish(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.Publish)
}

// Reject moves a pending entity to rejected
func (h *Handlers) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.Reject)
}

func (h *Handlers) review(w http.ResponseWriter, r *http.Request, op func(context.Context, authz.Actor, Kind, string) (*Entity, error)) {
	kind, ok := requestKind(r)
	if !ok {
		httputil.WriteNotFoundError(w, "unknown entity kind")
		return
	}

	entity, err := op(r.Context(), middleware.GetActor(r), kind, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteAccepted(w, entity)
}
