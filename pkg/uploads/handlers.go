package uploads

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/packbazaar/bazaar/pkg/httputil"
	"github.com/packbazaar/bazaar/pkg/middleware"
	"github.com/packbazaar/bazaar/pkg/observability"
	"github.com/packbazaar/bazaar/pkg/packfile"
)

// DefaultMaxUploadSize caps the accepted request body at 50 MiB
const DefaultMaxUploadSize = 50 << 20

// Handlers provides HTTP handlers for upload operations
type Handlers struct {
	service *Service
	maxSize int64
}

// NewHandlers creates upload handlers. maxSize <= 0 selects the default
// body cap.
func NewHandlers(service *Service, maxSize int64) *Handlers {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	return &Handlers{service: service, maxSize: maxSize}
}

// RegisterRoutes registers upload routes on the router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/uploads", h.CreateUpload).Methods("POST")
	router.HandleFunc("/api/v1/uploads/{id}", h.GetUpload).Methods("GET")
}

// CreateUpload accepts raw archive bytes, validates them synchronously
// and responds 202 with the stored record. A structurally invalid
// archive is still accepted; its record carries the failure.
func (h *Handlers) CreateUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.GetActor(r)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteErrorMessage(w, http.StatusRequestEntityTooLarge, "Uploaded file exceeds the size limit")
			return
		}
		httputil.WriteBadRequest(w, "Failed to read request body")
		return
	}

	contentType := r.Header.Get("Content-Type")
	filename := r.Header.Get("X-Upload-Filename")
	if filename == "" {
		filename = "upload.zip"
	}

	upload, err := h.service.Create(ctx, payload, filename, contentType, actor)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyPayload):
			httputil.WriteBadRequest(w, "Missing file in request")
		case errors.Is(err, packfile.ErrUnsupportedContentType):
			httputil.WriteUnsupportedMediaType(w, "Unsupported content type")
		default:
			observability.FromContext(ctx).WithError(err).Error("Failed to create upload")
			httputil.WriteInternalError(w, errors.New("failed to create upload"))
		}
		return
	}

	httputil.WriteAccepted(w, upload)
}

// GetUpload returns an upload record visible to the requesting actor
func (h *Handlers) GetUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	actor := middleware.GetActor(r)

	upload, err := h.service.Get(ctx, id, actor)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httputil.WriteNotFoundError(w, "No upload found")
			return
		}
		observability.FromContext(ctx).WithError(err).Error("Failed to get upload")
		httputil.WriteInternalError(w, errors.New("failed to get upload"))
		return
	}

	httputil.WriteSuccess(w, upload)
}
