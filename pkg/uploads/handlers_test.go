package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packbazaar/bazaar/pkg/authz"
	"github.com/packbazaar/bazaar/pkg/middleware"
	"github.com/packbazaar/bazaar/pkg/packfile"
)

func newTestRouter(t *testing.T) (*mux.Router, *Service) {
	t.Helper()
	service := newTestService(t)
	router := mux.NewRouter()
	NewHandlers(service, 0).RegisterRoutes(router)
	return router, service
}

func doRequest(router *mux.Router, method, path string, body []byte, contentType string, actor authz.Actor) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req = req.WithContext(middleware.WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateUploadAccepted(t *testing.T) {
	router, _ := newTestRouter(t)
	raw := buildArchive(t, map[string]string{
		packfile.DescriptorName: `{"name": "Example"}`,
	})

	rec := doRequest(router, http.MethodPost, "/api/v1/uploads", raw, "application/zip", submitter)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "valid", body["validity"])
	assert.Equal(t, "user-1", body["owner_id"])
	assert.NotEmpty(t, body["id"])
	// Internal storage details stay out of the response.
	assert.NotContains(t, body, "blob_key")
}

func TestCreateUploadInvalidArchiveStillAccepted(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(router, http.MethodPost, "/api/v1/uploads", []byte("not a zip"), "application/zip", submitter)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid", body["validity"])
	assert.NotEmpty(t, body["validation_error"])
}

func TestCreateUploadEmptyBody(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(router, http.MethodPost, "/api/v1/uploads", nil, "application/zip", submitter)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateUploadUnsupportedContentType(t *testing.T) {
	router, _ := newTestRouter(t)
	raw := buildArchive(t, map[string]string{packfile.DescriptorName: `{}`})

	rec := doRequest(router, http.MethodPost, "/api/v1/uploads", raw, "application/json", submitter)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestCreateUploadBodyTooLarge(t *testing.T) {
	service := newTestService(t)
	router := mux.NewRouter()
	NewHandlers(service, 16).RegisterRoutes(router)

	raw := buildArchive(t, map[string]string{packfile.DescriptorName: `{}`})
	rec := doRequest(router, http.MethodPost, "/api/v1/uploads", raw, "application/zip", submitter)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGetUploadVisibility(t *testing.T) {
	router, service := newTestRouter(t)
	raw := buildArchive(t, map[string]string{packfile.DescriptorName: `{}`})

	upload, err := service.Create(context.Background(), raw, "ext.zip", "application/zip", submitter)
	require.NoError(t, err)

	rec := doRequest(router, http.MethodGet, "/api/v1/uploads/"+upload.ID, nil, "", submitter)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/v1/uploads/"+upload.ID, nil, "", authz.Actor{ID: "user-2"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/v1/uploads/"+upload.ID, nil, "", authz.AnonymousActor)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/v1/uploads/missing", nil, "", submitter)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
