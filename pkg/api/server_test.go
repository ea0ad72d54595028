package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klauspost/compress/zip"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packbazaar/bazaar/pkg/authz"
	"github.com/packbazaar/bazaar/pkg/blob"
	"github.com/packbazaar/bazaar/pkg/catalog"
	"github.com/packbazaar/bazaar/pkg/middleware"
	"github.com/packbazaar/bazaar/pkg/observability"
	"github.com/packbazaar/bazaar/pkg/search"
	"github.com/packbazaar/bazaar/pkg/uploads"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	uploadStore := uploads.NewStore(db, "sqlite3")
	require.NoError(t, uploadStore.Migrate(context.Background()))
	entityStore, err := catalog.NewStore(db, "sqlite3")
	require.NoError(t, err)
	require.NoError(t, entityStore.Migrate(context.Background()))

	blobs, err := blob.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	metrics := observability.NewMetrics(nil)
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)

	uploadService := uploads.NewService(uploadStore, blobs, metrics)
	gate := authz.NewRuleGate(authz.DefaultRules())
	catalogService := catalog.NewService(entityStore, uploadService, gate, search.NoopIndexer{}, metrics)

	resolver := middleware.NewStaticTokenResolver(map[string]authz.Actor{
		"author-token": {
			ID:           "author-1",
			Capabilities: []authz.Capability{authz.CapSubmitExtensions},
		},
		"reviewer-token": {
			ID:           "reviewer-1",
			Capabilities: []authz.Capability{authz.CapReviewExtensions, authz.CapViewInactive},
		},
	})

	return NewServer(Options{
		Logger:        logger,
		Metrics:       metrics,
		TokenResolver: resolver,
		Uploads:       uploads.NewHandlers(uploadService, 0),
		Catalog:       catalog.NewHandlers(catalogService),
	})
}

func buildArchive(t *testing.T, descriptor string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("manifest.json")
	require.NoError(t, err)
	_, err = f.Write([]byte(descriptor))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func do(t *testing.T, server *Server, method, path, token string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestUploadPromotePublishFlow(t *testing.T) {
	server := newTestServer(t)

	archive := buildArchive(t, `{"name": "Shiny Extension", "version": "1.0"}`)
	w := do(t, server, http.MethodPost, "/api/v1/uploads", "author-token", archive, "application/zip")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	upload := decode(t, w)
	uploadID, _ := upload["id"].(string)
	require.NotEmpty(t, uploadID)
	assert.Equal(t, "valid", upload["validity"])

	body, _ := json.Marshal(map[string]string{"upload": uploadID})
	w = do(t, server, http.MethodPost, "/api/v1/extensions", "author-token", body, "application/json")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	entity := decode(t, w)
	entityID, _ := entity["id"].(string)
	require.NotEmpty(t, entityID)
	assert.Equal(t, "pending", entity["status"])

	// Pending entities are invisible to anonymous callers
	w = do(t, server, http.MethodGet, "/api/v1/extensions/"+entityID, "", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, server, http.MethodPost, fmt.Sprintf("/api/v1/review/extensions/%s/publish", entityID), "reviewer-token", nil, "")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	published := decode(t, w)
	assert.Equal(t, "public", published["status"])
	assert.Equal(t, true, published["active"])

	w = do(t, server, http.MethodGet, "/api/v1/extensions/"+entityID, "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, server, http.MethodGet, "/api/v1/extensions", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	listing := decode(t, w)
	results, _ := listing["results"].([]interface{})
	assert.Len(t, results, 1)
}

func TestAuthWiring(t *testing.T) {
	server := newTestServer(t)

	w := do(t, server, http.MethodGet, "/api/v1/extensions", "no-such-token", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Anonymous requests pass through and hit the capability gates instead
	body, _ := json.Marshal(map[string]string{"upload": "ghost"})
	w = do(t, server, http.MethodPost, "/api/v1/extensions", "", body, "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, server, http.MethodGet, "/api/v1/review/extensions", "author-token", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/extensions", nil)
	req.Header.Set("X-Request-ID", "req-abc-123")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-abc-123", w.Header().Get("X-Request-ID"))
}

func TestHealthHandler(t *testing.T) {
	checker := observability.NewHealthChecker(nil, nil)
	metrics := observability.NewMetrics(nil)
	handler := NewHealthHandler(checker, metrics)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
