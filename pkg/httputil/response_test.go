package httputil

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONStatusAndBody(t *testing.T) {
	rec := httptest.NewRecorder()
	err := WriteAccepted(rec, map[string]string{"id": "u-1"})
	require.NoError(t, err)

	assert.Equal(t, 202, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"u-1"}`, rec.Body.String())
}

func TestWriteErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(rec *httptest.ResponseRecorder)
		status int
	}{
		{"bad request", func(rec *httptest.ResponseRecorder) { WriteBadRequest(rec, "nope") }, 400},
		{"unauthorized", func(rec *httptest.ResponseRecorder) { WriteUnauthorized(rec, "nope") }, 401},
		{"forbidden", func(rec *httptest.ResponseRecorder) { WriteForbidden(rec, "nope") }, 403},
		{"not found", func(rec *httptest.ResponseRecorder) { WriteNotFoundError(rec, "nope") }, 404},
		{"conflict", func(rec *httptest.ResponseRecorder) { WriteConflict(rec, "nope") }, 409},
		{"media type", func(rec *httptest.ResponseRecorder) { WriteUnsupportedMediaType(rec, "nope") }, 415},
		{"internal", func(rec *httptest.ResponseRecorder) { WriteInternalError(rec, errors.New("nope")) }, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, `{"error":"nope"}`, rec.Body.String())
		})
	}
}

func TestWriteFieldErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteFieldErrors(rec, 400, map[string][]string{
		"hash": {"This field is read-only."},
		"size": {"This field is read-only."},
	})

	assert.Equal(t, 400, rec.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body, 2)
	assert.Equal(t, []string{"This field is read-only."}, body["hash"])
}
