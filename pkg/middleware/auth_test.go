package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packbazaar/bazaar/pkg/authz"
)

func TestAuthMiddleware(t *testing.T) {
	resolver := NewStaticTokenResolver(map[string]authz.Actor{
		"dev-token": {
			ID:           "user-1",
			Name:         "dev",
			Capabilities: []authz.Capability{authz.CapSubmitExtensions},
		},
	})

	var seen authz.Actor
	handler := Auth(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetActor(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectedActor  string
		anonymous      bool
	}{
		{
			name:           "valid token resolves actor",
			header:         "Bearer dev-token",
			expectedStatus: http.StatusNoContent,
			expectedActor:  "user-1",
		},
		{
			name:           "missing header proceeds anonymously",
			header:         "",
			expectedStatus: http.StatusNoContent,
			anonymous:      true,
		},
		{
			name:           "unknown token rejected",
			header:         "Bearer nope",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "non-bearer scheme rejected",
			header:         "Basic dXNlcjpwYXNz",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = authz.Actor{}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads/abc", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			require.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusNoContent {
				assert.Equal(t, tt.expectedActor, seen.ID)
				assert.Equal(t, tt.anonymous, seen.Anonymous)
			}
		})
	}
}

func TestGetActorWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	actor := GetActor(req)
	assert.True(t, actor.Anonymous)
	assert.False(t, actor.HasCapability(authz.CapSubmitExtensions))
}

func TestStaticTokenResolverAdd(t *testing.T) {
	resolver := NewStaticTokenResolver(nil)
	_, err := resolver.Resolve(context.Background(), "later")
	require.Error(t, err)

	resolver.Add("later", authz.Actor{ID: "user-2"})
	actor, err := resolver.Resolve(context.Background(), "later")
	require.NoError(t, err)
	assert.Equal(t, "user-2", actor.ID)
}
