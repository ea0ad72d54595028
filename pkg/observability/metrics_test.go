package observability

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegisters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.ObserveHTTPRequest("POST", "/api/v1/uploads", 202, 5*time.Millisecond)
	m.ObserveValidation("valid", 499, time.Millisecond)
	m.PromotionsTotal.WithLabelValues("langpack", "created").Inc()
	m.ReviewTransitionsTotal.WithLabelValues("extension", "publish", "ok").Inc()
	m.ObserveBlobOperation("put", "filesystem", "ok", time.Millisecond)

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["bazaar_http_requests_total"])
	assert.True(t, names["bazaar_uploads_validated_total"])
	assert.True(t, names["bazaar_promotions_total"])
	assert.True(t, names["bazaar_review_transitions_total"])
	assert.True(t, names["bazaar_blob_operations_total"])
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics(nil)
	m.ObserveValidation("invalid", 0, time.Millisecond)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "bazaar_uploads_validated_total")
}
