package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsletter/internal/metrics"
)

func TestHealthHandler(t *testing.T) {
	old := metrics.Global
	defer func() { metrics.Global = old }()

	metrics.Global = metrics.New()
	metrics.Global.SetRun("run-1")

	rec := httptest.NewRecorder()
	healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "run-1", body["run_id"])

	metrics.Global.SetError("scrape: boom")
	rec = httptest.NewRecorder()
	healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsHandler(t *testing.T) {
	old := metrics.Global
	defer func() { metrics.Global = old }()

	metrics.Global = metrics.New()
	metrics.Global.AddScraped(3)

	rec := httptest.NewRecorder()
	metricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(3), body["articles_scraped"])
}
