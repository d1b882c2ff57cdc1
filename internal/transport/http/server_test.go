package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/pagesmith/internal/adapter/llm"
	"github.com/xiaot623/pagesmith/internal/bridge"
	"github.com/xiaot623/pagesmith/internal/config"
	"github.com/xiaot623/pagesmith/internal/observability"
	"github.com/xiaot623/pagesmith/internal/repository"
	"github.com/xiaot623/pagesmith/internal/service"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	metrics := observability.NewCollector("test")
	svc := service.New(repository.NewMemoryStore(), llm.NewMockClient(), config.Default(), nil, metrics, nil)
	return NewServer(Deps{
		Service:   svc,
		Channel:   bridge.NewChannel("null", nil, nil, metrics, nil),
		Hub:       bridge.NewHub(nil),
		Metrics:   metrics,
		BodyLimit: "1K",
		Version:   "test",
	})
}

func TestServerRoutes(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","version":"test"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"prompt":"cats","session_id":"s1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_model_calls_total{operation="generate",status="success"} 1`)
}

func TestServerBodyLimit(t *testing.T) {
	srv := newTestServer(t)

	body := `{"htmlContent":"` + strings.Repeat("x", 2048) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/export-html", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServerUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
