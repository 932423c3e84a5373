package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fincal/pkg/errors"
	"fincal/pkg/logger"
)

func ok(context.Context) error   { return nil }
func down(context.Context) error { return errors.ErrUnavailable }

func decode(t *testing.T, rec *httptest.ResponseRecorder) HealthStatus {
	t.Helper()
	var status HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	return status
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]Checker
		wantCode   int
		wantStatus string
	}{
		{"all healthy", map[string]Checker{"postgres": ok, "redis": ok}, http.StatusOK, "healthy"},
		{"one down", map[string]Checker{"postgres": ok, "redis": down}, http.StatusOK, "degraded"},
		{"all down", map[string]Checker{"postgres": down, "redis": down}, http.StatusServiceUnavailable, "unhealthy"},
		{"nothing configured", map[string]Checker{}, http.StatusOK, "healthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(logger.Nop(), tt.checks, "fincal", "test")
			rec := httptest.NewRecorder()

			h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			status := decode(t, rec)
			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Len(t, status.Checks, len(tt.checks))
		})
	}
}

func TestHandleReadiness_FailsOnAnyDown(t *testing.T) {
	h := New(logger.Nop(), map[string]Checker{"postgres": ok, "clickhouse": down}, "fincal", "test")
	rec := httptest.NewRecorder()

	h.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	status := decode(t, rec)
	assert.Equal(t, "unhealthy", status.Checks["clickhouse"].Status)
	assert.Equal(t, "healthy", status.Checks["postgres"].Status)
}

func TestHandleLiveness(t *testing.T) {
	h := New(logger.Nop(), nil, "fincal", "test")
	rec := httptest.NewRecorder()

	h.HandleLiveness(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}
