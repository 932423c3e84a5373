package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"fincal/internal/api/admin"
	"fincal/internal/api/health"
	"fincal/internal/metrics"
	"fincal/pkg/logger"
)

func TestNewMux_Routes(t *testing.T) {
	metrics.Init()
	h := health.New(logger.Nop(), nil, "fincal", "test")
	mux := NewMux(ServerConfig{ServiceName: "fincal", Version: "test"}, h, logger.Nop())

	for _, path := range []string{"/", "/live", "/health", "/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewMux_AdminNeedsToken(t *testing.T) {
	h := health.New(logger.Nop(), nil, "fincal", "test")
	adminHandler := admin.NewHandler(nil, logger.Nop())

	withoutToken := NewMux(ServerConfig{Admin: adminHandler}, h, logger.Nop())
	rec := httptest.NewRecorder()
	withoutToken.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/runs", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	withToken := NewMux(ServerConfig{Admin: adminHandler, AdminToken: "t"}, h, logger.Nop())
	rec = httptest.NewRecorder()
	withToken.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/runs", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
