package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fincal/pkg/errors"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusOK, nil},
		{http.StatusNoContent, nil},
		{http.StatusUnauthorized, errors.ErrProviderUnauthorized},
		{http.StatusForbidden, errors.ErrProviderUnauthorized},
		{http.StatusTooManyRequests, errors.ErrProviderRateLimited},
		{http.StatusNotFound, errors.ErrNotFound},
		{http.StatusBadRequest, errors.ErrProviderRejected},
		{http.StatusUnprocessableEntity, errors.ErrProviderRejected},
		{http.StatusMethodNotAllowed, errors.ErrProviderRejected},
		{http.StatusMovedPermanently, errors.ErrProviderMalformed},
		{http.StatusInternalServerError, errors.ErrProviderUnavailable},
		{http.StatusServiceUnavailable, errors.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyStatus(tt.code), "status %d", tt.code)
	}
}

func TestHTTPClient_TransportErrorHidesKey(t *testing.T) {
	c := NewHTTPClient("test", Config{Timeout: time.Second}, nil)

	query := url.Values{}
	query.Set("api_key", "supersecret")

	var out map[string]any
	err := c.GetJSON(context.Background(), "http://127.0.0.1:1/never", query, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrProviderUnavailable))
	assert.NotContains(t, err.Error(), "supersecret")
}

func TestHTTPClient_BadRequestIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":400,"error_message":"Bad Request.  The series does not exist."}`))
	}))
	defer srv.Close()

	c := NewHTTPClient("test", Config{Timeout: time.Second}, nil)

	var out map[string]any
	err := c.GetJSON(context.Background(), srv.URL, nil, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrProviderRejected))
	assert.False(t, errors.Disabling(err), "a refused request must not rule the provider out")

	se, ok := AsStatusError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Contains(t, se.Body, "series does not exist")
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "https://x.io/api/calendar", JoinURL("https://x.io/api/", "calendar"))
	assert.Equal(t, "https://x.io/calendar", JoinURL("https://x.io", "/calendar"))
}

func TestConfig_BatchLimit(t *testing.T) {
	assert.Equal(t, 100, Config{}.BatchLimit(100))
	assert.Equal(t, 20, Config{MaxBatch: 20}.BatchLimit(100))
	assert.Equal(t, 100, Config{MaxBatch: 500}.BatchLimit(100))
}
