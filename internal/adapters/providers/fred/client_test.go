package fred

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fincal/internal/adapters/providers"
	"fincal/internal/domain/calendar"
	"fincal/pkg/errors"
)

func testWindow(t *testing.T) calendar.Window {
	t.Helper()
	w, err := calendar.ParseWindow("2025-01-01", "2025-01-31")
	require.NoError(t, err)
	return w
}

func newTestClient(baseURL, apiKey string) *Client {
	return New(providers.Config{BaseURL: baseURL, APIKey: apiKey, Timeout: 5 * time.Second}, nil)
}

func TestClient_Fetch(t *testing.T) {
	var gotSeries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fred/series/observations", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		assert.Equal(t, "json", r.URL.Query().Get("file_type"))
		assert.Equal(t, "2025-01-31", r.URL.Query().Get("observation_end"))
		gotSeries = append(gotSeries, r.URL.Query().Get("series_id"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"observations":[
			{"date":"2024-12-15","value":"2.9"},
			{"date":"2025-01-15","value":"3.1"},
			{"date":"2025-01-20","value":"."}
		]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "secret")
	records, err := c.Fetch(context.Background(), calendar.FetchRequest{
		Window: testWindow(t),
		Instruments: []calendar.Instrument{
			{Key: "CPI", Title: "Consumer Price Index", Aliases: map[string]string{"fred": "CPIAUCSL"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"CPIAUCSL"}, gotSeries)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, Name, first.Source)
	assert.Equal(t, calendar.KindIndicatorRelease, first.Kind)
	series, _ := first.Get(FieldSeries)
	assert.Equal(t, "CPI", series)
	value, _ := first.Get(FieldValue)
	assert.Equal(t, "3.1", value)
	previous, _ := first.Get(FieldPrevious)
	assert.Equal(t, "2.9", previous)
	country, _ := first.Get(FieldCountry)
	assert.Equal(t, "US", country)

	// "." is FRED's missing marker
	_, ok := records[1].Get(FieldValue)
	assert.False(t, ok)
	previous, _ = records[1].Get(FieldPrevious)
	assert.Equal(t, "3.1", previous)
}

func TestClient_Fetch_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, errors.ErrProviderUnauthorized},
		{"forbidden", http.StatusForbidden, errors.ErrProviderUnauthorized},
		{"server error", http.StatusBadGateway, errors.ErrProviderUnavailable},
		{"bad request", http.StatusBadRequest, errors.ErrProviderRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL, "secret").Fetch(context.Background(), calendar.FetchRequest{
				Window:      testWindow(t),
				Instruments: []calendar.Instrument{{Key: "CPI"}},
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestClient_Fetch_SkipsUnknownSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("series_id") == "NOPE" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"observations":[{"date":"2025-01-10","value":"4.2"}]}`))
	}))
	defer srv.Close()

	records, err := newTestClient(srv.URL, "secret").Fetch(context.Background(), calendar.FetchRequest{
		Window:      testWindow(t),
		Instruments: []calendar.Instrument{{Key: "NOPE"}, {Key: "UNRATE"}},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	series, _ := records[0].Get(FieldSeries)
	assert.Equal(t, "UNRATE", series)
}

func TestClient_Fetch_SkipsSeriesRejectedAsMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("series_id") == "BADID" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error_code":400,"error_message":"Bad Request.  The series does not exist."}`))
			return
		}
		_, _ = w.Write([]byte(`{"observations":[{"date":"2025-01-15","value":"3.1"}]}`))
	}))
	defer srv.Close()

	records, err := newTestClient(srv.URL, "secret").Fetch(context.Background(), calendar.FetchRequest{
		Window:      testWindow(t),
		Instruments: []calendar.Instrument{{Key: "BADID"}, {Key: "CPIAUCSL"}},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	series, _ := records[0].Get(FieldSeries)
	assert.Equal(t, "CPIAUCSL", series)
}

func TestClient_Fetch_OtherBadRequestIsNotDisabling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":400,"error_message":"Bad Request.  Variable observation_start is not a valid date."}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "secret").Fetch(context.Background(), calendar.FetchRequest{
		Window:      testWindow(t),
		Instruments: []calendar.Instrument{{Key: "CPI"}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrProviderRejected))
	assert.False(t, errors.Disabling(err))
}

func TestClient_Fetch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "secret").Fetch(context.Background(), calendar.FetchRequest{
		Window:      testWindow(t),
		Instruments: []calendar.Instrument{{Key: "CPI"}},
	})
	assert.True(t, errors.Is(err, errors.ErrProviderMalformed))
}

func TestClient_Fetch_MissingKey(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:1", "").Fetch(context.Background(), calendar.FetchRequest{
		Window:      testWindow(t),
		Instruments: []calendar.Instrument{{Key: "CPI"}},
	})
	assert.True(t, errors.Is(err, errors.ErrProviderUnauthorized))
}

func TestClient_Fetch_RejectsOversizedBatch(t *testing.T) {
	c := New(providers.Config{APIKey: "k", MaxBatch: 2}, nil)
	assert.Equal(t, 2, c.MaxBatch())

	_, err := c.Fetch(context.Background(), calendar.FetchRequest{
		Window:      testWindow(t),
		Instruments: []calendar.Instrument{{Key: "A"}, {Key: "B"}, {Key: "C"}},
	})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}
