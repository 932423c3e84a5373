package eodhd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fincal/internal/adapters/providers"
	"fincal/internal/adapters/providers/retry"
	"fincal/internal/domain/calendar"
	"fincal/pkg/errors"
)

func window(t *testing.T) calendar.Window {
	t.Helper()
	w, err := calendar.ParseWindow("2025-01-27", "2025-02-10")
	require.NoError(t, err)
	return w
}

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendar/earnings", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "token", q.Get("api_token"))
		assert.Equal(t, "AAPL.US,MSFT.US", q.Get("symbols"))
		assert.Equal(t, "2025-01-27", q.Get("from"))
		assert.Equal(t, "2025-02-10", q.Get("to"))

		_, _ = w.Write([]byte(`{"type":"Earnings","earnings":[
			{"code":"AAPL.US","report_date":"2025-01-30","date":"2024-12-31","before_after_market":"AfterMarket","currency":"USD","actual":2.4,"estimate":2.35},
			{"code":"MSFT.US","report_date":"2025-01-29","date":"2024-12-31","before_after_market":null,"currency":"USD","actual":null,"estimate":3.11}
		]}`))
	}))
	defer srv.Close()

	c := New(providers.Config{BaseURL: srv.URL, APIKey: "token"}, nil)
	records, err := c.Fetch(context.Background(), calendar.FetchRequest{
		Window: window(t),
		Instruments: []calendar.Instrument{
			{Key: "AAPL.US", Title: "Apple Inc."},
			{Key: "MSFT.US", Title: "Microsoft Corp."},
		},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	aapl := records[0]
	assert.Equal(t, calendar.KindEarningsReport, aapl.Kind)
	code, _ := aapl.Get(FieldCode)
	assert.Equal(t, "AAPL.US", code)
	title, _ := aapl.Get(FieldTitle)
	assert.Equal(t, "Apple Inc.", title)
	actual, _ := aapl.Get(FieldActual)
	assert.Equal(t, "2.4", actual)

	_, ok := records[1].Get(FieldActual)
	assert.False(t, ok, "null actual is absent")
	_, ok = records[1].Get(FieldSession)
	assert.False(t, ok)
}

func TestClient_Fetch_RateLimitedExhausted(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(providers.Config{
		BaseURL: srv.URL,
		APIKey:  "token",
		Retry:   retry.Config{MaxRetries: 1, InitialDelay: 1, MaxDelay: 1, Strategy: retry.StrategyFixed},
	}, nil)

	_, err := c.Fetch(context.Background(), calendar.FetchRequest{
		Window:      window(t),
		Instruments: []calendar.Instrument{{Key: "AAPL.US"}},
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, errors.Is(err, errors.ErrProviderUnavailable))
	assert.False(t, errors.Disabling(err))
}

func TestClient_MaxBatch(t *testing.T) {
	assert.Equal(t, MaxBatch, New(providers.Config{}, nil).MaxBatch())
	assert.Equal(t, MaxBatch, New(providers.Config{MaxBatch: 500}, nil).MaxBatch())
	assert.Equal(t, 10, New(providers.Config{MaxBatch: 10}, nil).MaxBatch())
}
