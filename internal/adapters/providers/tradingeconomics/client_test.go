package tradingeconomics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fincal/internal/adapters/providers"
	"fincal/internal/domain/calendar"
	"fincal/pkg/errors"
)

func TestClient_Fetch(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		assert.Equal(t, "key", r.URL.Query().Get("c"))
		_, _ = w.Write([]byte(`[
			{"CalendarId":"1","Date":"2025-01-15T13:30:00","Country":"United States","Category":"Inflation Rate",
			 "Event":"Inflation Rate YoY","Actual":"3.1%","Previous":"2.9%","Forecast":"","TEForecast":"3.0%","Currency":"USD"},
			{"CalendarId":"2","Date":"2025-01-16T00:00:00","Country":"United States","Category":"Housing Starts",
			 "Event":"Housing Starts","Actual":"1.4M"}
		]`))
	}))
	defer srv.Close()

	w, err := calendar.ParseWindow("2025-01-01", "2025-01-31")
	require.NoError(t, err)

	c := New(providers.Config{BaseURL: srv.URL, APIKey: "key"}, nil)
	records, err := c.Fetch(context.Background(), calendar.FetchRequest{
		Window: w,
		Instruments: []calendar.Instrument{
			{Key: "CPI", Title: "Consumer Price Index", Country: "US", Currency: "USD",
				Aliases: map[string]string{Name: "Inflation Rate"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "/calendar/country/united%20states/indicator/inflation%20rate/2025-01-01/2025-01-31", gotPath)
	require.Len(t, records, 1, "rows outside the batch are dropped")

	rec := records[0]
	assert.Equal(t, Name, rec.Source)
	for field, want := range map[string]string{
		FieldSeries:   "CPI",
		FieldTitle:    "Inflation Rate YoY",
		FieldDate:     "2025-01-15",
		FieldTime:     "13:30",
		FieldCountry:  "US",
		FieldActual:   "3.1%",
		FieldForecast: "3.0%",
		FieldPrevious: "2.9%",
	} {
		got, ok := rec.Get(field)
		assert.True(t, ok, field)
		assert.Equal(t, want, got, field)
	}
}

func TestClient_Fetch_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	w, _ := calendar.ParseWindow("2025-01-01", "2025-01-31")
	_, err := New(providers.Config{BaseURL: srv.URL, APIKey: "bad"}, nil).Fetch(context.Background(), calendar.FetchRequest{
		Window:      w,
		Instruments: []calendar.Instrument{{Key: "CPI", Country: "US"}},
	})
	assert.True(t, errors.Is(err, errors.ErrProviderUnauthorized))
}

func TestCountryName(t *testing.T) {
	assert.Equal(t, "united states", CountryName("us"))
	assert.Equal(t, "united states", CountryName(""))
	assert.Equal(t, "euro area", CountryName("EA"))
	assert.Equal(t, "brazil", CountryName("Brazil"))
}
