package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func strPtr(s string) *string { return &s }

func TestIndicatorID_Deterministic(t *testing.T) {
	cases := []struct {
		source, series, date string
		want                 string
	}{
		{"fred", "CPI", "2025-01-15", "fred_CPI_2025-01-15"},
		{"fred", "PAYEMS", "2024-12-06", "fred_PAYEMS_2024-12-06"},
		{"tradingeconomics", "GDP", "2025-03-27", "tradingeconomics_GDP_2025-03-27"},
	}

	for _, tc := range cases {
		first := IndicatorID(tc.source, tc.series, day(tc.date))
		second := IndicatorID(tc.source, tc.series, day(tc.date))
		assert.Equal(t, tc.want, first)
		assert.Equal(t, first, second)
	}
}

func TestEarningsID_IgnoresSource(t *testing.T) {
	d := day("2025-02-01")
	assert.Equal(t, "earnings_AAPL.US_2025-02-01", EarningsID("AAPL.US", d))
	assert.Equal(t, EventID(KindEarningsReport, "eodhd", "AAPL.US", d), EventID(KindEarningsReport, "finnhub", "AAPL.US", d))
	assert.NotEqual(t, EventID(KindIndicatorRelease, "fred", "CPI", d), EventID(KindIndicatorRelease, "tradingeconomics", "CPI", d))
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2025-01-15", "2025-01-15T13:30:00", "2025-01-15T13:30:00Z", "2025-01-15 08:00:00"} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, day("2025-01-15"), got, in)
	}

	_, err := ParseDate("15/01/2025")
	assert.Error(t, err)
}

func TestWindowPolicy_Resolve(t *testing.T) {
	now := time.Date(2025, 1, 10, 17, 45, 0, 0, time.UTC)

	w := WindowPolicy{BackDays: 7, ForwardDays: 30}.Resolve(now)
	assert.Equal(t, day("2025-01-03"), w.From)
	assert.Equal(t, day("2025-02-09"), w.To)

	w = WindowPolicy{ForwardMonths: 3}.Resolve(now)
	assert.Equal(t, day("2025-01-10"), w.From)
	assert.Equal(t, day("2025-04-10"), w.To)
}

func TestWindow_ValidateAndSplit(t *testing.T) {
	w, err := ParseWindow("2025-01-01", "2025-01-31")
	require.NoError(t, err)
	assert.Equal(t, 31, w.Days())
	assert.True(t, w.Contains(day("2025-01-31")))
	assert.False(t, w.Contains(day("2025-02-01")))

	parts := w.Split(10)
	require.Len(t, parts, 4)
	assert.Equal(t, day("2025-01-01"), parts[0].From)
	assert.Equal(t, day("2025-01-10"), parts[0].To)
	assert.Equal(t, day("2025-01-31"), parts[3].From)
	assert.Equal(t, day("2025-01-31"), parts[3].To)

	_, err = ParseWindow("2025-02-01", "2025-01-01")
	assert.Error(t, err)
}

func TestWindow_JSON(t *testing.T) {
	w := NewWindow(day("2025-01-01"), day("2025-01-31"))

	data, err := json.Marshal(w)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"2025-01-01","to":"2025-01-31"}`, string(data))
}

func TestParseValue(t *testing.T) {
	cases := map[string]string{
		"3.1":    "3.1",
		"3.2%":   "3.2",
		"199K":   "199000",
		"-1.5M":  "-1500000",
		"$2.4B":  "2400000000",
		"1,234":  "1234",
		" 0.25 ": "0.25",
	}
	for in, want := range cases {
		got, ok := ParseValue(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got.String(), in)
	}

	for _, in := range []string{"", ".", "n/a"} {
		_, ok := ParseValue(in)
		assert.False(t, ok, in)
	}
}

func TestSurprise(t *testing.T) {
	e := CalendarEvent{Actual: strPtr("3.3%"), Forecast: strPtr("3.0%")}
	s, ok := e.Surprise()
	require.True(t, ok)
	assert.Equal(t, "0.1", s.String())

	_, ok = CalendarEvent{Actual: strPtr("1")}.Surprise()
	assert.False(t, ok)

	_, ok = CalendarEvent{Actual: strPtr("1"), Forecast: strPtr("0")}.Surprise()
	assert.False(t, ok)
}

func TestTaxonomy(t *testing.T) {
	assert.True(t, CategoryGeneral.Valid())
	assert.False(t, Category("Sports").Valid())
	assert.True(t, ImportanceMedium.Valid())

	k, ok := ParseKind("Earnings")
	assert.True(t, ok)
	assert.Equal(t, KindEarningsReport, k)
	_, ok = ParseKind("crypto")
	assert.False(t, ok)
}

func TestImportanceAndCategoryShareDisplayCase(t *testing.T) {
	assert.Equal(t, "High", ImportanceHigh.String())
	assert.Equal(t, "Medium", ImportanceMedium.String())
	assert.Equal(t, "Low", ImportanceLow.String())
	assert.False(t, Importance("high").Valid())

	data, err := json.Marshal(CalendarEvent{Importance: ImportanceHigh, Category: CategoryInflation})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"importance":"High"`)
	assert.Contains(t, string(data), `"category":"Inflation"`)
}
