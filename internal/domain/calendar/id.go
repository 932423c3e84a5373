package calendar

import (
	"time"
)

const earningsIDPrefix = "earnings"

// IndicatorID derives the stable identity of an indicator release.
// The source is part of the id, so a fallback provider writes a parallel lineage.
func IndicatorID(source, series string, date time.Time) string {
	return source + "_" + series + "_" + date.Format(DateLayout)
}

// EarningsID derives the stable identity of an earnings report from symbol and report date only.
func EarningsID(symbol string, reportDate time.Time) string {
	return earningsIDPrefix + "_" + symbol + "_" + reportDate.Format(DateLayout)
}

// EventID dispatches to the id function for kind
func EventID(kind Kind, source, seriesOrSymbol string, date time.Time) string {
	if kind == KindEarningsReport {
		return EarningsID(seriesOrSymbol, date)
	}
	return IndicatorID(source, seriesOrSymbol, date)
}

// ParseDate parses a provider date, accepting plain dates and datetimes.
// The result is truncated to a UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	layouts := []string{DateLayout, "2006-01-02T15:04:05", time.RFC3339, "2006-01-02 15:04:05"}

	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
