package testsupport

import (
	"time"

	"fincal/internal/domain/calendar"
)

// CalendarEventFixture provides builder pattern for creating test calendar events
type CalendarEventFixture struct {
	event calendar.CalendarEvent
}

// NewIndicatorFixture creates a default CPI release from fred dated today
func NewIndicatorFixture() *CalendarEventFixture {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	actual, previous := "3.2", "3.4"
	f := &CalendarEventFixture{
		event: calendar.CalendarEvent{
			Kind:           calendar.KindIndicatorRelease,
			SeriesOrSymbol: "CPIAUCSL",
			Title:          "Consumer Price Index",
			Date:           today,
			Country:        "US",
			Currency:       "USD",
			Importance:     calendar.ImportanceHigh,
			Category:       calendar.CategoryInflation,
			Actual:         &actual,
			Previous:       &previous,
			Source:         "fred",
			UpdatedAt:      time.Now().UTC().Truncate(time.Millisecond),
		},
	}
	return f.withID()
}

// NewEarningsFixture creates a default AAPL earnings report dated today
func NewEarningsFixture() *CalendarEventFixture {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	estimate := "1.52"
	f := &CalendarEventFixture{
		event: calendar.CalendarEvent{
			Kind:           calendar.KindEarningsReport,
			SeriesOrSymbol: "AAPL.US",
			Title:          "Apple Inc. Earnings",
			Date:           today,
			Country:        "US",
			Currency:       "USD",
			Importance:     calendar.ImportanceMedium,
			Category:       calendar.CategoryEarnings,
			Forecast:       &estimate,
			Source:         "eodhd",
			UpdatedAt:      time.Now().UTC().Truncate(time.Millisecond),
		},
	}
	return f.withID()
}

// WithSeries sets the series or symbol and rederives the id
func (f *CalendarEventFixture) WithSeries(series string) *CalendarEventFixture {
	f.event.SeriesOrSymbol = series
	return f.withID()
}

// WithDate sets the event date and rederives the id
func (f *CalendarEventFixture) WithDate(date time.Time) *CalendarEventFixture {
	f.event.Date = date.UTC().Truncate(24 * time.Hour)
	return f.withID()
}

// WithSource sets the source and rederives the id
func (f *CalendarEventFixture) WithSource(source string) *CalendarEventFixture {
	f.event.Source = source
	return f.withID()
}

// WithActual sets the actual value
func (f *CalendarEventFixture) WithActual(actual string) *CalendarEventFixture {
	f.event.Actual = &actual
	return f
}

// WithUpdatedAt sets the write timestamp
func (f *CalendarEventFixture) WithUpdatedAt(at time.Time) *CalendarEventFixture {
	f.event.UpdatedAt = at.UTC().Truncate(time.Millisecond)
	return f
}

// Build returns the event
func (f *CalendarEventFixture) Build() calendar.CalendarEvent {
	return f.event
}

func (f *CalendarEventFixture) withID() *CalendarEventFixture {
	f.event.ID = calendar.EventID(f.event.Kind, f.event.Source, f.event.SeriesOrSymbol, f.event.Date)
	return f
}
