package calendar

import (
	"strings"
	"time"
)

// DateLayout is the wire and storage format for event dates
const DateLayout = "2006-01-02"

// CalendarEvent is the canonical unit for both indicator releases and earnings reports.
// Values are treated as immutable once built; pipeline stages copy instead of mutating.
type CalendarEvent struct {
	ID             string    `db:"id" json:"id"`
	Kind           Kind      `db:"kind" json:"kind"`
	SeriesOrSymbol string    `db:"series_or_symbol" json:"seriesOrSymbol"`
	Title          string    `db:"title" json:"title"`
	Date           time.Time `db:"event_date" json:"date"`
	Time           *string   `db:"event_time" json:"time,omitempty"` // "15:04", nil when unknown
	Country        string    `db:"country" json:"country"`
	Currency       string    `db:"currency" json:"currency"`

	Importance Importance `db:"importance" json:"importance"`
	Category   Category   `db:"category" json:"category"`

	// Raw numeric-as-text values, providers disagree on units and formats
	Actual   *string `db:"actual" json:"actual,omitempty"`
	Forecast *string `db:"forecast" json:"forecast,omitempty"`
	Previous *string `db:"previous" json:"previous,omitempty"`

	Source    string    `db:"source" json:"source"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// DateString returns the event date in DateLayout
func (e CalendarEvent) DateString() string {
	return e.Date.Format(DateLayout)
}

// Kind distinguishes indicator releases from earnings reports
type Kind string

const (
	KindIndicatorRelease Kind = "indicator"
	KindEarningsReport   Kind = "earnings"
)

// Valid checks if kind is valid
func (k Kind) Valid() bool {
	switch k {
	case KindIndicatorRelease, KindEarningsReport:
		return true
	}
	return false
}

// String returns string representation
func (k Kind) String() string {
	return string(k)
}

// ParseKind accepts the canonical names plus a few operator-friendly aliases
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "indicator", "indicators", "indicatorrelease", "economic":
		return KindIndicatorRelease, true
	case "earnings", "earningsreport":
		return KindEarningsReport, true
	}
	return "", false
}

// Importance is assigned by the classifier, never by a provider
type Importance string

const (
	ImportanceLow    Importance = "Low"
	ImportanceMedium Importance = "Medium"
	ImportanceHigh   Importance = "High"
)

// Valid checks if importance is valid
func (i Importance) Valid() bool {
	switch i {
	case ImportanceLow, ImportanceMedium, ImportanceHigh:
		return true
	}
	return false
}

// String returns string representation
func (i Importance) String() string {
	return string(i)
}

// Category is one entry of the fixed event taxonomy
type Category string

const (
	CategoryInflation      Category = "Inflation"
	CategoryEmployment     Category = "Employment"
	CategoryGrowth         Category = "Growth"
	CategoryMonetaryPolicy Category = "Monetary Policy"
	CategoryConsumption    Category = "Consumption"
	CategoryHousing        Category = "Housing"
	CategoryTrade          Category = "Trade"
	CategoryCapitalMarkets Category = "Capital Markets"
	CategoryEnergy         Category = "Energy"
	CategoryEarnings       Category = "Earnings"
	CategoryGeneral        Category = "General"
)

// Categories lists the taxonomy in display order
var Categories = []Category{
	CategoryInflation, CategoryEmployment, CategoryGrowth, CategoryMonetaryPolicy,
	CategoryConsumption, CategoryHousing, CategoryTrade, CategoryCapitalMarkets,
	CategoryEnergy, CategoryEarnings, CategoryGeneral,
}

// Valid checks if category belongs to the taxonomy
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// String returns string representation
func (c Category) String() string {
	return string(c)
}
