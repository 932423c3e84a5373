package calendar

import (
	"strings"
	"time"

	"fincal/internal/domain/calendar"
	"fincal/pkg/logger"
)

const earningsMarketSuffix = ".US"

// fieldSchema lists, per canonical attribute, the raw field names to try in order
type fieldSchema struct {
	key      []string
	date     []string
	time     []string
	title    []string
	actual   []string
	forecast []string
	previous []string
	country  []string
	currency []string
}

var schemas = map[calendar.Kind]fieldSchema{
	calendar.KindIndicatorRelease: {
		key:      []string{"series", "series_id", "indicator"},
		date:     []string{"date", "release_date"},
		time:     []string{"time"},
		title:    []string{"title", "event"},
		actual:   []string{"actual", "value"},
		forecast: []string{"forecast", "consensus"},
		previous: []string{"previous", "prior"},
		country:  []string{"country"},
		currency: []string{"currency"},
	},
	calendar.KindEarningsReport: {
		key:      []string{"code", "symbol"},
		date:     []string{"report_date", "date"},
		time:     []string{"time"},
		title:    []string{"title", "name"},
		actual:   []string{"actual", "eps_actual"},
		forecast: []string{"estimate", "forecast", "eps_estimate"},
		previous: []string{"previous"},
	},
}

// SkipReason explains why a raw record produced no event
type SkipReason string

const (
	SkipMissingKey    SkipReason = "missing key"
	SkipMissingDate   SkipReason = "missing date"
	SkipBadDate       SkipReason = "unparseable date"
	SkipUnknownKind   SkipReason = "unknown kind"
	SkipForeignMarket SkipReason = "non-US listing"
)

// Normalizer maps provider rows into CalendarEvents
type Normalizer struct {
	log *logger.Logger
}

// NewNormalizer creates a normalizer
func NewNormalizer(log *logger.Logger) *Normalizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Normalizer{log: log}
}

// Normalize converts one raw record. A record failing the shape check is
// skipped with a reason, never an error.
func (n *Normalizer) Normalize(rec calendar.RawRecord) (calendar.CalendarEvent, SkipReason, bool) {
	schema, ok := schemas[rec.Kind]
	if !ok {
		return calendar.CalendarEvent{}, SkipUnknownKind, false
	}

	key, ok := first(rec, schema.key)
	if !ok {
		return calendar.CalendarEvent{}, SkipMissingKey, false
	}
	rawDate, ok := first(rec, schema.date)
	if !ok {
		return calendar.CalendarEvent{}, SkipMissingDate, false
	}
	date, err := calendar.ParseDate(rawDate)
	if err != nil {
		return calendar.CalendarEvent{}, SkipBadDate, false
	}

	event := calendar.CalendarEvent{
		Kind:     rec.Kind,
		Date:     date,
		Time:     clockTime(rec, schema.time),
		Actual:   optional(rec, schema.actual),
		Forecast: optional(rec, schema.forecast),
		Previous: optional(rec, schema.previous),
		Source:   rec.Source,
	}
	title, _ := first(rec, schema.title)

	switch rec.Kind {
	case calendar.KindEarningsReport:
		symbol := strings.ToUpper(key)
		if !strings.HasSuffix(symbol, earningsMarketSuffix) {
			return calendar.CalendarEvent{}, SkipForeignMarket, false
		}
		event.SeriesOrSymbol = symbol
		event.Country = "US"
		event.Currency = "USD"
		if title == "" {
			title = symbol
		}
		event.Title = title + " Earnings"

	default:
		event.SeriesOrSymbol = key
		event.Country, _ = first(rec, schema.country)
		event.Currency, _ = first(rec, schema.currency)
		if title == "" {
			title = key
		}
		event.Title = title
	}

	event.ID = calendar.EventID(event.Kind, event.Source, event.SeriesOrSymbol, event.Date)
	return event, "", true
}

// NormalizeAll converts a slice, returning events and the number skipped
func (n *Normalizer) NormalizeAll(records []calendar.RawRecord) ([]calendar.CalendarEvent, int) {
	events := make([]calendar.CalendarEvent, 0, len(records))
	skipped := 0
	for _, rec := range records {
		event, reason, ok := n.Normalize(rec)
		if !ok {
			skipped++
			n.log.Debugw("Skipping raw record", "source", rec.Source, "reason", string(reason), "fields", rec.Fields)
			continue
		}
		events = append(events, event)
	}
	return events, skipped
}

func first(rec calendar.RawRecord, names []string) (string, bool) {
	for _, name := range names {
		if v, ok := rec.Get(name); ok {
			return v, true
		}
	}
	return "", false
}

func optional(rec calendar.RawRecord, names []string) *string {
	v, ok := first(rec, names)
	if !ok {
		return nil
	}
	return &v
}

// clockTime accepts HH:MM or HH:MM:SS and renders HH:MM; anything else is unknown
func clockTime(rec calendar.RawRecord, names []string) *string {
	raw, ok := first(rec, names)
	if !ok {
		return nil
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			s := t.Format("15:04")
			return &s
		}
	}
	return nil
}
