package tradingeconomics

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"fincal/internal/adapters/providers"
	"fincal/internal/adapters/providers/ratelimit"
	"fincal/internal/domain/calendar"
	"fincal/pkg/errors"
)

const (
	// Name identifies Trading Economics as an event source
	Name = "tradingeconomics"

	// DefaultBaseURL is the Trading Economics API host
	DefaultBaseURL = "https://api.tradingeconomics.com"

	// MaxBatch bounds the indicator list packed into one request path
	MaxBatch = 100
)

// Raw record fields emitted by this client
const (
	FieldSeries   = "series"
	FieldTitle    = "title"
	FieldDate     = "date"
	FieldTime     = "time"
	FieldCountry  = "country"
	FieldCurrency = "currency"
	FieldActual   = "actual"
	FieldForecast = "forecast"
	FieldPrevious = "previous"
)

// countryNames maps ISO-ish country codes to Trading Economics country names
var countryNames = map[string]string{
	"US": "united states",
	"EA": "euro area",
	"EU": "euro area",
	"GB": "united kingdom",
	"UK": "united kingdom",
	"DE": "germany",
	"FR": "france",
	"JP": "japan",
	"CN": "china",
	"CA": "canada",
	"AU": "australia",
	"CH": "switzerland",
}

// Client fetches the economic calendar from Trading Economics
type Client struct {
	http    *providers.HTTPClient
	baseURL string
	apiKey  string
	batch   int
}

// New creates a Trading Economics client
func New(cfg providers.Config, limiter *ratelimit.Limiter) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		http:    providers.NewHTTPClient(Name, cfg, limiter),
		baseURL: base,
		apiKey:  cfg.APIKey,
		batch:   cfg.BatchLimit(MaxBatch),
	}
}

func (c *Client) Name() string        { return Name }
func (c *Client) Kind() calendar.Kind { return calendar.KindIndicatorRelease }
func (c *Client) MaxBatch() int       { return c.batch }

type calendarEvent struct {
	CalendarID string `json:"CalendarId"`
	Date       string `json:"Date"`
	Country    string `json:"Country"`
	Category   string `json:"Category"`
	Event      string `json:"Event"`
	Actual     string `json:"Actual"`
	Previous   string `json:"Previous"`
	Forecast   string `json:"Forecast"`
	TEForecast string `json:"TEForecast"`
	Currency   string `json:"Currency"`
}

// Fetch requests all batch indicators for the batch countries in one call and
// maps rows back to catalog keys by (country, category).
func (c *Client) Fetch(ctx context.Context, req calendar.FetchRequest) ([]calendar.RawRecord, error) {
	if err := calendar.ValidateFetch(c, req); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return nil, errors.Wrap(errors.ErrProviderUnauthorized, "tradingeconomics: api key not configured")
	}

	index := make(map[string]calendar.Instrument, len(req.Instruments))
	countrySet := make(map[string]struct{})
	indicatorSet := make(map[string]struct{})
	for _, inst := range req.Instruments {
		country := CountryName(inst.Country)
		indicator := strings.ToLower(inst.Alias(Name))
		index[country+"|"+indicator] = inst
		countrySet[country] = struct{}{}
		indicatorSet[indicator] = struct{}{}
	}

	path := "/calendar/country/" + joinEscaped(countrySet) +
		"/indicator/" + joinEscaped(indicatorSet) +
		"/" + req.Window.From.Format(calendar.DateLayout) +
		"/" + req.Window.To.Format(calendar.DateLayout)

	query := url.Values{}
	query.Set("c", c.apiKey)
	query.Set("f", "json")

	var rows []calendarEvent
	if err := c.http.GetJSON(ctx, providers.JoinURL(c.baseURL, path), query, &rows); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	records := make([]calendar.RawRecord, 0, len(rows))
	for _, row := range rows {
		inst, ok := index[strings.ToLower(row.Country)+"|"+strings.ToLower(row.Category)]
		if !ok {
			continue
		}
		records = append(records, toRecord(inst, row))
	}
	return records, nil
}

func toRecord(inst calendar.Instrument, row calendarEvent) calendar.RawRecord {
	rec := calendar.NewRawRecord(Name, calendar.KindIndicatorRelease)
	rec.Set(FieldSeries, inst.Key)

	title := row.Event
	if title == "" {
		title = inst.Title
	}
	rec.Set(FieldTitle, title)

	// Date arrives as 2025-01-15T13:30:00; midnight means the time is not published
	date, clock, _ := strings.Cut(row.Date, "T")
	rec.Set(FieldDate, date)
	if len(clock) >= 5 && clock[:5] != "00:00" {
		rec.Set(FieldTime, clock[:5])
	}

	rec.Set(FieldCountry, inst.Country)
	currency := row.Currency
	if currency == "" {
		currency = inst.Currency
	}
	rec.Set(FieldCurrency, currency)

	rec.Set(FieldActual, row.Actual)
	forecast := row.Forecast
	if forecast == "" {
		forecast = row.TEForecast
	}
	rec.Set(FieldForecast, forecast)
	rec.Set(FieldPrevious, row.Previous)
	return rec
}

// CountryName returns the Trading Economics name for a country code
func CountryName(code string) string {
	if name, ok := countryNames[strings.ToUpper(code)]; ok {
		return name
	}
	if code == "" {
		return countryNames["US"]
	}
	return strings.ToLower(code)
}

func joinEscaped(set map[string]struct{}) string {
	parts := make([]string, 0, len(set))
	for v := range set {
		parts = append(parts, url.PathEscape(v))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
