package fred

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"fincal/internal/adapters/providers"
	"fincal/internal/adapters/providers/ratelimit"
	"fincal/internal/domain/calendar"
	"fincal/pkg/errors"
	"fincal/pkg/logger"
)

const (
	// Name identifies FRED as an event source
	Name = "fred"

	// DefaultBaseURL is the public FRED API host
	DefaultBaseURL = "https://api.stlouisfed.org"

	// MaxBatch is the number of series one fetch may cover
	MaxBatch = 100

	// lookbackMonths covers the observation preceding the window so the first
	// in-window release still carries a previous value
	lookbackMonths = 13

	missingValue = "."
)

// Raw record fields emitted by this client
const (
	FieldSeries   = "series"
	FieldTitle    = "title"
	FieldDate     = "date"
	FieldValue    = "value"
	FieldPrevious = "previous"
	FieldCountry  = "country"
	FieldCurrency = "currency"
)

// Client fetches series observations from the St. Louis Fed API
type Client struct {
	http    *providers.HTTPClient
	baseURL string
	apiKey  string
	batch   int
	log     *logger.Logger
}

// New creates a FRED client
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
		log:     logger.Get().With("component", "provider", "provider", Name),
	}
}

func (c *Client) Name() string        { return Name }
func (c *Client) Kind() calendar.Kind { return calendar.KindIndicatorRelease }
func (c *Client) MaxBatch() int       { return c.batch }

type observationsResponse struct {
	Observations []observation `json:"observations"`
}

type observation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

// Fetch issues one observations request per series in the batch
func (c *Client) Fetch(ctx context.Context, req calendar.FetchRequest) ([]calendar.RawRecord, error) {
	if err := calendar.ValidateFetch(c, req); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return nil, errors.Wrap(errors.ErrProviderUnauthorized, "fred: api key not configured")
	}

	var records []calendar.RawRecord
	for _, inst := range req.Instruments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		obs, err := c.observations(ctx, inst.Alias(Name), req.Window)
		if unknownSeries(err) {
			// Unknown series ids are a catalog problem, not a provider failure
			c.log.Warnw("Series not found", "series", inst.Key, "alias", inst.Alias(Name), "error", err)
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "fred series %s", inst.Key)
		}

		records = append(records, c.toRecords(inst, obs, req.Window)...)
	}

	return records, nil
}

func (c *Client) observations(ctx context.Context, seriesID string, window calendar.Window) ([]observation, error) {
	query := url.Values{}
	query.Set("series_id", seriesID)
	query.Set("api_key", c.apiKey)
	query.Set("file_type", "json")
	query.Set("sort_order", "asc")
	query.Set("observation_start", window.From.AddDate(0, -lookbackMonths, 0).Format(calendar.DateLayout))
	query.Set("observation_end", window.To.Format(calendar.DateLayout))

	var resp observationsResponse
	if err := c.http.GetJSON(ctx, providers.JoinURL(c.baseURL, "/fred/series/observations"), query, &resp); err != nil {
		return nil, err
	}

	obs := resp.Observations
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Date < obs[j].Date })
	return obs, nil
}

// unknownSeries reports a missing series: FRED answers 400 with
// "The series does not exist." rather than 404
func unknownSeries(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errors.ErrNotFound) {
		return true
	}
	se, ok := providers.AsStatusError(err)
	return ok && se.StatusCode == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(se.Body), "series does not exist")
}

func (c *Client) toRecords(inst calendar.Instrument, obs []observation, window calendar.Window) []calendar.RawRecord {
	country := inst.Country
	if country == "" {
		country = "US"
	}
	currency := inst.Currency
	if currency == "" {
		currency = "USD"
	}

	var (
		records  []calendar.RawRecord
		previous string
	)
	for _, o := range obs {
		value := o.Value
		if value == missingValue {
			value = ""
		}

		day, err := calendar.ParseDate(o.Date)
		if err == nil && window.Contains(day) {
			rec := calendar.NewRawRecord(Name, calendar.KindIndicatorRelease)
			rec.Set(FieldSeries, inst.Key)
			rec.Set(FieldTitle, inst.Title)
			rec.Set(FieldDate, o.Date)
			rec.Set(FieldValue, value)
			rec.Set(FieldPrevious, previous)
			rec.Set(FieldCountry, country)
			rec.Set(FieldCurrency, currency)
			records = append(records, rec)
		}

		if value != "" {
			previous = value
		}
	}
	return records
}
