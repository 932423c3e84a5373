package finnhub

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"fincal/internal/adapters/providers"
	"fincal/internal/adapters/providers/ratelimit"
	"fincal/internal/domain/calendar"
	"fincal/pkg/errors"
)

const (
	// Name identifies Finnhub as an event source
	Name = "finnhub"

	// DefaultBaseURL is the Finnhub REST root
	DefaultBaseURL = "https://finnhub.io/api/v1"

	// MaxBatch is nominal: the endpoint returns the whole market and is filtered locally
	MaxBatch = 50

	// maxRangeDays bounds one calendar request; longer ranges come back truncated
	maxRangeDays = 31

	usSuffix = ".US"
)

// Raw record fields emitted by this client
const (
	FieldCode       = "code"
	FieldTitle      = "title"
	FieldReportDate = "report_date"
	FieldHour       = "hour"
	FieldCurrency   = "currency"
	FieldActual     = "actual"
	FieldEstimate   = "estimate"
)

// Client fetches the earnings calendar from Finnhub.
// The full-market response is kept in the request's run cache so the batches
// of one run share one download; every run downloads afresh.
type Client struct {
	http    *providers.HTTPClient
	baseURL string
	apiKey  string
	batch   int
}

// New creates a Finnhub client
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
func (c *Client) Kind() calendar.Kind { return calendar.KindEarningsReport }
func (c *Client) MaxBatch() int       { return c.batch }

type earningsResponse struct {
	EarningsCalendar []earningsItem `json:"earningsCalendar"`
}

type earningsItem struct {
	Date        string   `json:"date"`
	Symbol      string   `json:"symbol"`
	Hour        string   `json:"hour"`
	Quarter     int      `json:"quarter"`
	Year        int      `json:"year"`
	EPSActual   *float64 `json:"epsActual"`
	EPSEstimate *float64 `json:"epsEstimate"`
}

// Fetch returns the rows of the market calendar that belong to the batch,
// keyed by catalog symbol (AAPL becomes AAPL.US).
func (c *Client) Fetch(ctx context.Context, req calendar.FetchRequest) ([]calendar.RawRecord, error) {
	if err := calendar.ValidateFetch(c, req); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return nil, errors.Wrap(errors.ErrProviderUnauthorized, "finnhub: api key not configured")
	}

	rows, err := c.calendar(ctx, req.Window, req.Cache)
	if err != nil {
		return nil, err
	}

	batch := make(map[string]calendar.Instrument, len(req.Instruments))
	for _, inst := range req.Instruments {
		batch[Symbol(inst)] = inst
	}

	var records []calendar.RawRecord
	for _, row := range rows {
		inst, ok := batch[strings.ToUpper(row.Symbol)]
		if !ok {
			continue
		}

		rec := calendar.NewRawRecord(Name, calendar.KindEarningsReport)
		rec.Set(FieldCode, inst.Key)
		rec.Set(FieldTitle, inst.Title)
		rec.Set(FieldReportDate, row.Date)
		rec.Set(FieldHour, row.Hour)
		rec.Set(FieldCurrency, inst.Currency)
		rec.Set(FieldActual, formatFloat(row.EPSActual))
		rec.Set(FieldEstimate, formatFloat(row.EPSEstimate))
		records = append(records, rec)
	}
	return records, nil
}

func (c *Client) calendar(ctx context.Context, window calendar.Window, cache *calendar.RunCache) ([]earningsItem, error) {
	key := Name + ":" + window.String()
	if v, ok := cache.Load(key); ok {
		return v.([]earningsItem), nil
	}

	rows := []earningsItem{}
	for _, part := range window.Split(maxRangeDays) {
		query := url.Values{}
		query.Set("from", part.From.Format(calendar.DateLayout))
		query.Set("to", part.To.Format(calendar.DateLayout))
		query.Set("token", c.apiKey)

		var resp earningsResponse
		if err := c.http.GetJSON(ctx, providers.JoinURL(c.baseURL, "/calendar/earnings"), query, &resp); err != nil {
			return nil, err
		}
		rows = append(rows, resp.EarningsCalendar...)
	}

	cache.Store(key, rows)
	return rows, nil
}

// Symbol returns the Finnhub ticker for a catalog instrument
func Symbol(inst calendar.Instrument) string {
	if alias, ok := inst.Aliases[Name]; ok && alias != "" {
		return strings.ToUpper(alias)
	}
	return strings.ToUpper(strings.TrimSuffix(inst.Key, usSuffix))
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
