package eodhd

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"fincal/internal/adapters/providers"
	"fincal/internal/adapters/providers/ratelimit"
	"fincal/internal/domain/calendar"
	"fincal/pkg/errors"
)

const (
	// Name identifies EOD Historical Data as an event source
	Name = "eodhd"

	// DefaultBaseURL is the EODHD API root
	DefaultBaseURL = "https://eodhd.com/api"

	// MaxBatch is the observed symbol limit of the earnings calendar endpoint
	MaxBatch = 50
)

// Raw record fields emitted by this client
const (
	FieldCode       = "code"
	FieldTitle      = "title"
	FieldReportDate = "report_date"
	FieldSession    = "before_after_market"
	FieldCurrency   = "currency"
	FieldActual     = "actual"
	FieldEstimate   = "estimate"
)

// Client fetches the upcoming earnings calendar from EODHD
type Client struct {
	http    *providers.HTTPClient
	baseURL string
	apiKey  string
	batch   int
}

// New creates an EODHD client
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
	Type     string         `json:"type"`
	Earnings []earningsItem `json:"earnings"`
}

type earningsItem struct {
	Code              string       `json:"code"`
	ReportDate        string       `json:"report_date"`
	Date              string       `json:"date"`
	BeforeAfterMarket *string      `json:"before_after_market"`
	Currency          *string      `json:"currency"`
	Actual            *json.Number `json:"actual"`
	Estimate          *json.Number `json:"estimate"`
}

// Fetch requests the earnings calendar for every symbol in the batch at once
func (c *Client) Fetch(ctx context.Context, req calendar.FetchRequest) ([]calendar.RawRecord, error) {
	if err := calendar.ValidateFetch(c, req); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return nil, errors.Wrap(errors.ErrProviderUnauthorized, "eodhd: api key not configured")
	}

	titles := make(map[string]string, len(req.Instruments))
	codes := make([]string, 0, len(req.Instruments))
	for _, inst := range req.Instruments {
		code := inst.Alias(Name)
		codes = append(codes, code)
		titles[strings.ToUpper(code)] = inst.Title
	}

	query := url.Values{}
	query.Set("api_token", c.apiKey)
	query.Set("fmt", "json")
	query.Set("from", req.Window.From.Format(calendar.DateLayout))
	query.Set("to", req.Window.To.Format(calendar.DateLayout))
	query.Set("symbols", strings.Join(codes, ","))

	var resp earningsResponse
	if err := c.http.GetJSON(ctx, providers.JoinURL(c.baseURL, "/calendar/earnings"), query, &resp); err != nil {
		return nil, err
	}

	records := make([]calendar.RawRecord, 0, len(resp.Earnings))
	for _, item := range resp.Earnings {
		rec := calendar.NewRawRecord(Name, calendar.KindEarningsReport)
		rec.Set(FieldCode, item.Code)
		rec.Set(FieldTitle, titles[strings.ToUpper(item.Code)])
		rec.Set(FieldReportDate, item.ReportDate)
		rec.Set(FieldSession, deref(item.BeforeAfterMarket))
		rec.Set(FieldCurrency, deref(item.Currency))
		rec.Set(FieldActual, number(item.Actual))
		rec.Set(FieldEstimate, number(item.Estimate))
		records = append(records, rec)
	}
	return records, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func number(n *json.Number) string {
	if n == nil {
		return ""
	}
	return n.String()
}
