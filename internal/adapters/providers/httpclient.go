package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"fincal/internal/adapters/providers/ratelimit"
	"fincal/internal/adapters/providers/retry"
	"fincal/internal/metrics"
	"fincal/pkg/errors"
)

const maxBodyBytes = 16 << 20

// Config is the construction-time configuration shared by all provider clients
type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerMinute int
	MaxBatch          int
	Retry             retry.Config
	UserAgent         string
}

// BatchLimit clamps the configured batch size to the provider's documented maximum
func (c Config) BatchLimit(providerMax int) int {
	if c.MaxBatch <= 0 || c.MaxBatch > providerMax {
		return providerMax
	}
	return c.MaxBatch
}

// NewTransportClient builds the pooled http.Client used for provider calls
func NewTransportClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// HTTPClient performs paced, retried JSON GETs and maps failures onto the
// provider error taxonomy.
type HTTPClient struct {
	name      string
	client    *http.Client
	limiter   *ratelimit.Limiter
	retry     *retry.Middleware
	userAgent string
}

// NewHTTPClient creates a client for one provider. limiter may be shared across clients.
func NewHTTPClient(name string, cfg Config, limiter *ratelimit.Limiter) *HTTPClient {
	if limiter == nil {
		limiter = ratelimit.NewLimiter(name, cfg.RequestsPerMinute)
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "fincal/1.0"
	}
	return &HTTPClient{
		name:      name,
		client:    NewTransportClient(cfg.Timeout),
		limiter:   limiter,
		retry:     retry.New(cfg.Retry),
		userAgent: ua,
	}
}

// StatusError carries the HTTP status and the head of the body of a failed provider call
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
	kind       error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Unwrap exposes the provider error class
func (e *StatusError) Unwrap() error {
	return e.kind
}

// AsStatusError extracts the StatusError from a wrapped provider error
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ClassifyStatus maps an HTTP status code to a provider error class, nil for 2xx
func ClassifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errors.ErrProviderUnauthorized
	case code == http.StatusTooManyRequests:
		return errors.ErrProviderRateLimited
	case code == http.StatusNotFound:
		return errors.ErrNotFound
	case code >= 400 && code < 500:
		return errors.ErrProviderRejected
	case code >= 500:
		return errors.ErrProviderUnavailable
	default:
		return errors.ErrProviderMalformed
	}
}

// GetJSON issues a GET against endpoint with query and decodes the body into out
func (c *HTTPClient) GetJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	target := endpoint
	if len(query) > 0 {
		target = endpoint + "?" + query.Encode()
	}

	return c.retry.Do(ctx, func() error {
		return c.getOnce(ctx, target, out)
	})
}

func (c *HTTPClient) getOnce(ctx context.Context, target string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	status := "success"
	defer func() {
		metrics.RecordProviderRequest(c.name, status, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		status = "invalid"
		return errors.Wrapf(errors.ErrInvalidInput, "%s: build request: %v", c.name, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			status = "cancelled"
			return ctx.Err()
		}
		status = "unavailable"
		return errors.Wrapf(errors.ErrProviderUnavailable, "%s: %v", c.name, transportCause(err))
	}
	defer resp.Body.Close()

	if kind := ClassifyStatus(resp.StatusCode); kind != nil {
		status = statusLabel(kind)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Provider: c.name, StatusCode: resp.StatusCode, Body: string(body), kind: kind}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		status = "malformed"
		return errors.Wrapf(errors.ErrProviderMalformed, "%s: decode response: %v", c.name, err)
	}

	return nil
}

// transportCause drops the request URL, which carries the API key, from transport errors
func transportCause(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

func statusLabel(kind error) string {
	switch {
	case errors.Is(kind, errors.ErrProviderUnauthorized):
		return "unauthorized"
	case errors.Is(kind, errors.ErrProviderRateLimited):
		return "rate_limited"
	case errors.Is(kind, errors.ErrNotFound):
		return "not_found"
	case errors.Is(kind, errors.ErrProviderRejected):
		return "rejected"
	case errors.Is(kind, errors.ErrProviderUnavailable):
		return "unavailable"
	default:
		return "malformed"
	}
}

// JoinURL appends path to a base URL without doubling slashes
func JoinURL(base, path string) string {
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	if len(path) > 0 && path[0] != '/' {
		path = "/" + path
	}
	return base + path
}
