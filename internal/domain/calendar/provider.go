package calendar

import (
	"context"
	"strings"
	"sync"

	"fincal/pkg/errors"
)

// RawRecord is one provider row before normalization. Field names are the
// provider's own schema; empty values are treated as absent.
type RawRecord struct {
	Source string
	Kind   Kind
	Fields map[string]string
}

// NewRawRecord creates a raw record with an empty field set
func NewRawRecord(source string, kind Kind) RawRecord {
	return RawRecord{Source: source, Kind: kind, Fields: make(map[string]string)}
}

// Set stores a field, dropping blank values
func (r RawRecord) Set(key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	r.Fields[key] = value
}

// Get returns a trimmed field value and whether it is present
func (r RawRecord) Get(key string) (string, bool) {
	if r.Fields == nil {
		return "", false
	}
	v := strings.TrimSpace(r.Fields[key])
	return v, v != ""
}

// FetchRequest is one pre-chunked provider call
type FetchRequest struct {
	Window      Window
	Instruments []Instrument

	// Cache is shared by the batches of one run and dropped with it; may be nil
	Cache *RunCache
}

// RunCache holds provider responses that every batch of a run can reuse,
// such as a market-wide calendar filtered per batch. It never outlives the
// run that created it. A nil cache stores nothing.
type RunCache struct {
	mu      sync.Mutex
	entries map[string]any
}

// NewRunCache creates an empty run cache
func NewRunCache() *RunCache {
	return &RunCache{entries: make(map[string]any)}
}

// Load returns the value stored under key
func (c *RunCache) Load(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Store saves value under key
func (c *RunCache) Store(key string, value any) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// Keys returns the instrument keys of the request in order
func (r FetchRequest) Keys() []string {
	keys := make([]string, 0, len(r.Instruments))
	for _, inst := range r.Instruments {
		keys = append(keys, inst.Key)
	}
	return keys
}

// Provider fetches raw calendar rows from one external data source.
// Errors wrap exactly one of the provider sentinels in pkg/errors.
type Provider interface {
	Name() string
	Kind() Kind
	// MaxBatch is the largest instrument batch one Fetch accepts
	MaxBatch() int
	Fetch(ctx context.Context, req FetchRequest) ([]RawRecord, error)
}

// ValidateFetch checks a request against a provider's limits
func ValidateFetch(p Provider, req FetchRequest) error {
	if err := req.Window.Validate(); err != nil {
		return err
	}
	if len(req.Instruments) == 0 {
		return errors.NewValidationError("instruments", "batch is empty", 0)
	}
	if max := p.MaxBatch(); max > 0 && len(req.Instruments) > max {
		return errors.NewValidationError("instruments", "batch exceeds provider maximum", len(req.Instruments))
	}
	return nil
}
