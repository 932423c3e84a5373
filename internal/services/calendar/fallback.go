package calendar

import (
	"context"
	"time"

	"fincal/internal/domain/calendar"
	"fincal/internal/metrics"
	"fincal/pkg/errors"
	"fincal/pkg/logger"
)

const noProvider = "none"

// Cascade runs a priority-ordered provider chain for one run.
//
// Until a provider returns a non-empty result, every batch walks the chain in
// order, falling through on error or on an empty response. The first provider
// to yield records is committed and serves every later batch alone, so the
// store only receives one source per run. Unauthorized and malformed
// responses disable a provider for the rest of the run. Each provider call
// gets its own deadline, so a stalled primary still leaves the next provider
// time to answer.
type Cascade struct {
	kind        calendar.Kind
	providers   []calendar.Provider
	callTimeout time.Duration

	committed   string
	disabled    map[string]error
	transitions []calendar.Transition

	log *logger.Logger
}

// NewCascade creates a run-scoped cascade over providers, highest priority first
func NewCascade(kind calendar.Kind, providers []calendar.Provider, log *logger.Logger) *Cascade {
	if log == nil {
		log = logger.Nop()
	}
	return &Cascade{
		kind:      kind,
		providers: providers,
		disabled:  make(map[string]error),
		log:       log,
	}
}

// WithCallTimeout bounds every provider call; zero leaves calls bounded by the parent context only
func (c *Cascade) WithCallTimeout(d time.Duration) *Cascade {
	c.callTimeout = d
	return c
}

// Committed returns the provider serving this run, empty until one yields records
func (c *Cascade) Committed() string {
	return c.committed
}

// Transitions returns every fallback step taken so far
func (c *Cascade) Transitions() []calendar.Transition {
	out := make([]calendar.Transition, len(c.transitions))
	copy(out, c.transitions)
	return out
}

// Fetch serves one batch. It returns the provider name used and its records.
// A nil error with no records means every candidate answered empty.
// ErrRunFatal and ErrNoProvider mean no later batch can succeed either.
func (c *Cascade) Fetch(ctx context.Context, batch int, req calendar.FetchRequest) (string, []calendar.RawRecord, error) {
	candidates := c.candidates()
	if len(candidates) == 0 {
		return "", nil, c.exhausted()
	}

	var lastErr error
	for i, p := range candidates {
		records, err := c.call(ctx, p, req)
		if ctx.Err() != nil {
			return p.Name(), nil, ctx.Err()
		}

		next := noProvider
		if i+1 < len(candidates) {
			next = candidates[i+1].Name()
		}

		if err != nil {
			lastErr = errors.Wrapf(err, "batch %d via %s", batch, p.Name())
			if errors.Disabling(err) {
				c.disabled[p.Name()] = err
				c.log.Warnw("Provider disabled for run",
					"provider", p.Name(),
					"kind", c.kind,
					"error", err,
				)
			}
			if c.committed == "" {
				c.transition(batch, p.Name(), next, err.Error())
			}
			continue
		}

		if len(records) == 0 {
			if c.committed == "" {
				c.transition(batch, p.Name(), next, "empty response")
			}
			continue
		}

		if c.committed == "" {
			c.committed = p.Name()
			c.log.Infow("Provider committed for run", "provider", p.Name(), "kind", c.kind, "batch", batch)
		}
		return p.Name(), records, nil
	}

	if len(c.candidates()) == 0 {
		return "", nil, errors.Join(c.exhausted(), lastErr)
	}
	if lastErr != nil {
		return "", nil, lastErr
	}
	return "", nil, nil
}

// call runs one provider under its own deadline. Running out of that deadline
// is reported as the provider being unavailable, not as run cancellation.
func (c *Cascade) call(ctx context.Context, p calendar.Provider, req calendar.FetchRequest) ([]calendar.RawRecord, error) {
	if c.callTimeout <= 0 {
		return p.Fetch(ctx, req)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	records, err := p.Fetch(callCtx, req)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return nil, errors.Wrapf(errors.ErrProviderUnavailable, "%s: no answer within %s", p.Name(), c.callTimeout)
	}
	return records, err
}

// candidates is the committed provider alone, or every enabled provider in order
func (c *Cascade) candidates() []calendar.Provider {
	out := make([]calendar.Provider, 0, len(c.providers))
	for _, p := range c.providers {
		if _, off := c.disabled[p.Name()]; off {
			continue
		}
		if c.committed != "" && p.Name() != c.committed {
			continue
		}
		out = append(out, p)
	}
	return out
}

// exhausted classifies a chain with nothing left: all unauthorized is a
// configuration problem, anything else just leaves the run without a source
func (c *Cascade) exhausted() error {
	if len(c.providers) == 0 {
		return errors.Wrapf(errors.ErrRunFatal, "no providers configured for %s", c.kind)
	}

	allUnauthorized := len(c.disabled) == len(c.providers)
	for _, err := range c.disabled {
		if !errors.Is(err, errors.ErrProviderUnauthorized) {
			allUnauthorized = false
			break
		}
	}
	if allUnauthorized {
		return errors.Wrapf(errors.ErrRunFatal, "every %s provider rejected credentials", c.kind)
	}
	return errors.Wrapf(errors.ErrNoProvider, "%s chain exhausted", c.kind)
}

func (c *Cascade) transition(batch int, from, to, reason string) {
	c.transitions = append(c.transitions, calendar.Transition{
		Batch:  batch,
		From:   from,
		To:     to,
		Reason: reason,
	})
	metrics.RecordFallback(string(c.kind), from, to)
	c.log.Infow("Provider fallback",
		"kind", c.kind,
		"batch", batch,
		"from", from,
		"to", to,
		"reason", reason,
	)
}
