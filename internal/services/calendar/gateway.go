package calendar

import (
	"context"
	"time"

	"fincal/internal/domain/calendar"
	"fincal/pkg/errors"
	"fincal/pkg/logger"
)

// GatewayConfig bounds store calls
type GatewayConfig struct {
	BatchSize  int           // events per store call
	Timeout    time.Duration // per store call
	Retries    int           // extra attempts for a store call that fails outright
	RetryDelay time.Duration
}

// DefaultGatewayConfig returns the store limits used when config leaves them unset
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		BatchSize:  200,
		Timeout:    15 * time.Second,
		Retries:    1,
		RetryDelay: time.Second,
	}
}

// FailedEvent is an event the store did not accept
type FailedEvent struct {
	Event calendar.CalendarEvent
	Err   error
}

// UpsertResult is the outcome of one Gateway.Upsert
type UpsertResult struct {
	Written      []calendar.CalendarEvent
	Failed       []FailedEvent
	ChunksFailed int
}

// Gateway is the only writer of calendar events. It chunks writes, stamps
// UpdatedAt and contains failures per record.
type Gateway struct {
	repo calendar.Repository
	cfg  GatewayConfig
	now  func() time.Time
	log  *logger.Logger
}

// NewGateway creates a store gateway
func NewGateway(repo calendar.Repository, cfg GatewayConfig, log *logger.Logger) *Gateway {
	def := DefaultGatewayConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Gateway{repo: repo, cfg: cfg, now: time.Now, log: log}
}

// Upsert writes events in chunks. A record failure never stops the remaining
// records; a chunk whose store call fails outright is retried, then reported
// as failed in full.
func (g *Gateway) Upsert(ctx context.Context, events []calendar.CalendarEvent) UpsertResult {
	var result UpsertResult
	if len(events) == 0 {
		return result
	}

	stamp := g.now().UTC()
	for start := 0; start < len(events); start += g.cfg.BatchSize {
		end := min(start+g.cfg.BatchSize, len(events))

		chunk := make([]calendar.CalendarEvent, end-start)
		copy(chunk, events[start:end])
		for i := range chunk {
			chunk[i].UpdatedAt = stamp
		}

		recordErrs, err := g.upsertChunk(ctx, chunk)
		if err != nil {
			g.log.Errorw("Store call failed for chunk",
				"events", len(chunk),
				"attempts", g.cfg.Retries+1,
				"error", err,
			)
			result.ChunksFailed++
			for _, e := range chunk {
				result.Failed = append(result.Failed, FailedEvent{Event: e, Err: err})
			}
			continue
		}

		failedByID := make(map[string]error, len(recordErrs))
		for _, re := range recordErrs {
			failedByID[re.ID] = re.Err
		}
		for _, e := range chunk {
			if ferr, ok := failedByID[e.ID]; ok {
				result.Failed = append(result.Failed, FailedEvent{
					Event: e,
					Err:   errors.Join(errors.ErrStorageWrite, ferr),
				})
				continue
			}
			result.Written = append(result.Written, e)
		}
	}

	return result
}

func (g *Gateway) upsertChunk(ctx context.Context, chunk []calendar.CalendarEvent) ([]calendar.RecordError, error) {
	var lastErr error
	for attempt := 0; attempt <= g.cfg.Retries; attempt++ {
		if attempt > 0 && g.cfg.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Join(errors.ErrStorageWrite, ctx.Err())
			case <-time.After(g.cfg.RetryDelay):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		recordErrs, err := g.repo.UpsertEvents(callCtx, chunk)
		cancel()
		if err == nil {
			return recordErrs, nil
		}

		lastErr = err
		g.log.Warnw("Store call failed", "attempt", attempt+1, "events", len(chunk), "error", err)
	}
	return nil, errors.Join(errors.ErrStorageWrite, lastErr)
}
