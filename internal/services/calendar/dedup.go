package calendar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"fincal/internal/domain/calendar"
	"fincal/pkg/logger"
)

// FingerprintStore remembers content fingerprints of persisted events across runs
type FingerprintStore interface {
	// Matching returns the ids whose stored fingerprint equals the given one
	Matching(ctx context.Context, fingerprints map[string]string) (map[string]bool, error)
	// Remember stores fingerprints for ids that were written
	Remember(ctx context.Context, fingerprints map[string]string) error
}

// Dedupe collapses events sharing an id. The last occurrence wins and keeps the
// position of the first occurrence so output order stays stable.
func Dedupe(events []calendar.CalendarEvent) ([]calendar.CalendarEvent, int) {
	index := make(map[string]int, len(events))
	out := make([]calendar.CalendarEvent, 0, len(events))
	for _, e := range events {
		if i, ok := index[e.ID]; ok {
			out[i] = e
			continue
		}
		index[e.ID] = len(out)
		out = append(out, e)
	}
	return out, len(events) - len(out)
}

// Fingerprint hashes every field an upsert would overwrite, except UpdatedAt
func Fingerprint(e calendar.CalendarEvent) string {
	parts := []string{
		e.ID, string(e.Kind), e.SeriesOrSymbol, e.Title, e.DateString(), deref(e.Time),
		e.Country, e.Currency, string(e.Importance), string(e.Category),
		deref(e.Actual), deref(e.Forecast), deref(e.Previous), e.Source,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

func deref(s *string) string {
	if s == nil {
		return "\x00"
	}
	return *s
}

// RunDeduplicator tracks what one run has already written so that later batches
// and later runs skip unchanged events. It is not safe for concurrent use.
type RunDeduplicator struct {
	store   FingerprintStore
	written map[string]string
	log     *logger.Logger
}

// NewRunDeduplicator starts a dedup session; store may be nil to disable cross-run checks
func NewRunDeduplicator(store FingerprintStore, log *logger.Logger) *RunDeduplicator {
	if log == nil {
		log = logger.Nop()
	}
	return &RunDeduplicator{
		store:   store,
		written: make(map[string]string),
		log:     log,
	}
}

// Filter collapses in-batch duplicates, then drops events identical to what this
// run or a recent run already wrote. It returns survivors and the number dropped.
func (d *RunDeduplicator) Filter(ctx context.Context, events []calendar.CalendarEvent) ([]calendar.CalendarEvent, int) {
	collapsed, dropped := Dedupe(events)

	fingerprints := make(map[string]string, len(collapsed))
	pending := make([]calendar.CalendarEvent, 0, len(collapsed))
	for _, e := range collapsed {
		fp := Fingerprint(e)
		if d.written[e.ID] == fp {
			dropped++
			continue
		}
		fingerprints[e.ID] = fp
		pending = append(pending, e)
	}

	if d.store == nil || len(pending) == 0 {
		return pending, dropped
	}

	unchanged, err := d.store.Matching(ctx, fingerprints)
	if err != nil {
		// Without the store every event is treated as changed; upserts are idempotent
		d.log.Warnw("Fingerprint lookup failed, skipping cross-run dedup", "error", err)
		return pending, dropped
	}

	out := pending[:0]
	for _, e := range pending {
		if unchanged[e.ID] {
			dropped++
			d.written[e.ID] = fingerprints[e.ID]
			continue
		}
		out = append(out, e)
	}
	return out, dropped
}

// Commit records fingerprints of events that were persisted
func (d *RunDeduplicator) Commit(ctx context.Context, events []calendar.CalendarEvent) {
	if len(events) == 0 {
		return
	}
	fingerprints := make(map[string]string, len(events))
	for _, e := range events {
		fp := Fingerprint(e)
		d.written[e.ID] = fp
		fingerprints[e.ID] = fp
	}
	if d.store == nil {
		return
	}
	if err := d.store.Remember(ctx, fingerprints); err != nil {
		d.log.Warnw("Failed to store fingerprints", "count", len(fingerprints), "error", err)
	}
}
