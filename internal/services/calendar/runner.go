package calendar

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fincal/internal/domain/calendar"
	"fincal/pkg/errors"
	"fincal/pkg/logger"
)

// Job is one parameterized sync pipeline: what to fetch, over which window, from whom
type Job struct {
	Name      string
	Kind      calendar.Kind
	Window    calendar.WindowPolicy
	Catalog   *Catalog
	Providers []calendar.Provider
	Interval  time.Duration
	Enabled   bool
}

// BatchSize is the largest batch every provider in the chain accepts
func (j Job) BatchSize() int {
	size := 0
	for _, p := range j.Providers {
		if m := p.MaxBatch(); m > 0 && (size == 0 || m < size) {
			size = m
		}
	}
	return size
}

// EventSink receives events after they are persisted
type EventSink interface {
	PublishEvents(ctx context.Context, job string, events []calendar.CalendarEvent) error
}

// RunnerConfig controls pacing and timeouts of a run
type RunnerConfig struct {
	PacingDelay  time.Duration // between batches against the same provider
	FetchTimeout time.Duration // per provider call within a batch
}

// DefaultRunnerConfig returns conservative pacing for public provider APIs
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		PacingDelay:  2 * time.Second,
		FetchTimeout: 5 * time.Minute,
	}
}

// Runner drives a job end to end and aggregates its RunReport
type Runner struct {
	normalizer   *Normalizer
	classifier   *Classifier
	gateway      *Gateway
	fingerprints FingerprintStore
	sink         EventSink
	cfg          RunnerConfig
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
	log          *logger.Logger
}

// NewRunner creates a runner. fingerprints and sink may be nil.
func NewRunner(
	normalizer *Normalizer,
	classifier *Classifier,
	gateway *Gateway,
	fingerprints FingerprintStore,
	sink EventSink,
	cfg RunnerConfig,
	log *logger.Logger,
) *Runner {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultRunnerConfig().FetchTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		normalizer:   normalizer,
		classifier:   classifier,
		gateway:      gateway,
		fingerprints: fingerprints,
		sink:         sink,
		cfg:          cfg,
		now:          time.Now,
		sleep:        sleepCtx,
		log:          log,
	}
}

// Run executes job over its policy window, or over override when set.
// The report is always returned. The error is non-nil when the run was
// cancelled or aborted; batches completed before that stay persisted.
func (r *Runner) Run(ctx context.Context, job Job, override *calendar.Window) (*calendar.RunReport, error) {
	started := r.now()
	report := &calendar.RunReport{
		RunID:     uuid.NewString(),
		Job:       job.Name,
		Kind:      job.Kind,
		StartedAt: started.UTC(),
	}
	if override != nil {
		report.Window = *override
	} else {
		report.Window = job.Window.Resolve(started)
	}

	log := r.log.With("job", job.Name, "run_id", report.RunID)
	ctx = errors.WithRunID(ctx, report.RunID)

	runErr := r.run(ctx, job, report, log)

	report.FinishedAt = r.now().UTC()
	report.DurationMs = report.FinishedAt.Sub(report.StartedAt).Milliseconds()
	if runErr != nil {
		report.Error = runErr.Error()
	}
	report.Success = runErr == nil && (report.Batches == 0 || report.BatchesFailed < report.Batches)

	return report, runErr
}

func (r *Runner) run(ctx context.Context, job Job, report *calendar.RunReport, log *logger.Logger) error {
	if !job.Kind.Valid() {
		return errors.Wrapf(errors.ErrRunFatal, "job %s: invalid kind %q", job.Name, job.Kind)
	}
	if err := report.Window.Validate(); err != nil {
		return errors.Join(errors.ErrRunFatal, err)
	}
	if job.Catalog == nil || job.Catalog.Len() == 0 {
		log.Warnw("Catalog is empty, nothing to sync")
		return nil
	}

	cascade := NewCascade(job.Kind, job.Providers, log).WithCallTimeout(r.cfg.FetchTimeout)
	dedup := NewRunDeduplicator(r.fingerprints, log)
	cache := calendar.NewRunCache()
	defer func() {
		report.SourceUsed = cascade.Committed()
		report.Transitions = cascade.Transitions()
	}()

	// In-flight upserts outlive cancellation; the gateway bounds each store call
	persistCtx := context.WithoutCancel(ctx)

	for batch, instruments := range job.Catalog.Chunks(job.BatchSize()) {
		if batch > 0 && r.cfg.PacingDelay > 0 {
			if err := r.sleep(ctx, r.cfg.PacingDelay); err != nil {
				report.Cancelled = true
				return errors.Wrap(err, "run cancelled")
			}
		}
		if err := ctx.Err(); err != nil {
			report.Cancelled = true
			return errors.Wrap(err, "run cancelled")
		}

		report.Batches++
		req := calendar.FetchRequest{Window: report.Window, Instruments: instruments, Cache: cache}

		source, records, err := cascade.Fetch(ctx, batch, req)

		if err != nil {
			if ctx.Err() != nil {
				report.Cancelled = true
				return errors.Wrap(ctx.Err(), "run cancelled")
			}
			report.BatchesFailed++
			report.Errors++
			report.Failures = append(report.Failures, calendar.RecordFailure{
				Batch:  batch,
				Source: source,
				Error:  err.Error(),
			})
			if errors.Is(err, errors.ErrRunFatal) || errors.Is(err, errors.ErrNoProvider) {
				return err
			}
			log.Warnw("Batch fetch failed", "batch", batch, "instruments", len(instruments), "error", err)
			continue
		}

		r.process(persistCtx, job, batch, source, records, dedup, report, log)
	}

	return nil
}

// process carries one fetched batch through normalize, classify, dedup and upsert
func (r *Runner) process(
	ctx context.Context,
	job Job,
	batch int,
	source string,
	records []calendar.RawRecord,
	dedup *RunDeduplicator,
	report *calendar.RunReport,
	log *logger.Logger,
) {
	report.Processed += len(records)

	events, skipped := r.normalizer.NormalizeAll(records)
	report.Normalized += len(events)
	report.Skipped += skipped

	for i := range events {
		events[i] = r.classifier.Apply(events[i])
	}

	events, dropped := dedup.Filter(ctx, events)
	report.Deduplicated += dropped

	result := r.gateway.Upsert(ctx, events)
	report.Inserted += len(result.Written)
	report.Errors += len(result.Failed)
	if result.ChunksFailed > 0 {
		report.BatchesFailed++
	}
	for _, f := range result.Failed {
		report.Failures = append(report.Failures, calendar.RecordFailure{
			ID:     f.Event.ID,
			Batch:  batch,
			Source: f.Event.Source,
			Error:  f.Err.Error(),
		})
	}

	dedup.Commit(ctx, result.Written)

	if r.sink != nil && len(result.Written) > 0 {
		if err := r.sink.PublishEvents(ctx, job.Name, result.Written); err != nil {
			log.Warnw("Failed to publish events", "batch", batch, "count", len(result.Written), "error", err)
		}
	}

	log.Debugw("Batch done",
		"batch", batch,
		"source", source,
		"records", len(records),
		"skipped", skipped,
		"deduplicated", dropped,
		"written", len(result.Written),
		"failed", len(result.Failed),
	)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
