package calendar

import (
	"context"
	"time"

	"fincal/internal/domain/calendar"
	"fincal/internal/workers"
	"fincal/pkg/errors"
)

// Syncer runs a named sync job
type Syncer interface {
	Sync(ctx context.Context, job string, override *calendar.Window) (*calendar.RunReport, error)
}

// SyncWorker runs one calendar sync job on its interval
type SyncWorker struct {
	*workers.BaseWorker
	job    string
	syncer Syncer
}

// NewSyncWorker creates a worker for job. The worker name is the job name.
func NewSyncWorker(job string, syncer Syncer, interval time.Duration, enabled bool) *SyncWorker {
	return &SyncWorker{
		BaseWorker: workers.NewBaseWorker(job, interval, enabled),
		job:        job,
		syncer:     syncer,
	}
}

// Run executes one sync with the job's own window policy.
// A job held by another instance is skipped without error.
func (w *SyncWorker) Run(ctx context.Context) error {
	w.Log().Debug("Calendar sync: starting iteration")

	report, err := w.syncer.Sync(ctx, w.job, nil)
	if errors.Is(err, errors.ErrLocked) {
		w.Log().Infow("Calendar sync skipped, job running elsewhere")
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "sync %s", w.job)
	}

	if report.Cancelled {
		return errors.Wrapf(context.Canceled, "sync %s cancelled after %d batches", w.job, report.Batches)
	}
	if !report.Success {
		return errors.Newf("sync %s: %d of %d batches failed, %d errors", w.job, report.BatchesFailed, report.Batches, report.Errors)
	}

	return nil
}
