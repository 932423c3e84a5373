package calendar

import (
	"context"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"fincal/internal/domain/calendar"
	"fincal/internal/metrics"
	"fincal/pkg/errors"
	"fincal/pkg/logger"
)

// SkippedLocked is the skippedReason of a run that found its job already running
const SkippedLocked = "locked"

// Locker serializes runs of the same job across instances
type Locker interface {
	// Acquire returns errors.ErrLocked when another owner holds key
	Acquire(ctx context.Context, key string, ttl time.Duration) (calendar.RunLock, error)
}

// ReportSink receives every finished run report
type ReportSink interface {
	PublishReport(ctx context.Context, report *calendar.RunReport) error
}

// Alerter notifies operators about runs that aborted on configuration errors
type Alerter interface {
	AlertRunFailed(ctx context.Context, report *calendar.RunReport) error
}

// ServiceDeps are the optional collaborators of Service; nil fields are skipped
type ServiceDeps struct {
	Reports    calendar.RunReportRepository
	Locker     Locker
	ReportSink ReportSink
	Alerter    Alerter
	Tracker    errors.Tracker
}

// Service is the entry point for scheduled, admin and message-triggered runs
type Service struct {
	jobs    map[string]Job
	runner  *Runner
	deps    ServiceDeps
	lockTTL time.Duration
	log     *logger.Logger
}

// NewService creates the sync service over a fixed job set
func NewService(jobs []Job, runner *Runner, deps ServiceDeps, lockTTL time.Duration, log *logger.Logger) *Service {
	byName := make(map[string]Job, len(jobs))
	for _, j := range jobs {
		byName[j.Name] = j
	}
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		jobs:    byName,
		runner:  runner,
		deps:    deps,
		lockTTL: lockTTL,
		log:     log,
	}
}

// Jobs returns configured jobs sorted by name
func (s *Service) Jobs() []Job {
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// Job looks up a job by name
func (s *Service) Job(name string) (Job, bool) {
	j, ok := s.jobs[name]
	return j, ok
}

// Sync runs the named job once. override replaces the job's window policy.
// A job already running elsewhere yields a skipped report and ErrLocked.
func (s *Service) Sync(ctx context.Context, name string, override *calendar.Window) (*calendar.RunReport, error) {
	job, ok := s.jobs[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "job %q", name)
	}
	if override != nil {
		if err := override.Validate(); err != nil {
			return nil, err
		}
	}

	if s.deps.Locker != nil {
		lock, err := s.deps.Locker.Acquire(ctx, "sync:"+job.Name, s.lockTTL)
		if err != nil {
			if errors.Is(err, errors.ErrLocked) {
				s.log.Infow("Job already running, skipping", "job", job.Name)
				metrics.RecordSyncRun(job.Name, "skipped", 0, metrics.SyncCounts{})
				now := time.Now().UTC()
				return &calendar.RunReport{
					Job:           job.Name,
					Kind:          job.Kind,
					SkippedReason: SkippedLocked,
					StartedAt:     now,
					FinishedAt:    now,
				}, err
			}
			s.log.Warnw("Run lock unavailable, running unlocked", "job", job.Name, "error", err)
		} else {
			stop := s.keepLock(ctx, job.Name, lock)
			defer func() {
				stop()
				if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
					s.log.Warnw("Failed to release run lock", "job", job.Name, "error", err)
				}
			}()
		}
	}

	report, runErr := s.runner.Run(ctx, job, override)
	s.finish(ctx, report, runErr)
	return report, runErr
}

// keepLock extends lock every third of its TTL until the returned stop is called
func (s *Service) keepLock(ctx context.Context, job string, lock calendar.RunLock) (stop func()) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(max(s.lockTTL/3, time.Millisecond))
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := lock.Extend(ctx)
				switch {
				case err == nil:
				case errors.Is(err, errors.ErrLocked):
					s.log.Errorw("Run lock lost, another instance may start this job", "job", job, "error", err)
					return
				case ctx.Err() != nil:
					return
				default:
					s.log.Warnw("Failed to extend run lock", "job", job, "error", err)
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// RecentRuns lists stored reports, newest first; job may be empty for all jobs
func (s *Service) RecentRuns(ctx context.Context, job string, limit int) ([]calendar.RunReport, error) {
	if s.deps.Reports == nil {
		return nil, errors.Wrap(errors.ErrUnavailable, "run history not configured")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.deps.Reports.ListRecent(ctx, job, limit)
}

// finish records the report everywhere it is consumed. Failures here never change the run outcome.
func (s *Service) finish(ctx context.Context, report *calendar.RunReport, runErr error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	ctx = errors.WithRunID(ctx, report.RunID)

	status := "success"
	switch {
	case report.Cancelled:
		status = "cancelled"
	case !report.Success:
		status = "failed"
	}
	metrics.RecordSyncRun(report.Job, status, time.Duration(report.DurationMs)*time.Millisecond, metrics.SyncCounts{
		Processed:    report.Processed,
		Normalized:   report.Normalized,
		Inserted:     report.Inserted,
		Skipped:      report.Skipped,
		Deduplicated: report.Deduplicated,
		Errors:       report.Errors,
	})

	s.log.Infow("Sync run finished",
		"job", report.Job,
		"run_id", report.RunID,
		"status", status,
		"window", report.Window.String(),
		"source", report.SourceUsed,
		"processed", humanize.Comma(int64(report.Processed)),
		"inserted", humanize.Comma(int64(report.Inserted)),
		"skipped", report.Skipped,
		"deduplicated", report.Deduplicated,
		"errors", report.Errors,
		"duration", (time.Duration(report.DurationMs) * time.Millisecond).String(),
	)

	if s.deps.Reports != nil {
		if err := s.deps.Reports.InsertReport(ctx, report); err != nil {
			s.log.Warnw("Failed to store run report", "run_id", report.RunID, "error", err)
		}
	}

	if s.deps.ReportSink != nil {
		if err := s.deps.ReportSink.PublishReport(ctx, report); err != nil {
			s.log.Warnw("Failed to publish run report", "run_id", report.RunID, "error", err)
		}
	}

	if runErr == nil || !errors.Is(runErr, errors.ErrRunFatal) {
		return
	}

	if s.deps.Tracker != nil {
		_ = s.deps.Tracker.CaptureError(ctx, runErr, map[string]string{
			"job":  report.Job,
			"kind": string(report.Kind),
		})
	}
	if s.deps.Alerter != nil {
		if err := s.deps.Alerter.AlertRunFailed(ctx, report); err != nil {
			s.log.Warnw("Failed to send run alert", "run_id", report.RunID, "error", err)
		}
	}
}
