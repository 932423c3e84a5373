package clickhouse

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"fincal/internal/domain/calendar"
	"fincal/internal/metrics"
	"fincal/pkg/errors"
)

// Compile-time check
var _ calendar.RunReportRepository = (*RunReportRepository)(nil)

// RunReportRepository implements calendar.RunReportRepository for ClickHouse
type RunReportRepository struct {
	conn driver.Conn
}

// NewRunReportRepository creates a new sync run history repository
func NewRunReportRepository(conn driver.Conn) *RunReportRepository {
	return &RunReportRepository{conn: conn}
}

// runDetails holds the nested parts of a report, stored as one JSON column
type runDetails struct {
	Transitions []calendar.Transition    `json:"transitions,omitempty"`
	Failures    []calendar.RecordFailure `json:"failures,omitempty"`
}

// InsertReport appends a run report
func (r *RunReportRepository) InsertReport(ctx context.Context, report *calendar.RunReport) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("clickhouse", "insert_run", time.Since(start), err) }()

	details, err := json.Marshal(runDetails{Transitions: report.Transitions, Failures: report.Failures})
	if err != nil {
		return errors.Wrap(err, "marshal run details")
	}

	query := `
		INSERT INTO sync_runs (
			run_id, job, kind, success, processed, normalized, inserted,
			skipped, deduplicated, errors, source_used, window_from, window_to,
			batches, batches_failed, cancelled, skipped_reason, error, details,
			started_at, finished_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err = r.conn.Exec(ctx, query,
		report.RunID,
		report.Job,
		string(report.Kind),
		boolToUInt8(report.Success),
		uint32(report.Processed),
		uint32(report.Normalized),
		uint32(report.Inserted),
		uint32(report.Skipped),
		uint32(report.Deduplicated),
		uint32(report.Errors),
		report.SourceUsed,
		report.Window.From,
		report.Window.To,
		uint32(report.Batches),
		uint32(report.BatchesFailed),
		boolToUInt8(report.Cancelled),
		report.SkippedReason,
		report.Error,
		string(details),
		report.StartedAt,
		report.FinishedAt,
		report.DurationMs,
	)
	if err != nil {
		return errors.Wrap(err, "insert sync run")
	}

	return nil
}

// ListRecent returns the newest reports first. An empty job lists every job.
func (r *RunReportRepository) ListRecent(ctx context.Context, job string, limit int) (reports []calendar.RunReport, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("clickhouse", "list_runs", time.Since(start), err) }()

	query := `
		SELECT
			run_id, job, kind, success, processed, normalized, inserted,
			skipped, deduplicated, errors, source_used, window_from, window_to,
			batches, batches_failed, cancelled, skipped_reason, error, details,
			started_at, finished_at, duration_ms
		FROM sync_runs
		WHERE (? = '' OR job = ?)
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := r.conn.Query(ctx, query, job, job, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query sync runs")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rep                                                         calendar.RunReport
			kind, details                                               string
			success, cancelled                                          uint8
			processed, normalized, inserted, skipped, deduped, failures uint32
			batches, batchesFailed                                      uint32
		)

		if err := rows.Scan(
			&rep.RunID, &rep.Job, &kind, &success, &processed, &normalized, &inserted,
			&skipped, &deduped, &failures, &rep.SourceUsed, &rep.Window.From, &rep.Window.To,
			&batches, &batchesFailed, &cancelled, &rep.SkippedReason, &rep.Error, &details,
			&rep.StartedAt, &rep.FinishedAt, &rep.DurationMs,
		); err != nil {
			return nil, errors.Wrap(err, "scan sync run")
		}

		rep.Kind = calendar.Kind(kind)
		rep.Success = success == 1
		rep.Cancelled = cancelled == 1
		rep.Processed = int(processed)
		rep.Normalized = int(normalized)
		rep.Inserted = int(inserted)
		rep.Skipped = int(skipped)
		rep.Deduplicated = int(deduped)
		rep.Errors = int(failures)
		rep.Batches = int(batches)
		rep.BatchesFailed = int(batchesFailed)

		if details != "" {
			var d runDetails
			if err := json.Unmarshal([]byte(details), &d); err != nil {
				return nil, errors.Wrap(err, "decode run details")
			}
			rep.Transitions = d.Transitions
			rep.Failures = d.Failures
		}

		reports = append(reports, rep)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate sync runs")
	}

	return reports, nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
