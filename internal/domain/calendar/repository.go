package calendar

import (
	"context"
)

// RecordError reports a single event the store refused
type RecordError struct {
	ID  string
	Err error
}

// Repository defines persistence for calendar events. It has no delete since
// provider feeds are rolling windows, not snapshots.
type Repository interface {
	// UpsertEvents inserts or overwrites every event by id. Per-record failures are
	// returned in the slice; a non-nil error means the whole call failed.
	UpsertEvents(ctx context.Context, events []CalendarEvent) ([]RecordError, error)
	GetByID(ctx context.Context, id string) (*CalendarEvent, error)
	ListByWindow(ctx context.Context, kind Kind, window Window) ([]CalendarEvent, error)
}

// RunReportRepository stores run history for dashboards
type RunReportRepository interface {
	InsertReport(ctx context.Context, report *RunReport) error
	ListRecent(ctx context.Context, job string, limit int) ([]RunReport, error)
}
