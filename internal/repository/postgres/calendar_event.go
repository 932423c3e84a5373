package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"fincal/internal/domain/calendar"
	"fincal/internal/metrics"
	"fincal/pkg/errors"
)

// Compile-time check
var _ calendar.Repository = (*CalendarEventRepository)(nil)

const upsertEventQuery = `
	INSERT INTO calendar_events (
		id, kind, series_or_symbol, title, event_date, event_time,
		country, currency, importance, category,
		actual, forecast, previous, source, updated_at
	) VALUES (
		:id, :kind, :series_or_symbol, :title, :event_date, :event_time,
		:country, :currency, :importance, :category,
		:actual, :forecast, :previous, :source, :updated_at
	)
	ON CONFLICT (id) DO UPDATE SET
		kind = EXCLUDED.kind,
		series_or_symbol = EXCLUDED.series_or_symbol,
		title = EXCLUDED.title,
		event_date = EXCLUDED.event_date,
		event_time = EXCLUDED.event_time,
		country = EXCLUDED.country,
		currency = EXCLUDED.currency,
		importance = EXCLUDED.importance,
		category = EXCLUDED.category,
		actual = EXCLUDED.actual,
		forecast = EXCLUDED.forecast,
		previous = EXCLUDED.previous,
		source = EXCLUDED.source,
		updated_at = EXCLUDED.updated_at
	WHERE calendar_events.updated_at <= EXCLUDED.updated_at`

const eventColumns = `
	id, kind, series_or_symbol, title, event_date, event_time,
	country, currency, importance, category,
	actual, forecast, previous, source, updated_at`

// CalendarEventRepository implements calendar.Repository using sqlx
type CalendarEventRepository struct {
	db *sqlx.DB
}

// NewCalendarEventRepository creates a new calendar event repository
func NewCalendarEventRepository(db *sqlx.DB) *CalendarEventRepository {
	return &CalendarEventRepository{db: db}
}

// UpsertEvents writes events in one transaction. Each row runs under its own
// savepoint so a rejected row is rolled back alone and reported.
func (r *CalendarEventRepository) UpsertEvents(ctx context.Context, events []calendar.CalendarEvent) (failed []calendar.RecordError, err error) {
	if len(events) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() { metrics.RecordDBQuery("postgres", "upsert_events", time.Since(start), err) }()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin upsert transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, event := range events {
		if _, err = tx.ExecContext(ctx, "SAVEPOINT upsert_event"); err != nil {
			return nil, errors.Wrap(err, "create savepoint")
		}

		if _, execErr := tx.NamedExecContext(ctx, upsertEventQuery, event); execErr != nil {
			if _, err = tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT upsert_event"); err != nil {
				return nil, errors.Wrap(err, "rollback to savepoint")
			}
			failed = append(failed, calendar.RecordError{ID: event.ID, Err: execErr})
			continue
		}

		if _, err = tx.ExecContext(ctx, "RELEASE SAVEPOINT upsert_event"); err != nil {
			return nil, errors.Wrap(err, "release savepoint")
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit upsert transaction")
	}

	return failed, nil
}

// GetByID retrieves a calendar event by its derived id
func (r *CalendarEventRepository) GetByID(ctx context.Context, id string) (*calendar.CalendarEvent, error) {
	var event calendar.CalendarEvent

	query := `SELECT ` + eventColumns + ` FROM calendar_events WHERE id = $1`

	start := time.Now()
	err := r.db.GetContext(ctx, &event, query, id)
	metrics.RecordDBQuery("postgres", "get_event", time.Since(start), err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrNotFound, "calendar event %s", id)
		}
		return nil, errors.Wrap(err, "get calendar event")
	}

	event.Date = event.Date.UTC()
	return &event, nil
}

// ListByWindow returns events of kind dated inside window, ordered by date then id
func (r *CalendarEventRepository) ListByWindow(ctx context.Context, kind calendar.Kind, window calendar.Window) ([]calendar.CalendarEvent, error) {
	events := []calendar.CalendarEvent{}

	query := `
		SELECT ` + eventColumns + `
		FROM calendar_events
		WHERE kind = $1 AND event_date BETWEEN $2 AND $3
		ORDER BY event_date ASC, id ASC`

	start := time.Now()
	err := r.db.SelectContext(ctx, &events, query, kind, window.From, window.To)
	metrics.RecordDBQuery("postgres", "list_events", time.Since(start), err)
	if err != nil {
		return nil, errors.Wrap(err, "list calendar events")
	}

	for i := range events {
		events[i].Date = events[i].Date.UTC()
	}
	return events, nil
}
