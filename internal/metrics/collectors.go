package metrics

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"fincal/pkg/logger"
)

// CalendarCollector reports the state of the stores at scrape time
type CalendarCollector struct {
	log        *logger.Logger
	postgres   *sqlx.DB
	clickhouse driver.Conn // optional

	// Descriptors
	totalEvents    *prometheus.Desc
	upcomingEvents *prometheus.Desc
	missingActuals *prometheus.Desc
	lastSuccess    *prometheus.Desc
}

// NewCalendarCollector creates the store collector; clickhouse may be nil
func NewCalendarCollector(log *logger.Logger, postgres *sqlx.DB, clickhouse driver.Conn) *CalendarCollector {
	return &CalendarCollector{
		log:        log,
		postgres:   postgres,
		clickhouse: clickhouse,

		totalEvents: prometheus.NewDesc(
			"fincal_calendar_events",
			"Stored calendar events by kind",
			[]string{"kind"}, nil,
		),
		upcomingEvents: prometheus.NewDesc(
			"fincal_calendar_events_upcoming",
			"Calendar events dated within the next 7 days by kind",
			[]string{"kind"}, nil,
		),
		missingActuals: prometheus.NewDesc(
			"fincal_calendar_events_missing_actual",
			"Events dated in the last 7 days that still have no actual value",
			[]string{"kind"}, nil,
		),
		lastSuccess: prometheus.NewDesc(
			"fincal_sync_last_success_timestamp",
			"Unix timestamp of the last successful run per job",
			[]string{"job"}, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *CalendarCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalEvents
	ch <- c.upcomingEvents
	ch <- c.missingActuals
	ch <- c.lastSuccess
}

// Collect implements prometheus.Collector
func (c *CalendarCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectByKind(ctx, ch, c.totalEvents, `
		SELECT kind, COUNT(*) AS count
		FROM calendar_events
		GROUP BY kind
	`)
	c.collectByKind(ctx, ch, c.upcomingEvents, `
		SELECT kind, COUNT(*) AS count
		FROM calendar_events
		WHERE event_date >= CURRENT_DATE AND event_date < CURRENT_DATE + 7
		GROUP BY kind
	`)
	c.collectByKind(ctx, ch, c.missingActuals, `
		SELECT kind, COUNT(*) AS count
		FROM calendar_events
		WHERE event_date < CURRENT_DATE AND event_date >= CURRENT_DATE - 7 AND actual IS NULL
		GROUP BY kind
	`)

	if c.clickhouse != nil {
		c.collectLastSuccess(ctx, ch)
	}
}

func (c *CalendarCollector) collectByKind(ctx context.Context, ch chan<- prometheus.Metric, desc *prometheus.Desc, query string) {
	type kindStat struct {
		Kind  string `db:"kind"`
		Count int    `db:"count"`
	}

	var stats []kindStat
	if err := c.postgres.SelectContext(ctx, &stats, query); err != nil {
		c.log.Warnw("Failed to collect calendar event stats", "metric", desc.String(), "error", err)
		return
	}

	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(stat.Count), stat.Kind)
	}
}

func (c *CalendarCollector) collectLastSuccess(ctx context.Context, ch chan<- prometheus.Metric) {
	rows, err := c.clickhouse.Query(ctx, `
		SELECT job, max(finished_at) AS last
		FROM sync_runs
		WHERE success = 1
		GROUP BY job
	`)
	if err != nil {
		c.log.Warnw("Failed to collect last successful runs", "error", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var (
			job  string
			last time.Time
		)
		if err := rows.Scan(&job, &last); err != nil {
			c.log.Warnw("Failed to scan last successful run", "error", err)
			return
		}
		ch <- prometheus.MustNewConstMetric(c.lastSuccess, prometheus.GaugeValue, float64(last.Unix()), job)
	}
}

// RegisterCollector registers a store collector with the default registry
func RegisterCollector(collector prometheus.Collector) error {
	return prometheus.Register(collector)
}
