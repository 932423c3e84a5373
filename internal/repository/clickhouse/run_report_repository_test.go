package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fincal/internal/domain/calendar"
	"fincal/internal/testsupport"
)

func TestRunReportRepository_InsertAndList(t *testing.T) {
	helper := testsupport.NewTestClickHouse(t)
	repo := NewRunReportRepository(helper.Client().Conn())
	ctx := context.Background()

	job := "test_job_" + uuid.NewString()[:8]
	helper.RegisterTableCleanup(t, "sync_runs", "job = '"+job+"'")

	started := time.Now().UTC().Truncate(time.Millisecond)
	older := calendar.RunReport{
		RunID:      uuid.NewString(),
		Job:        job,
		Kind:       calendar.KindIndicatorRelease,
		Success:    true,
		Processed:  3,
		Inserted:   3,
		SourceUsed: "fred",
		Window:     calendar.NewWindow(started, started.AddDate(0, 0, 7)),
		StartedAt:  started.Add(-time.Hour),
		FinishedAt: started.Add(-time.Hour + time.Second),
		DurationMs: 1000,
	}
	newer := older
	newer.RunID = uuid.NewString()
	newer.Success = false
	newer.Errors = 2
	newer.Transitions = []calendar.Transition{{Batch: 0, From: "fred", To: "tradingeconomics", Reason: "provider unauthorized"}}
	newer.Failures = []calendar.RecordFailure{{ID: "fred_CPIAUCSL_2031-01-01", Error: "storage write failed"}}
	newer.StartedAt = started
	newer.FinishedAt = started.Add(time.Second)

	require.NoError(t, repo.InsertReport(ctx, &older))
	require.NoError(t, repo.InsertReport(ctx, &newer))

	reports, err := repo.ListRecent(ctx, job, 10)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, newer.RunID, reports[0].RunID)
	assert.False(t, reports[0].Success)
	assert.Equal(t, 2, reports[0].Errors)
	assert.Equal(t, newer.Transitions, reports[0].Transitions)
	assert.Len(t, reports[0].Failures, 1)
	assert.Equal(t, older.Window.String(), reports[1].Window.String())
}
