package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fincal/internal/domain/calendar"
	"fincal/internal/workers"
	"fincal/pkg/errors"
)

type stubSyncer struct {
	report *calendar.RunReport
	err    error
	calls  []string
}

func (s *stubSyncer) Sync(_ context.Context, job string, override *calendar.Window) (*calendar.RunReport, error) {
	s.calls = append(s.calls, job)
	if override != nil {
		panic("scheduled runs use the job window")
	}
	return s.report, s.err
}

func TestSyncWorker_Run(t *testing.T) {
	tests := []struct {
		name    string
		report  *calendar.RunReport
		err     error
		wantErr bool
	}{
		{"success", &calendar.RunReport{Success: true}, nil, false},
		{"locked elsewhere", &calendar.RunReport{SkippedReason: "locked"}, errors.Wrap(errors.ErrLocked, "sync:x"), false},
		{"fatal", &calendar.RunReport{}, errors.Wrap(errors.ErrRunFatal, "all unauthorized"), true},
		{"all batches failed", &calendar.RunReport{Batches: 2, BatchesFailed: 2}, nil, true},
		{"cancelled", &calendar.RunReport{Cancelled: true, Success: true}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncer := &stubSyncer{report: tt.report, err: tt.err}
			w := NewSyncWorker("earnings_week", syncer, time.Hour, true)

			err := w.Run(context.Background())

			assert.Equal(t, []string{"earnings_week"}, syncer.calls)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSyncWorker_ImplementsHealth(t *testing.T) {
	var w workers.WorkerWithHealth = NewSyncWorker("indicators_recent", &stubSyncer{}, 6*time.Hour, true)

	require.Equal(t, "indicators_recent", w.Name())
	assert.Equal(t, 6*time.Hour, w.Interval())
	assert.True(t, w.Enabled())
}
