package events

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkaadapter "fincal/internal/adapters/kafka"
	"fincal/internal/domain/calendar"
	"fincal/pkg/errors"
)

type recordingWriter struct {
	batches map[string][][]kafka.Message
	err     error
}

func (w *recordingWriter) PublishBatch(_ context.Context, topic string, messages []kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	if w.batches == nil {
		w.batches = make(map[string][][]kafka.Message)
	}
	w.batches[topic] = append(w.batches[topic], messages)
	return nil
}

func strPtr(s string) *string { return &s }

func TestPublishEvents_CarriesSurprise(t *testing.T) {
	writer := &recordingWriter{}
	pub := NewCalendarPublisher(writer, nil)

	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	withForecast := calendar.CalendarEvent{
		ID:       "earnings_AAPL.US_2025-01-15",
		Kind:     calendar.KindEarningsReport,
		Date:     date,
		Actual:   strPtr("1.70"),
		Forecast: strPtr("1.60"),
	}
	noForecast := calendar.CalendarEvent{
		ID:     "fred_CPIAUCSL_2025-01-15",
		Kind:   calendar.KindIndicatorRelease,
		Date:   date,
		Actual: strPtr("3.2"),
	}

	require.NoError(t, pub.PublishEvents(context.Background(), "earnings_week", []calendar.CalendarEvent{withForecast, noForecast}))

	batches := writer.batches[kafkaadapter.TopicCalendarEvents]
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
	assert.Equal(t, withForecast.ID, string(batches[0][0].Key))

	var first, second map[string]interface{}
	require.NoError(t, json.Unmarshal(batches[0][0].Value, &first))
	require.NoError(t, json.Unmarshal(batches[0][1].Value, &second))

	assert.Equal(t, "0.0625", first["surprise"])
	assert.Equal(t, "earnings_week", first["job"])
	assert.NotContains(t, second, "surprise")
}

func TestPublishEvents_SplitsLargeBatches(t *testing.T) {
	writer := &recordingWriter{}
	pub := NewCalendarPublisher(writer, nil)
	pub.batchSize = 2

	events := make([]calendar.CalendarEvent, 5)
	for i := range events {
		events[i] = calendar.CalendarEvent{ID: fmt.Sprintf("id-%d", i)}
	}

	require.NoError(t, pub.PublishEvents(context.Background(), "job", events))
	assert.Len(t, writer.batches[kafkaadapter.TopicCalendarEvents], 3)
}

func TestPublishEvents_EmptyIsNoop(t *testing.T) {
	writer := &recordingWriter{err: errors.New("must not be called")}
	pub := NewCalendarPublisher(writer, nil)

	assert.NoError(t, pub.PublishEvents(context.Background(), "job", nil))
}

func TestPublishReport(t *testing.T) {
	writer := &recordingWriter{}
	pub := NewCalendarPublisher(writer, nil)

	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	report := &calendar.RunReport{
		RunID:    "run-1",
		Job:      "indicators_recent",
		Success:  true,
		Inserted: 4,
		Window:   calendar.NewWindow(day, day.AddDate(0, 0, 7)),
	}
	require.NoError(t, pub.PublishReport(context.Background(), report))

	msgs := writer.batches[kafkaadapter.TopicSyncReports]
	require.Len(t, msgs, 1)
	assert.Equal(t, "indicators_recent", string(msgs[0][0].Key))

	var decoded RunFinished
	require.NoError(t, json.Unmarshal(msgs[0][0].Value, &decoded))
	assert.Equal(t, TypeRunFinished, decoded.Base.Type)
	assert.Equal(t, 4, decoded.Report.Inserted)
}

func TestPublishReport_WrapsWriterError(t *testing.T) {
	writer := &recordingWriter{err: errors.ErrUnavailable}
	pub := NewCalendarPublisher(writer, nil)

	err := pub.PublishReport(context.Background(), &calendar.RunReport{RunID: "r", Job: "j"})
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
}
