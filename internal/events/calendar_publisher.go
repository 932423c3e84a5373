package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	kafkaadapter "fincal/internal/adapters/kafka"
	"fincal/internal/domain/calendar"
	"fincal/pkg/errors"
	"fincal/pkg/logger"
)

// MessageWriter is the subset of the Kafka producer the publisher needs
type MessageWriter interface {
	PublishBatch(ctx context.Context, topic string, messages []kafka.Message) error
}

// EventUpserted is published once per written calendar event
type EventUpserted struct {
	Base     BaseEvent              `json:"base"`
	Job      string                 `json:"job"`
	Event    calendar.CalendarEvent `json:"event"`
	Surprise *decimal.Decimal       `json:"surprise,omitempty"`
}

// RunFinished is published once per finished sync run
type RunFinished struct {
	Base   BaseEvent          `json:"base"`
	Report calendar.RunReport `json:"report"`
}

// CalendarPublisher streams written events and run reports to Kafka
type CalendarPublisher struct {
	writer    MessageWriter
	batchSize int
	log       *logger.Logger
}

// NewCalendarPublisher creates a publisher on writer
func NewCalendarPublisher(writer MessageWriter, log *logger.Logger) *CalendarPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &CalendarPublisher{
		writer:    writer,
		batchSize: 500,
		log:       log.With("component", "calendar_publisher"),
	}
}

// PublishEvents sends one message per event, keyed by event id so updates to
// the same event stay ordered within a partition
func (p *CalendarPublisher) PublishEvents(ctx context.Context, job string, events []calendar.CalendarEvent) error {
	if len(events) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		payload := EventUpserted{
			Base:  NewBaseEvent(TypeEventUpserted),
			Job:   job,
			Event: e,
		}
		if s, ok := e.Surprise(); ok {
			payload.Surprise = &s
		}

		data, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrapf(err, "marshal event %s", e.ID)
		}
		messages = append(messages, kafka.Message{Key: []byte(e.ID), Value: data})
	}

	for start := 0; start < len(messages); start += p.batchSize {
		end := min(start+p.batchSize, len(messages))
		if err := p.writer.PublishBatch(ctx, kafkaadapter.TopicCalendarEvents, messages[start:end]); err != nil {
			return errors.Wrapf(err, "publish events for %s", job)
		}
	}

	p.log.Debugw("Published calendar events", "job", job, "count", len(messages))
	return nil
}

// PublishReport sends the run report keyed by job
func (p *CalendarPublisher) PublishReport(ctx context.Context, report *calendar.RunReport) error {
	data, err := json.Marshal(RunFinished{
		Base:   NewBaseEvent(TypeRunFinished),
		Report: *report,
	})
	if err != nil {
		return errors.Wrapf(err, "marshal report %s", report.RunID)
	}

	msg := kafka.Message{Key: []byte(report.Job), Value: data}
	if err := p.writer.PublishBatch(ctx, kafkaadapter.TopicSyncReports, []kafka.Message{msg}); err != nil {
		return errors.Wrapf(err, "publish report %s", report.RunID)
	}
	return nil
}
