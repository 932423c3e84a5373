package events

import (
	"time"

	"github.com/google/uuid"
)

// Event type constants
const (
	TypeEventUpserted = "calendar.event_upserted"
	TypeRunFinished   = "calendar.run_finished"
)

const (
	eventSource  = "fincal"
	eventVersion = "1.0"
)

// BaseEvent is the envelope header shared by every published message
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// NewBaseEvent creates a new base event with defaults
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
	}
}
