package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is a domain event dispatched on the in-process bus. EventType is
// the key handlers subscribe under; the aggregate accessors identify the
// entity the event is about, which the bus includes in its log lines.
type Event interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
}

// BaseEvent is the envelope shared by every concrete event. Embed it and
// add the payload fields; NewBaseEvent stamps the ID and timestamp.
type BaseEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateUUID uuid.UUID `json:"aggregate_id"`
	AggregateName string    `json:"aggregate_type"`
}

// NewBaseEvent builds an envelope with a fresh event ID and the current
// time.
func NewBaseEvent(eventType string, aggregateID uuid.UUID, aggregateType string) BaseEvent {
	return BaseEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     time.Now(),
		AggregateUUID: aggregateID,
		AggregateName: aggregateType,
	}
}

// EventID returns the unique ID of this event instance.
func (e BaseEvent) EventID() uuid.UUID { return e.ID }

// EventType returns the subscription key, such as "PaymentSucceeded".
func (e BaseEvent) EventType() string { return e.Type }

// OccurredAt returns when the event was raised.
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// AggregateID returns the ID of the entity the event is about.
func (e BaseEvent) AggregateID() uuid.UUID { return e.AggregateUUID }

// AggregateType names the kind of entity, such as "Order".
func (e BaseEvent) AggregateType() string { return e.AggregateName }
