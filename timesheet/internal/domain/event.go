package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is an immutable domain fact. Ordering within an aggregate is defined
// by the integer version assigned when the event is appended to the log.
type Event interface {
	EventID() uuid.UUID
	EventType() string
	AggregateID() uuid.UUID
	OccurredAt() time.Time
}

type EventBase struct {
	ID        uuid.UUID `json:"event_id"`
	Aggregate uuid.UUID `json:"aggregate_id"`
	At        time.Time `json:"occurred_at"`
}

func (b EventBase) EventID() uuid.UUID     { return b.ID }
func (b EventBase) AggregateID() uuid.UUID { return b.Aggregate }
func (b EventBase) OccurredAt() time.Time  { return b.At }

func newEventBase(aggregateID uuid.UUID) EventBase {
	return EventBase{
		ID:        uuid.New(),
		Aggregate: aggregateID,
		At:        time.Now().UTC(),
	}
}
