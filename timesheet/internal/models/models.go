package models

import (
	"time"

	"github.com/google/uuid"
)

// StoredEvent is one row of the append-only event log. Version is 1-based
// and contiguous per aggregate; (aggregate_id, version) is unique.
type StoredEvent struct {
	EventID       uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	Version       int
	EventType     string
	Payload       []byte
	OccurredAt    time.Time
	RecordedAt    time.Time
}

// Snapshot is the single cached fold per aggregate. Loading starts from the
// snapshot version and replays only the events after it.
type Snapshot struct {
	AggregateID   uuid.UUID
	AggregateType string
	Version       int
	State         []byte
	TakenAt       time.Time
}

type OutboxEvent struct {
	EventID       uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	Topic         string
	Payload       []byte
	Status        string
	Attempts      int
	NextRetryAt   *time.Time
	LockedAt      *time.Time
	LockedBy      *string
	LastError     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PublishedAt   *time.Time
}

type AuditLog struct {
	OccurredAt   time.Time
	ActorID      uuid.UUID
	Action       string
	ResourceType string
	ResourceID   *uuid.UUID
	Outcome      string
	Details      []byte
}

// EntryRow is the work-log read model kept alongside the event log. It is
// written in the same transaction as the events, so window queries and the
// daily-hours sum never lag the log.
type EntryRow struct {
	EntryID   uuid.UUID
	MemberID  uuid.UUID
	ProjectID uuid.UUID
	WorkDate  time.Time
	Hours     float64
	Comment   string
	Status    string
	EnteredBy uuid.UUID
	Deleted   bool
	Version   int
	UpdatedAt time.Time
}

type AbsenceRow struct {
	AbsenceID   uuid.UUID
	MemberID    uuid.UUID
	AbsenceType string
	WorkDate    time.Time
	Comment     string
	Status      string
	EnteredBy   uuid.UUID
	Deleted     bool
	Version     int
	UpdatedAt   time.Time
}

// DailyRejection is the per-member per-day rejection note, keyed so a repeat
// rejection for the same day overwrites rather than duplicates.
type DailyRejection struct {
	MemberID   uuid.UUID
	WorkDate   time.Time
	Reason     string
	RejectedBy uuid.UUID
	EntryIDs   []uuid.UUID
	RejectedAt time.Time
}

// CalendarDay is one cell of the monthly calendar projection.
type CalendarDay struct {
	MemberID    uuid.UUID
	WorkDate    time.Time
	FiscalMonth string
	TotalHours  float64
	AbsenceType *string
	Status      string
	RebuiltAt   time.Time
}
