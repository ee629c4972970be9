package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire shape for domain facts published to Kafka.
type Envelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Version       int             `json:"version,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

const (
	TopicSubmissions       = "timesheet.submissions"
	TopicApprovalDecisions = "timesheet.approval.decisions"
	TopicRejections        = "timesheet.rejections"
)

// Submission is the payload published on TopicSubmissions when a member's
// day or fiscal month goes to review.
type Submission struct {
	MemberID    uuid.UUID `json:"member_id"`
	FiscalMonth string    `json:"fiscal_month,omitempty"`
	WorkDate    string    `json:"work_date,omitempty"`
	SubmittedBy uuid.UUID `json:"submitted_by"`
	EntryIDs    []string  `json:"entry_ids,omitempty"`
	AbsenceIDs  []string  `json:"absence_ids,omitempty"`
}

// ApprovalDecision is the payload published on TopicApprovalDecisions,
// consumed by the telemetry consumer.
type ApprovalDecision struct {
	MemberID    uuid.UUID `json:"member_id"`
	FiscalMonth string    `json:"fiscal_month,omitempty"`
	WorkDate    string    `json:"work_date,omitempty"`
	DecidedBy   uuid.UUID `json:"decided_by"`
	Decision    string    `json:"decision"`
	EntryIDs    []string  `json:"entry_ids,omitempty"`
	AbsenceIDs  []string  `json:"absence_ids,omitempty"`
	TotalHours  float64   `json:"total_hours,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}
