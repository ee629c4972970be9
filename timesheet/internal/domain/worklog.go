package domain

import (
	"time"

	"github.com/google/uuid"

	"worklog-approval-system/shared/workflow"
)

const (
	EventWorkLogRecorded  = "worklog_recorded"
	EventWorkLogUpdated   = "worklog_updated"
	EventWorkLogSubmitted = "worklog_submitted"
	EventWorkLogApproved  = "worklog_approved"
	EventWorkLogReturned  = "worklog_returned"
	EventWorkLogDeleted   = "worklog_deleted"
)

const (
	ReturnCauseRejected = "rejected"
	ReturnCauseRecalled = "recalled"
)

type WorkLogRecorded struct {
	EventBase
	MemberID  uuid.UUID `json:"member_id"`
	ProjectID uuid.UUID `json:"project_id"`
	WorkDate  time.Time `json:"work_date"`
	Hours     float64   `json:"hours"`
	Comment   string    `json:"comment,omitempty"`
	EnteredBy uuid.UUID `json:"entered_by"`
}

func (WorkLogRecorded) EventType() string { return EventWorkLogRecorded }

type WorkLogUpdated struct {
	EventBase
	Hours     float64   `json:"hours"`
	Comment   string    `json:"comment,omitempty"`
	UpdatedBy uuid.UUID `json:"updated_by"`
}

func (WorkLogUpdated) EventType() string { return EventWorkLogUpdated }

type WorkLogSubmitted struct {
	EventBase
	SubmittedBy uuid.UUID `json:"submitted_by"`
}

func (WorkLogSubmitted) EventType() string { return EventWorkLogSubmitted }

type WorkLogApproved struct {
	EventBase
	ApprovedBy uuid.UUID `json:"approved_by"`
}

func (WorkLogApproved) EventType() string { return EventWorkLogApproved }

type WorkLogReturned struct {
	EventBase
	ReturnedBy uuid.UUID `json:"returned_by"`
	Cause      string    `json:"cause"`
	Reason     string    `json:"reason,omitempty"`
}

func (WorkLogReturned) EventType() string { return EventWorkLogReturned }

type WorkLogDeleted struct {
	EventBase
	DeletedBy uuid.UUID `json:"deleted_by"`
}

func (WorkLogDeleted) EventType() string { return EventWorkLogDeleted }

// WorkLogEntry is one member's hours on one project for one work date.
// Lifecycle: draft -> submitted -> approved; a rejected or recalled entry
// drops back to draft. Approved is terminal and permanently read-only.
type WorkLogEntry struct {
	Root
	MemberID  uuid.UUID
	ProjectID uuid.UUID
	WorkDate  time.Time
	Hours     float64
	Comment   string
	Status    string
	EnteredBy uuid.UUID
	Deleted   bool
}

func NewWorkLogEntry() *WorkLogEntry {
	return &WorkLogEntry{}
}

func (e *WorkLogEntry) AggregateType() string { return AggregateTypeWorkLog }

// RecordWorkLog opens a new entry in draft. enteredBy can differ from
// memberID for proxy entry; the orchestrator authorizes that before calling.
func RecordWorkLog(memberID uuid.UUID, projectID uuid.UUID, workDate time.Time, hours float64, comment string, enteredBy uuid.UUID) (*WorkLogEntry, error) {
	if err := ValidateHours(hours); err != nil {
		return nil, err
	}
	if err := ValidateWorkDate(workDate); err != nil {
		return nil, err
	}
	if err := ValidateComment(comment); err != nil {
		return nil, err
	}
	e := NewWorkLogEntry()
	if err := e.raise(&WorkLogRecorded{
		EventBase: newEventBase(uuid.New()),
		MemberID:  memberID,
		ProjectID: projectID,
		WorkDate:  Day(workDate),
		Hours:     hours,
		Comment:   comment,
		EnteredBy: enteredBy,
	}); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *WorkLogEntry) Update(hours float64, comment string, updatedBy uuid.UUID) error {
	if !e.editable() {
		return Errorf(CodeNotEditable, "work log entry %s is not editable in status %s", e.ID(), e.Status)
	}
	if err := ValidateHours(hours); err != nil {
		return err
	}
	if err := ValidateComment(comment); err != nil {
		return err
	}
	return e.raise(&WorkLogUpdated{
		EventBase: newEventBase(e.ID()),
		Hours:     hours,
		Comment:   comment,
		UpdatedBy: updatedBy,
	})
}

func (e *WorkLogEntry) Submit(submittedBy uuid.UUID) error {
	if e.Deleted {
		return Errorf(CodeNotFound, "work log entry %s is deleted", e.ID())
	}
	if !workflow.CanTransitionEntry(e.Status, workflow.EntryStatusSubmitted) {
		return Errorf(CodeInvalidStatusTransition, "cannot submit work log entry %s from status %s", e.ID(), e.Status)
	}
	return e.raise(&WorkLogSubmitted{
		EventBase:   newEventBase(e.ID()),
		SubmittedBy: submittedBy,
	})
}

func (e *WorkLogEntry) Approve(approvedBy uuid.UUID) error {
	if !workflow.CanTransitionEntry(e.Status, workflow.EntryStatusApproved) {
		return Errorf(CodeInvalidStatusTransition, "cannot approve work log entry %s from status %s", e.ID(), e.Status)
	}
	return e.raise(&WorkLogApproved{
		EventBase:  newEventBase(e.ID()),
		ApprovedBy: approvedBy,
	})
}

// Reject returns a submitted entry to draft with a mandatory reason.
func (e *WorkLogEntry) Reject(rejectedBy uuid.UUID, reason string) error {
	if err := ValidateReason(reason); err != nil {
		return err
	}
	return e.returnToDraft(rejectedBy, ReturnCauseRejected, reason)
}

// Recall is the member taking back their own submission.
func (e *WorkLogEntry) Recall(recalledBy uuid.UUID) error {
	return e.returnToDraft(recalledBy, ReturnCauseRecalled, "")
}

func (e *WorkLogEntry) returnToDraft(by uuid.UUID, cause string, reason string) error {
	if !workflow.CanTransitionEntry(e.Status, workflow.EntryStatusDraft) {
		return Errorf(CodeInvalidStatusTransition, "cannot return work log entry %s from status %s", e.ID(), e.Status)
	}
	return e.raise(&WorkLogReturned{
		EventBase:  newEventBase(e.ID()),
		ReturnedBy: by,
		Cause:      cause,
		Reason:     reason,
	})
}

// Delete is logical: the entry keeps its history but is filtered from reads.
func (e *WorkLogEntry) Delete(deletedBy uuid.UUID) error {
	if !e.editable() {
		return Errorf(CodeNotDeletable, "work log entry %s is not deletable in status %s", e.ID(), e.Status)
	}
	return e.raise(&WorkLogDeleted{
		EventBase: newEventBase(e.ID()),
		DeletedBy: deletedBy,
	})
}

func (e *WorkLogEntry) editable() bool {
	return !e.Deleted && e.Status == workflow.EntryStatusDraft
}

func (e *WorkLogEntry) raise(ev Event) error {
	if err := e.apply(ev); err != nil {
		return err
	}
	e.buffer(ev)
	return nil
}

func (e *WorkLogEntry) Replay(ev Event) error {
	if err := e.apply(ev); err != nil {
		return err
	}
	e.bump()
	return nil
}

func (e *WorkLogEntry) apply(ev Event) error {
	switch t := ev.(type) {
	case *WorkLogRecorded:
		e.setID(t.Aggregate)
		e.MemberID = t.MemberID
		e.ProjectID = t.ProjectID
		e.WorkDate = t.WorkDate
		e.Hours = t.Hours
		e.Comment = t.Comment
		e.EnteredBy = t.EnteredBy
		e.Status = workflow.EntryStatusDraft
	case *WorkLogUpdated:
		e.Hours = t.Hours
		e.Comment = t.Comment
	case *WorkLogSubmitted:
		e.Status = workflow.EntryStatusSubmitted
	case *WorkLogApproved:
		e.Status = workflow.EntryStatusApproved
	case *WorkLogReturned:
		e.Status = workflow.EntryStatusDraft
	case *WorkLogDeleted:
		e.Deleted = true
	default:
		return Errorf(CodeUnknownEventType, "work log entry cannot apply event %T", ev)
	}
	return nil
}

type workLogSnapshot struct {
	MemberID  uuid.UUID `json:"member_id"`
	ProjectID uuid.UUID `json:"project_id"`
	WorkDate  time.Time `json:"work_date"`
	Hours     float64   `json:"hours"`
	Comment   string    `json:"comment,omitempty"`
	Status    string    `json:"status"`
	EnteredBy uuid.UUID `json:"entered_by"`
	Deleted   bool      `json:"deleted,omitempty"`
}

func (e *WorkLogEntry) SnapshotState() ([]byte, error) {
	return marshalSnapshot(workLogSnapshot{
		MemberID:  e.MemberID,
		ProjectID: e.ProjectID,
		WorkDate:  e.WorkDate,
		Hours:     e.Hours,
		Comment:   e.Comment,
		Status:    e.Status,
		EnteredBy: e.EnteredBy,
		Deleted:   e.Deleted,
	})
}

func (e *WorkLogEntry) RestoreSnapshot(id uuid.UUID, version int, state []byte) error {
	var snap workLogSnapshot
	if err := unmarshalSnapshot(state, &snap); err != nil {
		return err
	}
	e.setID(id)
	e.MemberID = snap.MemberID
	e.ProjectID = snap.ProjectID
	e.WorkDate = snap.WorkDate
	e.Hours = snap.Hours
	e.Comment = snap.Comment
	e.Status = snap.Status
	e.EnteredBy = snap.EnteredBy
	e.Deleted = snap.Deleted
	e.setVersion(version)
	return nil
}
