package domain

import (
	"time"

	"github.com/google/uuid"

	"worklog-approval-system/shared/workflow"
)

const (
	EventAbsenceRecorded  = "absence_recorded"
	EventAbsenceUpdated   = "absence_updated"
	EventAbsenceSubmitted = "absence_submitted"
	EventAbsenceApproved  = "absence_approved"
	EventAbsenceRejected  = "absence_rejected"
	EventAbsenceRecalled  = "absence_recalled"
	EventAbsenceReopened  = "absence_reopened"
	EventAbsenceDeleted   = "absence_deleted"
)

const (
	AbsenceTypePaidLeave    = "PAID_LEAVE"
	AbsenceTypeSickLeave    = "SICK_LEAVE"
	AbsenceTypeSpecialLeave = "SPECIAL_LEAVE"
	AbsenceTypeOther        = "OTHER"
)

func ValidAbsenceType(absenceType string) bool {
	switch absenceType {
	case AbsenceTypePaidLeave, AbsenceTypeSickLeave, AbsenceTypeSpecialLeave, AbsenceTypeOther:
		return true
	default:
		return false
	}
}

type AbsenceRecorded struct {
	EventBase
	MemberID    uuid.UUID `json:"member_id"`
	AbsenceType string    `json:"absence_type"`
	WorkDate    time.Time `json:"work_date"`
	Comment     string    `json:"comment,omitempty"`
	EnteredBy   uuid.UUID `json:"entered_by"`
}

func (AbsenceRecorded) EventType() string { return EventAbsenceRecorded }

type AbsenceUpdated struct {
	EventBase
	AbsenceType string    `json:"absence_type"`
	Comment     string    `json:"comment,omitempty"`
	UpdatedBy   uuid.UUID `json:"updated_by"`
}

func (AbsenceUpdated) EventType() string { return EventAbsenceUpdated }

type AbsenceSubmitted struct {
	EventBase
	SubmittedBy uuid.UUID `json:"submitted_by"`
}

func (AbsenceSubmitted) EventType() string { return EventAbsenceSubmitted }

type AbsenceApproved struct {
	EventBase
	ApprovedBy uuid.UUID `json:"approved_by"`
}

func (AbsenceApproved) EventType() string { return EventAbsenceApproved }

type AbsenceRejected struct {
	EventBase
	RejectedBy uuid.UUID `json:"rejected_by"`
	Reason     string    `json:"reason"`
}

func (AbsenceRejected) EventType() string { return EventAbsenceRejected }

type AbsenceRecalled struct {
	EventBase
	RecalledBy uuid.UUID `json:"recalled_by"`
}

func (AbsenceRecalled) EventType() string { return EventAbsenceRecalled }

type AbsenceReopened struct {
	EventBase
	ReopenedBy uuid.UUID `json:"reopened_by"`
}

func (AbsenceReopened) EventType() string { return EventAbsenceReopened }

type AbsenceDeleted struct {
	EventBase
	DeletedBy uuid.UUID `json:"deleted_by"`
}

func (AbsenceDeleted) EventType() string { return EventAbsenceDeleted }

// Absence mirrors the work-log machine but keeps an explicit rejected state:
// a rejected absence stays rejected until the member edits or deletes it,
// which reopens it as draft first.
type Absence struct {
	Root
	MemberID    uuid.UUID
	AbsenceType string
	WorkDate    time.Time
	Comment     string
	Status      string
	EnteredBy   uuid.UUID
	Deleted     bool
	Reason      string
}

func NewAbsence() *Absence {
	return &Absence{}
}

func (a *Absence) AggregateType() string { return AggregateTypeAbsence }

func RecordAbsence(memberID uuid.UUID, absenceType string, workDate time.Time, comment string, enteredBy uuid.UUID) (*Absence, error) {
	if !ValidAbsenceType(absenceType) {
		return nil, Errorf(CodeInvalidAbsenceType, "unknown absence type %q", absenceType)
	}
	if err := ValidateWorkDate(workDate); err != nil {
		return nil, err
	}
	if err := ValidateComment(comment); err != nil {
		return nil, err
	}
	a := NewAbsence()
	if err := a.raise(&AbsenceRecorded{
		EventBase:   newEventBase(uuid.New()),
		MemberID:    memberID,
		AbsenceType: absenceType,
		WorkDate:    Day(workDate),
		Comment:     comment,
		EnteredBy:   enteredBy,
	}); err != nil {
		return nil, err
	}
	return a, nil
}

// Update edits type and comment. Editing a rejected absence reopens it to
// draft before the field change is applied.
func (a *Absence) Update(absenceType string, comment string, updatedBy uuid.UUID) error {
	if !a.editable() {
		return Errorf(CodeNotEditable, "absence %s is not editable in status %s", a.ID(), a.Status)
	}
	if !ValidAbsenceType(absenceType) {
		return Errorf(CodeInvalidAbsenceType, "unknown absence type %q", absenceType)
	}
	if err := ValidateComment(comment); err != nil {
		return err
	}
	if a.Status == workflow.AbsenceStatusRejected {
		if err := a.raise(&AbsenceReopened{EventBase: newEventBase(a.ID()), ReopenedBy: updatedBy}); err != nil {
			return err
		}
	}
	return a.raise(&AbsenceUpdated{
		EventBase:   newEventBase(a.ID()),
		AbsenceType: absenceType,
		Comment:     comment,
		UpdatedBy:   updatedBy,
	})
}

func (a *Absence) Submit(submittedBy uuid.UUID) error {
	if a.Deleted {
		return Errorf(CodeNotFound, "absence %s is deleted", a.ID())
	}
	if !workflow.CanTransitionAbsence(a.Status, workflow.AbsenceStatusSubmitted) {
		return Errorf(CodeInvalidStatusTransition, "cannot submit absence %s from status %s", a.ID(), a.Status)
	}
	return a.raise(&AbsenceSubmitted{EventBase: newEventBase(a.ID()), SubmittedBy: submittedBy})
}

func (a *Absence) Approve(approvedBy uuid.UUID) error {
	if !workflow.CanTransitionAbsence(a.Status, workflow.AbsenceStatusApproved) {
		return Errorf(CodeInvalidStatusTransition, "cannot approve absence %s from status %s", a.ID(), a.Status)
	}
	return a.raise(&AbsenceApproved{EventBase: newEventBase(a.ID()), ApprovedBy: approvedBy})
}

func (a *Absence) Reject(rejectedBy uuid.UUID, reason string) error {
	if err := ValidateReason(reason); err != nil {
		return err
	}
	if !workflow.CanTransitionAbsence(a.Status, workflow.AbsenceStatusRejected) {
		return Errorf(CodeInvalidStatusTransition, "cannot reject absence %s from status %s", a.ID(), a.Status)
	}
	return a.raise(&AbsenceRejected{EventBase: newEventBase(a.ID()), RejectedBy: rejectedBy, Reason: reason})
}

func (a *Absence) Recall(recalledBy uuid.UUID) error {
	if !workflow.CanTransitionAbsence(a.Status, workflow.AbsenceStatusDraft) {
		return Errorf(CodeInvalidStatusTransition, "cannot recall absence %s from status %s", a.ID(), a.Status)
	}
	return a.raise(&AbsenceRecalled{EventBase: newEventBase(a.ID()), RecalledBy: recalledBy})
}

func (a *Absence) Delete(deletedBy uuid.UUID) error {
	if !a.editable() {
		return Errorf(CodeNotDeletable, "absence %s is not deletable in status %s", a.ID(), a.Status)
	}
	if a.Status == workflow.AbsenceStatusRejected {
		if err := a.raise(&AbsenceReopened{EventBase: newEventBase(a.ID()), ReopenedBy: deletedBy}); err != nil {
			return err
		}
	}
	return a.raise(&AbsenceDeleted{EventBase: newEventBase(a.ID()), DeletedBy: deletedBy})
}

func (a *Absence) editable() bool {
	return !a.Deleted && (a.Status == workflow.AbsenceStatusDraft || a.Status == workflow.AbsenceStatusRejected)
}

func (a *Absence) raise(ev Event) error {
	if err := a.apply(ev); err != nil {
		return err
	}
	a.buffer(ev)
	return nil
}

func (a *Absence) Replay(ev Event) error {
	if err := a.apply(ev); err != nil {
		return err
	}
	a.bump()
	return nil
}

func (a *Absence) apply(ev Event) error {
	switch t := ev.(type) {
	case *AbsenceRecorded:
		a.setID(t.Aggregate)
		a.MemberID = t.MemberID
		a.AbsenceType = t.AbsenceType
		a.WorkDate = t.WorkDate
		a.Comment = t.Comment
		a.EnteredBy = t.EnteredBy
		a.Status = workflow.AbsenceStatusDraft
	case *AbsenceUpdated:
		a.AbsenceType = t.AbsenceType
		a.Comment = t.Comment
	case *AbsenceSubmitted:
		a.Status = workflow.AbsenceStatusSubmitted
	case *AbsenceApproved:
		a.Status = workflow.AbsenceStatusApproved
	case *AbsenceRejected:
		a.Status = workflow.AbsenceStatusRejected
		a.Reason = t.Reason
	case *AbsenceRecalled:
		a.Status = workflow.AbsenceStatusDraft
	case *AbsenceReopened:
		a.Status = workflow.AbsenceStatusDraft
		a.Reason = ""
	case *AbsenceDeleted:
		a.Deleted = true
	default:
		return Errorf(CodeUnknownEventType, "absence cannot apply event %T", ev)
	}
	return nil
}

type absenceSnapshot struct {
	MemberID    uuid.UUID `json:"member_id"`
	AbsenceType string    `json:"absence_type"`
	WorkDate    time.Time `json:"work_date"`
	Comment     string    `json:"comment,omitempty"`
	Status      string    `json:"status"`
	EnteredBy   uuid.UUID `json:"entered_by"`
	Deleted     bool      `json:"deleted,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

func (a *Absence) SnapshotState() ([]byte, error) {
	return marshalSnapshot(absenceSnapshot{
		MemberID:    a.MemberID,
		AbsenceType: a.AbsenceType,
		WorkDate:    a.WorkDate,
		Comment:     a.Comment,
		Status:      a.Status,
		EnteredBy:   a.EnteredBy,
		Deleted:     a.Deleted,
		Reason:      a.Reason,
	})
}

func (a *Absence) RestoreSnapshot(id uuid.UUID, version int, state []byte) error {
	var snap absenceSnapshot
	if err := unmarshalSnapshot(state, &snap); err != nil {
		return err
	}
	a.setID(id)
	a.MemberID = snap.MemberID
	a.AbsenceType = snap.AbsenceType
	a.WorkDate = snap.WorkDate
	a.Comment = snap.Comment
	a.Status = snap.Status
	a.EnteredBy = snap.EnteredBy
	a.Deleted = snap.Deleted
	a.Reason = snap.Reason
	a.setVersion(version)
	return nil
}
