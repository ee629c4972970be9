package domain

import (
	"github.com/google/uuid"

	"worklog-approval-system/shared/fiscal"
	"worklog-approval-system/shared/workflow"
)

const (
	EventApprovalOpened    = "approval_opened"
	EventApprovalSubmitted = "approval_submitted"
	EventApprovalApproved  = "approval_approved"
	EventApprovalRejected  = "approval_rejected"
	EventApprovalRecalled  = "approval_recalled"
)

// approvalNamespace seeds the deterministic (member, fiscal month) identity,
// so concurrent monthly submissions converge on the same aggregate and the
// optimistic lock arbitrates between them.
var approvalNamespace = uuid.MustParse("9f2c7a44-1b64-4c1b-8f0e-5a9c6d3e2b10")

func MonthlyApprovalID(memberID uuid.UUID, month fiscal.Month) uuid.UUID {
	return uuid.NewSHA1(approvalNamespace, []byte(memberID.String()+"/"+month.String()))
}

type ApprovalOpened struct {
	EventBase
	MemberID    uuid.UUID `json:"member_id"`
	FiscalMonth string    `json:"fiscal_month"`
}

func (ApprovalOpened) EventType() string { return EventApprovalOpened }

type ApprovalSubmitted struct {
	EventBase
	SubmittedBy uuid.UUID   `json:"submitted_by"`
	EntryIDs    []uuid.UUID `json:"entry_ids"`
	AbsenceIDs  []uuid.UUID `json:"absence_ids"`
}

func (ApprovalSubmitted) EventType() string { return EventApprovalSubmitted }

type ApprovalApproved struct {
	EventBase
	ApprovedBy uuid.UUID `json:"approved_by"`
}

func (ApprovalApproved) EventType() string { return EventApprovalApproved }

type ApprovalRejected struct {
	EventBase
	RejectedBy uuid.UUID `json:"rejected_by"`
	Reason     string    `json:"reason"`
}

func (ApprovalRejected) EventType() string { return EventApprovalRejected }

type ApprovalRecalled struct {
	EventBase
	RecalledBy uuid.UUID `json:"recalled_by"`
}

func (ApprovalRecalled) EventType() string { return EventApprovalRecalled }

// MonthlyApproval owns the set of entry and absence ids a member submitted
// for one fiscal month, and the review decision over that set.
type MonthlyApproval struct {
	Root
	MemberID    uuid.UUID
	FiscalMonth fiscal.Month
	Status      string
	EntryIDs    []uuid.UUID
	AbsenceIDs  []uuid.UUID
}

func NewMonthlyApproval() *MonthlyApproval {
	return &MonthlyApproval{}
}

func (m *MonthlyApproval) AggregateType() string { return AggregateTypeApproval }

func OpenMonthlyApproval(memberID uuid.UUID, month fiscal.Month) (*MonthlyApproval, error) {
	m := NewMonthlyApproval()
	if err := m.raise(&ApprovalOpened{
		EventBase:   newEventBase(MonthlyApprovalID(memberID, month)),
		MemberID:    memberID,
		FiscalMonth: month.String(),
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// Submit records the id sets going to review. A resubmission after rejection
// replaces the previous sets.
func (m *MonthlyApproval) Submit(submittedBy uuid.UUID, entryIDs []uuid.UUID, absenceIDs []uuid.UUID) error {
	if !workflow.CanTransitionApproval(m.Status, workflow.ApprovalStatusSubmitted) {
		return Errorf(CodeInvalidStatusTransition, "cannot submit approval %s from status %s", m.ID(), m.Status)
	}
	return m.raise(&ApprovalSubmitted{
		EventBase:   newEventBase(m.ID()),
		SubmittedBy: submittedBy,
		EntryIDs:    entryIDs,
		AbsenceIDs:  absenceIDs,
	})
}

func (m *MonthlyApproval) Approve(approvedBy uuid.UUID) error {
	if !workflow.CanTransitionApproval(m.Status, workflow.ApprovalStatusApproved) {
		return Errorf(CodeInvalidStatusTransition, "cannot approve approval %s from status %s", m.ID(), m.Status)
	}
	return m.raise(&ApprovalApproved{EventBase: newEventBase(m.ID()), ApprovedBy: approvedBy})
}

func (m *MonthlyApproval) Reject(rejectedBy uuid.UUID, reason string) error {
	if err := ValidateReason(reason); err != nil {
		return err
	}
	if !workflow.CanTransitionApproval(m.Status, workflow.ApprovalStatusRejected) {
		return Errorf(CodeInvalidStatusTransition, "cannot reject approval %s from status %s", m.ID(), m.Status)
	}
	return m.raise(&ApprovalRejected{EventBase: newEventBase(m.ID()), RejectedBy: rejectedBy, Reason: reason})
}

func (m *MonthlyApproval) Recall(recalledBy uuid.UUID) error {
	if !workflow.CanTransitionApproval(m.Status, workflow.ApprovalStatusPending) {
		return Errorf(CodeInvalidStatusTransition, "cannot recall approval %s from status %s", m.ID(), m.Status)
	}
	return m.raise(&ApprovalRecalled{EventBase: newEventBase(m.ID()), RecalledBy: recalledBy})
}

func (m *MonthlyApproval) raise(ev Event) error {
	if err := m.apply(ev); err != nil {
		return err
	}
	m.buffer(ev)
	return nil
}

func (m *MonthlyApproval) Replay(ev Event) error {
	if err := m.apply(ev); err != nil {
		return err
	}
	m.bump()
	return nil
}

func (m *MonthlyApproval) apply(ev Event) error {
	switch t := ev.(type) {
	case *ApprovalOpened:
		m.setID(t.Aggregate)
		m.MemberID = t.MemberID
		month, err := fiscal.Parse(t.FiscalMonth)
		if err != nil {
			return Errorf(CodeUnknownEventType, "approval %s carries bad fiscal month %q", t.Aggregate, t.FiscalMonth)
		}
		m.FiscalMonth = month
		m.Status = workflow.ApprovalStatusPending
	case *ApprovalSubmitted:
		m.Status = workflow.ApprovalStatusSubmitted
		m.EntryIDs = t.EntryIDs
		m.AbsenceIDs = t.AbsenceIDs
	case *ApprovalApproved:
		m.Status = workflow.ApprovalStatusApproved
	case *ApprovalRejected:
		m.Status = workflow.ApprovalStatusRejected
	case *ApprovalRecalled:
		m.Status = workflow.ApprovalStatusPending
		m.EntryIDs = nil
		m.AbsenceIDs = nil
	default:
		return Errorf(CodeUnknownEventType, "monthly approval cannot apply event %T", ev)
	}
	return nil
}

type approvalSnapshot struct {
	MemberID    uuid.UUID   `json:"member_id"`
	FiscalMonth string      `json:"fiscal_month"`
	Status      string      `json:"status"`
	EntryIDs    []uuid.UUID `json:"entry_ids,omitempty"`
	AbsenceIDs  []uuid.UUID `json:"absence_ids,omitempty"`
}

func (m *MonthlyApproval) SnapshotState() ([]byte, error) {
	return marshalSnapshot(approvalSnapshot{
		MemberID:    m.MemberID,
		FiscalMonth: m.FiscalMonth.String(),
		Status:      m.Status,
		EntryIDs:    m.EntryIDs,
		AbsenceIDs:  m.AbsenceIDs,
	})
}

func (m *MonthlyApproval) RestoreSnapshot(id uuid.UUID, version int, state []byte) error {
	var snap approvalSnapshot
	if err := unmarshalSnapshot(state, &snap); err != nil {
		return err
	}
	month, err := fiscal.Parse(snap.FiscalMonth)
	if err != nil {
		return Errorf(CodeUnknownEventType, "approval snapshot carries bad fiscal month %q", snap.FiscalMonth)
	}
	m.setID(id)
	m.MemberID = snap.MemberID
	m.FiscalMonth = month
	m.Status = snap.Status
	m.EntryIDs = snap.EntryIDs
	m.AbsenceIDs = snap.AbsenceIDs
	m.setVersion(version)
	return nil
}
