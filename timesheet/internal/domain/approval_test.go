package domain

import (
	"testing"

	"github.com/google/uuid"

	"worklog-approval-system/shared/fiscal"
	"worklog-approval-system/shared/workflow"
)

func openedApproval(t *testing.T) *MonthlyApproval {
	t.Helper()
	month, err := fiscal.Parse("2026-07")
	if err != nil {
		t.Fatalf("parse month: %v", err)
	}
	m, err := OpenMonthlyApproval(uuid.New(), month)
	if err != nil {
		t.Fatalf("open approval: %v", err)
	}
	return m
}

func TestMonthlyApprovalIDIsDeterministic(t *testing.T) {
	member := uuid.New()
	month, _ := fiscal.Parse("2026-07")
	other, _ := fiscal.Parse("2026-08")

	if MonthlyApprovalID(member, month) != MonthlyApprovalID(member, month) {
		t.Fatalf("same member and month must map to the same id")
	}
	if MonthlyApprovalID(member, month) == MonthlyApprovalID(member, other) {
		t.Fatalf("different months must map to different ids")
	}
	if MonthlyApprovalID(member, month) == MonthlyApprovalID(uuid.New(), month) {
		t.Fatalf("different members must map to different ids")
	}
}

func TestMonthlyApprovalLifecycle(t *testing.T) {
	m := openedApproval(t)
	if m.Status != workflow.ApprovalStatusPending {
		t.Fatalf("opened approval should be pending, got %s", m.Status)
	}
	if m.ID() != MonthlyApprovalID(m.MemberID, m.FiscalMonth) {
		t.Fatalf("approval id must be derived from member and month")
	}

	entries := []uuid.UUID{uuid.New(), uuid.New()}
	absences := []uuid.UUID{uuid.New()}
	if err := m.Submit(m.MemberID, entries, absences); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(m.EntryIDs) != 2 || len(m.AbsenceIDs) != 1 {
		t.Fatalf("submitted id sets not kept: %d entries, %d absences", len(m.EntryIDs), len(m.AbsenceIDs))
	}
	if err := m.Submit(m.MemberID, entries, absences); ErrorCode(err) != CodeInvalidStatusTransition {
		t.Fatalf("double submit should be rejected, got %v", err)
	}
	if err := m.Approve(uuid.New()); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := m.Reject(uuid.New(), "too late"); ErrorCode(err) != CodeInvalidStatusTransition {
		t.Fatalf("approved month should not be rejectable, got %v", err)
	}
	if err := m.Recall(m.MemberID); ErrorCode(err) != CodeInvalidStatusTransition {
		t.Fatalf("approved month should not be recallable, got %v", err)
	}
}

func TestMonthlyApprovalRejectThenResubmit(t *testing.T) {
	m := openedApproval(t)
	if err := m.Submit(m.MemberID, []uuid.UUID{uuid.New()}, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := m.Reject(uuid.New(), ""); ErrorCode(err) != CodeReasonRequired {
		t.Fatalf("blank reason should be rejected, got %v", err)
	}
	if err := m.Reject(uuid.New(), "missing fridays"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if m.Status != workflow.ApprovalStatusRejected {
		t.Fatalf("expected rejected, got %s", m.Status)
	}

	replacement := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	if err := m.Submit(m.MemberID, replacement, nil); err != nil {
		t.Fatalf("resubmit after rejection: %v", err)
	}
	if len(m.EntryIDs) != 3 {
		t.Fatalf("resubmission should replace the entry set, got %d", len(m.EntryIDs))
	}
}

func TestMonthlyApprovalRecallClearsSets(t *testing.T) {
	m := openedApproval(t)
	if err := m.Submit(m.MemberID, []uuid.UUID{uuid.New()}, []uuid.UUID{uuid.New()}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := m.Recall(m.MemberID); err != nil {
		t.Fatalf("recall: %v", err)
	}
	if m.Status != workflow.ApprovalStatusPending {
		t.Fatalf("recalled month should be pending, got %s", m.Status)
	}
	if len(m.EntryIDs) != 0 || len(m.AbsenceIDs) != 0 {
		t.Fatalf("recall should clear the submitted sets")
	}
}

func TestMonthlyApprovalReplayAndSnapshot(t *testing.T) {
	m := openedApproval(t)
	if err := m.Submit(m.MemberID, []uuid.UUID{uuid.New()}, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	history := m.Uncommitted()

	replayed := NewMonthlyApproval()
	for _, ev := range history {
		if err := replayed.Replay(ev); err != nil {
			t.Fatalf("replay: %v", err)
		}
	}
	if replayed.ID() != m.ID() || replayed.Status != m.Status || replayed.FiscalMonth != m.FiscalMonth {
		t.Fatalf("replayed state diverged: %+v vs %+v", replayed, m)
	}

	m.MarkCommitted(len(history))
	state, err := m.SnapshotState()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	restored := NewMonthlyApproval()
	if err := restored.RestoreSnapshot(m.ID(), m.Version(), state); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Status != m.Status || restored.FiscalMonth != m.FiscalMonth || len(restored.EntryIDs) != len(m.EntryIDs) {
		t.Fatalf("restored state mismatch: %+v vs %+v", restored, m)
	}
}
