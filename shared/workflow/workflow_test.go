package workflow

import "testing"

func TestEntryTransitions(t *testing.T) {
	if !CanTransitionEntry(EntryStatusDraft, EntryStatusSubmitted) {
		t.Fatalf("expected draft -> submitted to be allowed")
	}
	if !CanTransitionEntry(EntryStatusSubmitted, EntryStatusDraft) {
		t.Fatalf("expected submitted -> draft to be allowed")
	}
	if CanTransitionEntry(EntryStatusApproved, EntryStatusDraft) {
		t.Fatalf("expected approved -> draft to be blocked")
	}
	if CanTransitionEntry(EntryStatusDraft, EntryStatusApproved) {
		t.Fatalf("expected draft -> approved to be blocked")
	}
	if CanTransitionEntry(EntryStatusSubmitted, EntryStatusSubmitted) {
		t.Fatalf("expected submitted -> submitted to be blocked")
	}
}

func TestAbsenceRejectedReopens(t *testing.T) {
	if !CanTransitionAbsence(AbsenceStatusSubmitted, AbsenceStatusRejected) {
		t.Fatalf("expected submitted -> rejected to be allowed")
	}
	if !CanTransitionAbsence(AbsenceStatusRejected, AbsenceStatusDraft) {
		t.Fatalf("expected rejected -> draft to be allowed")
	}
	if CanTransitionAbsence(AbsenceStatusRejected, AbsenceStatusApproved) {
		t.Fatalf("expected rejected -> approved to be blocked")
	}
}

func TestApprovalTransitionNames(t *testing.T) {
	if got := ApprovalTransitionName(ApprovalStatusPending, ApprovalStatusSubmitted); got != TransitionSubmitted {
		t.Fatalf("unexpected transition name: %q", got)
	}
	if got := ApprovalTransitionName(ApprovalStatusApproved, ApprovalStatusSubmitted); got != "" {
		t.Fatalf("expected empty name for illegal transition, got %q", got)
	}
}
