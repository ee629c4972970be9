package workflow

import "strings"

const (
	EntryStatusDraft     = "draft"
	EntryStatusSubmitted = "submitted"
	EntryStatusApproved  = "approved"
)

const (
	AbsenceStatusDraft     = "draft"
	AbsenceStatusSubmitted = "submitted"
	AbsenceStatusApproved  = "approved"
	AbsenceStatusRejected  = "rejected"
)

const (
	ApprovalStatusPending   = "pending"
	ApprovalStatusSubmitted = "submitted"
	ApprovalStatusApproved  = "approved"
	ApprovalStatusRejected  = "rejected"
)

const (
	TransitionSubmitted = "submitted"
	TransitionApproved  = "approved"
	TransitionRejected  = "rejected"
	TransitionRecalled  = "recalled"
	TransitionReopened  = "reopened"
)

// approved is terminal in every machine: no outgoing edges.
var entryTransitions = map[string]map[string]string{
	EntryStatusDraft: {
		EntryStatusSubmitted: TransitionSubmitted,
	},
	EntryStatusSubmitted: {
		EntryStatusApproved: TransitionApproved,
		EntryStatusDraft:    TransitionRejected,
	},
}

var absenceTransitions = map[string]map[string]string{
	AbsenceStatusDraft: {
		AbsenceStatusSubmitted: TransitionSubmitted,
	},
	AbsenceStatusSubmitted: {
		AbsenceStatusApproved: TransitionApproved,
		AbsenceStatusRejected: TransitionRejected,
		AbsenceStatusDraft:    TransitionRecalled,
	},
	AbsenceStatusRejected: {
		AbsenceStatusDraft: TransitionReopened,
	},
}

var approvalTransitions = map[string]map[string]string{
	ApprovalStatusPending: {
		ApprovalStatusSubmitted: TransitionSubmitted,
	},
	ApprovalStatusSubmitted: {
		ApprovalStatusApproved: TransitionApproved,
		ApprovalStatusRejected: TransitionRejected,
		ApprovalStatusPending:  TransitionRecalled,
	},
	ApprovalStatusRejected: {
		ApprovalStatusSubmitted: TransitionSubmitted,
	},
}

func Normalize(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

func CanTransitionEntry(fromStatus string, toStatus string) bool {
	return canTransition(entryTransitions, fromStatus, toStatus)
}

func CanTransitionAbsence(fromStatus string, toStatus string) bool {
	return canTransition(absenceTransitions, fromStatus, toStatus)
}

func CanTransitionApproval(fromStatus string, toStatus string) bool {
	return canTransition(approvalTransitions, fromStatus, toStatus)
}

func EntryTransitionName(fromStatus string, toStatus string) string {
	return transitionName(entryTransitions, fromStatus, toStatus)
}

func AbsenceTransitionName(fromStatus string, toStatus string) string {
	return transitionName(absenceTransitions, fromStatus, toStatus)
}

func ApprovalTransitionName(fromStatus string, toStatus string) string {
	return transitionName(approvalTransitions, fromStatus, toStatus)
}

func canTransition(table map[string]map[string]string, fromStatus string, toStatus string) bool {
	fromStatus = Normalize(fromStatus)
	toStatus = Normalize(toStatus)
	next := table[fromStatus]
	if next == nil {
		return false
	}
	_, ok := next[toStatus]
	return ok
}

func transitionName(table map[string]map[string]string, fromStatus string, toStatus string) string {
	fromStatus = Normalize(fromStatus)
	toStatus = Normalize(toStatus)
	if fromStatus == toStatus {
		return ""
	}
	next := table[fromStatus]
	if next == nil {
		return ""
	}
	return next[toStatus]
}

func AllEntryStatuses() []string {
	return []string{EntryStatusDraft, EntryStatusSubmitted, EntryStatusApproved}
}

func AllAbsenceStatuses() []string {
	return []string{AbsenceStatusDraft, AbsenceStatusSubmitted, AbsenceStatusApproved, AbsenceStatusRejected}
}

func AllApprovalStatuses() []string {
	return []string{ApprovalStatusPending, ApprovalStatusSubmitted, ApprovalStatusApproved, ApprovalStatusRejected}
}
