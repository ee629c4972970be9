package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"worklog-approval-system/shared/events"
	"worklog-approval-system/shared/fiscal"
	"worklog-approval-system/shared/workflow"
	"worklog-approval-system/timesheet/internal/domain"
	"worklog-approval-system/timesheet/internal/models"
)

type ApproveDay struct {
	MemberID uuid.UUID
	Day      time.Time
	ActorID  uuid.UUID
}

type ApproveMonth struct {
	MemberID uuid.UUID
	Month    fiscal.Month
	ActorID  uuid.UUID
}

type RejectDay struct {
	MemberID uuid.UUID
	Day      time.Time
	ActorID  uuid.UUID
	Reason   string
}

type RejectMonth struct {
	MemberID uuid.UUID
	Month    fiscal.Month
	ActorID  uuid.UUID
	Reason   string
}

// ApproveDayEntries approves everything the member has in review for one
// date. Approval is terminal: the entries become read-only.
func (s *Service) ApproveDayEntries(ctx context.Context, cmd ApproveDay) error {
	if err := s.requireManager(ctx, cmd.ActorID, cmd.MemberID); err != nil {
		return err
	}
	err := s.run(ctx, "approve.day", func(ctx context.Context, st Stores) error {
		from, to := dayWindow(cmd.Day)
		entryIDs, absenceIDs, total, err := s.decideWindow(ctx, st, cmd.MemberID, cmd.ActorID, from, to, true, "")
		if err != nil {
			return err
		}
		return notify(ctx, st, events.TopicApprovalDecisions, domain.AggregateTypeWorkLog, cmd.MemberID, "day_approved", events.ApprovalDecision{
			MemberID:   cmd.MemberID,
			WorkDate:   from.Format("2006-01-02"),
			DecidedBy:  cmd.ActorID,
			Decision:   "approved",
			EntryIDs:   idStrings(entryIDs),
			AbsenceIDs: idStrings(absenceIDs),
			TotalHours: total,
		})
	})
	s.writeAudit(cmd.ActorID, "approve.day", "member", cmd.MemberID, outcome(err), cmd)
	return err
}

// ApproveMonthEntries approves the monthly submission and cascades to every
// entry and absence recorded on it, in one transaction.
func (s *Service) ApproveMonthEntries(ctx context.Context, cmd ApproveMonth) error {
	if err := s.requireManager(ctx, cmd.ActorID, cmd.MemberID); err != nil {
		return err
	}
	err := s.run(ctx, "approve.month", func(ctx context.Context, st Stores) error {
		approval, err := st.Approvals().Load(ctx, domain.MonthlyApprovalID(cmd.MemberID, cmd.Month))
		if err != nil {
			return err
		}
		if err := approval.Approve(cmd.ActorID); err != nil {
			return err
		}

		// An entry decided or recalled at day level after the submission is
		// no longer part of the review set; the cascade passes over it.
		var entryIDs, absenceIDs []uuid.UUID
		var total float64
		for _, id := range approval.EntryIDs {
			entry, err := st.WorkLogs().Load(ctx, id)
			if err != nil {
				return err
			}
			if entry.Status != workflow.EntryStatusSubmitted {
				continue
			}
			if err := entry.Approve(cmd.ActorID); err != nil {
				return err
			}
			if err := st.WorkLogs().Save(ctx, entry); err != nil {
				return err
			}
			if err := st.Entries().UpsertEntry(ctx, entry); err != nil {
				return err
			}
			entryIDs = append(entryIDs, id)
			total += entry.Hours
		}
		for _, id := range approval.AbsenceIDs {
			absence, err := st.Absences().Load(ctx, id)
			if err != nil {
				return err
			}
			if absence.Status != workflow.AbsenceStatusSubmitted {
				continue
			}
			if err := absence.Approve(cmd.ActorID); err != nil {
				return err
			}
			if err := st.Absences().Save(ctx, absence); err != nil {
				return err
			}
			if err := st.Entries().UpsertAbsence(ctx, absence); err != nil {
				return err
			}
			absenceIDs = append(absenceIDs, id)
		}
		if err := st.Approvals().Save(ctx, approval); err != nil {
			return err
		}
		return notify(ctx, st, events.TopicApprovalDecisions, domain.AggregateTypeApproval, approval.ID(), "month_approved", events.ApprovalDecision{
			MemberID:    cmd.MemberID,
			FiscalMonth: cmd.Month.String(),
			DecidedBy:   cmd.ActorID,
			Decision:    "approved",
			EntryIDs:    idStrings(entryIDs),
			AbsenceIDs:  idStrings(absenceIDs),
			TotalHours:  total,
		})
	})
	s.writeAudit(cmd.ActorID, "approve.month", "member", cmd.MemberID, outcome(err), cmd)
	return err
}

// RejectDayEntries returns the member's submitted entries for one date to
// draft and records the reason on the daily rejection log. Rejecting the
// same day again overwrites the earlier note.
func (s *Service) RejectDayEntries(ctx context.Context, cmd RejectDay) error {
	if err := domain.ValidateReason(cmd.Reason); err != nil {
		return err
	}
	if err := s.requireManager(ctx, cmd.ActorID, cmd.MemberID); err != nil {
		return err
	}
	err := s.run(ctx, "reject.day", func(ctx context.Context, st Stores) error {
		from, to := dayWindow(cmd.Day)
		entryIDs, absenceIDs, _, err := s.decideWindow(ctx, st, cmd.MemberID, cmd.ActorID, from, to, false, cmd.Reason)
		if err != nil {
			return err
		}
		if err := st.Rejections().Upsert(ctx, models.DailyRejection{
			MemberID:   cmd.MemberID,
			WorkDate:   from,
			Reason:     cmd.Reason,
			RejectedBy: cmd.ActorID,
			EntryIDs:   entryIDs,
		}); err != nil {
			return err
		}
		return notify(ctx, st, events.TopicRejections, domain.AggregateTypeWorkLog, cmd.MemberID, "day_rejected", events.ApprovalDecision{
			MemberID:   cmd.MemberID,
			WorkDate:   from.Format("2006-01-02"),
			DecidedBy:  cmd.ActorID,
			Decision:   "rejected",
			EntryIDs:   idStrings(entryIDs),
			AbsenceIDs: idStrings(absenceIDs),
			Reason:     cmd.Reason,
		})
	})
	s.writeAudit(cmd.ActorID, "reject.day", "member", cmd.MemberID, outcome(err), cmd)
	return err
}

// RejectMonthEntries rejects the monthly submission: the approval moves to
// rejected, work-log entries drop back to draft, absences to their explicit
// rejected state, and each affected day gets a rejection-log row.
func (s *Service) RejectMonthEntries(ctx context.Context, cmd RejectMonth) error {
	if err := domain.ValidateReason(cmd.Reason); err != nil {
		return err
	}
	if err := s.requireManager(ctx, cmd.ActorID, cmd.MemberID); err != nil {
		return err
	}
	err := s.run(ctx, "reject.month", func(ctx context.Context, st Stores) error {
		approval, err := st.Approvals().Load(ctx, domain.MonthlyApprovalID(cmd.MemberID, cmd.Month))
		if err != nil {
			return err
		}
		if err := approval.Reject(cmd.ActorID, cmd.Reason); err != nil {
			return err
		}

		var entryIDs, absenceIDs []uuid.UUID
		entriesByDay := make(map[time.Time][]uuid.UUID)
		for _, id := range approval.EntryIDs {
			entry, err := st.WorkLogs().Load(ctx, id)
			if err != nil {
				return err
			}
			if entry.Status != workflow.EntryStatusSubmitted {
				continue
			}
			if err := entry.Reject(cmd.ActorID, cmd.Reason); err != nil {
				return err
			}
			if err := st.WorkLogs().Save(ctx, entry); err != nil {
				return err
			}
			if err := st.Entries().UpsertEntry(ctx, entry); err != nil {
				return err
			}
			entryIDs = append(entryIDs, id)
			day := domain.Day(entry.WorkDate)
			entriesByDay[day] = append(entriesByDay[day], id)
		}
		for _, id := range approval.AbsenceIDs {
			absence, err := st.Absences().Load(ctx, id)
			if err != nil {
				return err
			}
			if absence.Status != workflow.AbsenceStatusSubmitted {
				continue
			}
			if err := absence.Reject(cmd.ActorID, cmd.Reason); err != nil {
				return err
			}
			if err := st.Absences().Save(ctx, absence); err != nil {
				return err
			}
			if err := st.Entries().UpsertAbsence(ctx, absence); err != nil {
				return err
			}
			absenceIDs = append(absenceIDs, id)
		}
		for day, ids := range entriesByDay {
			if err := st.Rejections().Upsert(ctx, models.DailyRejection{
				MemberID:   cmd.MemberID,
				WorkDate:   day,
				Reason:     cmd.Reason,
				RejectedBy: cmd.ActorID,
				EntryIDs:   ids,
			}); err != nil {
				return err
			}
		}
		if err := st.Approvals().Save(ctx, approval); err != nil {
			return err
		}
		return notify(ctx, st, events.TopicRejections, domain.AggregateTypeApproval, approval.ID(), "month_rejected", events.ApprovalDecision{
			MemberID:    cmd.MemberID,
			FiscalMonth: cmd.Month.String(),
			DecidedBy:   cmd.ActorID,
			Decision:    "rejected",
			EntryIDs:    idStrings(entryIDs),
			AbsenceIDs:  idStrings(absenceIDs),
			Reason:      cmd.Reason,
		})
	})
	s.writeAudit(cmd.ActorID, "reject.month", "member", cmd.MemberID, outcome(err), cmd)
	return err
}

// decideWindow applies an approve or reject decision to every submitted
// entry and absence in [from, to). It returns the affected ids and the
// summed approved hours.
func (s *Service) decideWindow(ctx context.Context, st Stores, memberID uuid.UUID, actorID uuid.UUID, from time.Time, to time.Time, approve bool, reason string) ([]uuid.UUID, []uuid.UUID, float64, error) {
	entryRows, err := st.Entries().ListEntries(ctx, memberID, from, to)
	if err != nil {
		return nil, nil, 0, err
	}
	absenceRows, err := st.Entries().ListAbsences(ctx, memberID, from, to)
	if err != nil {
		return nil, nil, 0, err
	}

	var entryIDs, absenceIDs []uuid.UUID
	var total float64
	for _, row := range entryRows {
		if row.Status != workflow.EntryStatusSubmitted {
			continue
		}
		entry, err := st.WorkLogs().Load(ctx, row.EntryID)
		if err != nil {
			return nil, nil, 0, err
		}
		if approve {
			err = entry.Approve(actorID)
		} else {
			err = entry.Reject(actorID, reason)
		}
		if err != nil {
			return nil, nil, 0, err
		}
		if err := st.WorkLogs().Save(ctx, entry); err != nil {
			return nil, nil, 0, err
		}
		if err := st.Entries().UpsertEntry(ctx, entry); err != nil {
			return nil, nil, 0, err
		}
		entryIDs = append(entryIDs, row.EntryID)
		total += entry.Hours
	}
	for _, row := range absenceRows {
		if row.Status != workflow.AbsenceStatusSubmitted {
			continue
		}
		absence, err := st.Absences().Load(ctx, row.AbsenceID)
		if err != nil {
			return nil, nil, 0, err
		}
		if approve {
			err = absence.Approve(actorID)
		} else {
			err = absence.Reject(actorID, reason)
		}
		if err != nil {
			return nil, nil, 0, err
		}
		if err := st.Absences().Save(ctx, absence); err != nil {
			return nil, nil, 0, err
		}
		if err := st.Entries().UpsertAbsence(ctx, absence); err != nil {
			return nil, nil, 0, err
		}
		absenceIDs = append(absenceIDs, row.AbsenceID)
	}
	if len(entryIDs) == 0 && len(absenceIDs) == 0 {
		return nil, nil, 0, domain.Errorf(domain.CodeNotFound, "member %s has nothing submitted in this window", memberID)
	}
	return entryIDs, absenceIDs, total, nil
}
