package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"worklog-approval-system/shared/events"
	"worklog-approval-system/shared/fiscal"
	"worklog-approval-system/shared/workflow"
	"worklog-approval-system/timesheet/internal/domain"
)

type SubmitDay struct {
	MemberID uuid.UUID
	Day      time.Time
	ActorID  uuid.UUID
}

type SubmitMonth struct {
	MemberID uuid.UUID
	Month    fiscal.Month
	ActorID  uuid.UUID
}

type RecallDay struct {
	MemberID uuid.UUID
	Day      time.Time
	ActorID  uuid.UUID
}

type RecallMonth struct {
	MemberID uuid.UUID
	Month    fiscal.Month
	ActorID  uuid.UUID
}

func dayWindow(day time.Time) (time.Time, time.Time) {
	from := domain.Day(day)
	return from, from.AddDate(0, 0, 1)
}

// SubmitDayEntries moves every draft entry and absence of the member on the
// given date to submitted, as one transaction: either the whole day goes to
// review or none of it does.
func (s *Service) SubmitDayEntries(ctx context.Context, cmd SubmitDay) error {
	if err := s.authorizeActor(ctx, cmd.ActorID, cmd.MemberID); err != nil {
		return err
	}
	err := s.run(ctx, "submit.day", func(ctx context.Context, st Stores) error {
		from, to := dayWindow(cmd.Day)
		entryIDs, absenceIDs, err := s.submitWindow(ctx, st, cmd.MemberID, cmd.ActorID, from, to)
		if err != nil {
			return err
		}
		if len(entryIDs) == 0 && len(absenceIDs) == 0 {
			return domain.Errorf(domain.CodeNotFound, "member %s has no draft entries on %s", cmd.MemberID, from.Format("2006-01-02"))
		}
		return notify(ctx, st, events.TopicSubmissions, domain.AggregateTypeWorkLog, cmd.MemberID, "day_submitted", events.Submission{
			MemberID:    cmd.MemberID,
			WorkDate:    from.Format("2006-01-02"),
			SubmittedBy: cmd.ActorID,
			EntryIDs:    idStrings(entryIDs),
			AbsenceIDs:  idStrings(absenceIDs),
		})
	})
	s.writeAudit(cmd.ActorID, "submit.day", "member", cmd.MemberID, outcome(err), cmd)
	return err
}

// SubmitMonthEntries submits every draft in the fiscal window and records
// the submitted id sets on the member's monthly approval. The approval
// aggregate is created on first submission and reused on resubmission.
func (s *Service) SubmitMonthEntries(ctx context.Context, cmd SubmitMonth) error {
	if err := s.authorizeActor(ctx, cmd.ActorID, cmd.MemberID); err != nil {
		return err
	}
	err := s.run(ctx, "submit.month", func(ctx context.Context, st Stores) error {
		from, to := cmd.Month.Window(s.cfg.FiscalStartDay)
		entryIDs, absenceIDs, err := s.submitWindow(ctx, st, cmd.MemberID, cmd.ActorID, from, to)
		if err != nil {
			return err
		}
		if len(entryIDs) == 0 && len(absenceIDs) == 0 {
			return domain.Errorf(domain.CodeNotFound, "member %s has no draft entries in %s", cmd.MemberID, cmd.Month)
		}

		approval, err := s.loadOrOpenApproval(ctx, st, cmd.MemberID, cmd.Month)
		if err != nil {
			return err
		}
		if err := approval.Submit(cmd.ActorID, entryIDs, absenceIDs); err != nil {
			return err
		}
		if err := st.Approvals().Save(ctx, approval); err != nil {
			return err
		}
		return notify(ctx, st, events.TopicSubmissions, domain.AggregateTypeApproval, approval.ID(), "month_submitted", events.Submission{
			MemberID:    cmd.MemberID,
			FiscalMonth: cmd.Month.String(),
			SubmittedBy: cmd.ActorID,
			EntryIDs:    idStrings(entryIDs),
			AbsenceIDs:  idStrings(absenceIDs),
		})
	})
	s.writeAudit(cmd.ActorID, "submit.month", "member", cmd.MemberID, outcome(err), cmd)
	return err
}

// RecallDayEntries takes the member's submitted entries for one date back to
// draft. Recall is strictly personal, a manager cannot do it by proxy.
func (s *Service) RecallDayEntries(ctx context.Context, cmd RecallDay) error {
	if err := requireSelf(cmd.ActorID, cmd.MemberID); err != nil {
		return err
	}
	err := s.run(ctx, "recall.day", func(ctx context.Context, st Stores) error {
		from, to := dayWindow(cmd.Day)
		return s.recallWindow(ctx, st, cmd.MemberID, cmd.ActorID, from, to)
	})
	s.writeAudit(cmd.ActorID, "recall.day", "member", cmd.MemberID, outcome(err), cmd)
	return err
}

// RecallMonthEntries reverses a monthly submission that has not been decided
// yet: the approval returns to pending and every referenced entry and
// absence goes back to draft.
func (s *Service) RecallMonthEntries(ctx context.Context, cmd RecallMonth) error {
	if err := requireSelf(cmd.ActorID, cmd.MemberID); err != nil {
		return err
	}
	err := s.run(ctx, "recall.month", func(ctx context.Context, st Stores) error {
		approval, err := st.Approvals().Load(ctx, domain.MonthlyApprovalID(cmd.MemberID, cmd.Month))
		if err != nil {
			return err
		}
		if err := approval.Recall(cmd.ActorID); err != nil {
			return err
		}

		// Entries already recalled or decided at day level are left as
		// they are; the recall only pulls back what is still in review.
		for _, id := range approval.EntryIDs {
			entry, err := st.WorkLogs().Load(ctx, id)
			if err != nil {
				return err
			}
			if entry.Status != workflow.EntryStatusSubmitted {
				continue
			}
			if err := entry.Recall(cmd.ActorID); err != nil {
				return err
			}
			if err := st.WorkLogs().Save(ctx, entry); err != nil {
				return err
			}
			if err := st.Entries().UpsertEntry(ctx, entry); err != nil {
				return err
			}
		}
		for _, id := range approval.AbsenceIDs {
			absence, err := st.Absences().Load(ctx, id)
			if err != nil {
				return err
			}
			if absence.Status != workflow.AbsenceStatusSubmitted {
				continue
			}
			if err := absence.Recall(cmd.ActorID); err != nil {
				return err
			}
			if err := st.Absences().Save(ctx, absence); err != nil {
				return err
			}
			if err := st.Entries().UpsertAbsence(ctx, absence); err != nil {
				return err
			}
		}
		return st.Approvals().Save(ctx, approval)
	})
	s.writeAudit(cmd.ActorID, "recall.month", "member", cmd.MemberID, outcome(err), cmd)
	return err
}

// submitWindow submits every draft entry and absence in [from, to) and
// returns the ids that ended up submitted, including ones already in review
// from an earlier partial submission.
func (s *Service) submitWindow(ctx context.Context, st Stores, memberID uuid.UUID, actorID uuid.UUID, from time.Time, to time.Time) ([]uuid.UUID, []uuid.UUID, error) {
	entryRows, err := st.Entries().ListEntries(ctx, memberID, from, to)
	if err != nil {
		return nil, nil, err
	}
	absenceRows, err := st.Entries().ListAbsences(ctx, memberID, from, to)
	if err != nil {
		return nil, nil, err
	}

	var entryIDs []uuid.UUID
	for _, row := range entryRows {
		switch row.Status {
		case workflow.EntryStatusDraft:
			entry, err := st.WorkLogs().Load(ctx, row.EntryID)
			if err != nil {
				return nil, nil, err
			}
			if err := entry.Submit(actorID); err != nil {
				return nil, nil, err
			}
			if err := st.WorkLogs().Save(ctx, entry); err != nil {
				return nil, nil, err
			}
			if err := st.Entries().UpsertEntry(ctx, entry); err != nil {
				return nil, nil, err
			}
			entryIDs = append(entryIDs, row.EntryID)
		case workflow.EntryStatusSubmitted:
			entryIDs = append(entryIDs, row.EntryID)
		}
	}

	var absenceIDs []uuid.UUID
	for _, row := range absenceRows {
		switch row.Status {
		case workflow.AbsenceStatusDraft:
			absence, err := st.Absences().Load(ctx, row.AbsenceID)
			if err != nil {
				return nil, nil, err
			}
			if err := absence.Submit(actorID); err != nil {
				return nil, nil, err
			}
			if err := st.Absences().Save(ctx, absence); err != nil {
				return nil, nil, err
			}
			if err := st.Entries().UpsertAbsence(ctx, absence); err != nil {
				return nil, nil, err
			}
			absenceIDs = append(absenceIDs, row.AbsenceID)
		case workflow.AbsenceStatusSubmitted:
			absenceIDs = append(absenceIDs, row.AbsenceID)
		}
	}
	return entryIDs, absenceIDs, nil
}

func (s *Service) recallWindow(ctx context.Context, st Stores, memberID uuid.UUID, actorID uuid.UUID, from time.Time, to time.Time) error {
	entryRows, err := st.Entries().ListEntries(ctx, memberID, from, to)
	if err != nil {
		return err
	}
	absenceRows, err := st.Entries().ListAbsences(ctx, memberID, from, to)
	if err != nil {
		return err
	}

	recalled := 0
	for _, row := range entryRows {
		if row.Status != workflow.EntryStatusSubmitted {
			continue
		}
		entry, err := st.WorkLogs().Load(ctx, row.EntryID)
		if err != nil {
			return err
		}
		if err := entry.Recall(actorID); err != nil {
			return err
		}
		if err := st.WorkLogs().Save(ctx, entry); err != nil {
			return err
		}
		if err := st.Entries().UpsertEntry(ctx, entry); err != nil {
			return err
		}
		recalled++
	}
	for _, row := range absenceRows {
		if row.Status != workflow.AbsenceStatusSubmitted {
			continue
		}
		absence, err := st.Absences().Load(ctx, row.AbsenceID)
		if err != nil {
			return err
		}
		if err := absence.Recall(actorID); err != nil {
			return err
		}
		if err := st.Absences().Save(ctx, absence); err != nil {
			return err
		}
		if err := st.Entries().UpsertAbsence(ctx, absence); err != nil {
			return err
		}
		recalled++
	}
	if recalled == 0 {
		return domain.Errorf(domain.CodeNotFound, "member %s has nothing submitted in this window", memberID)
	}
	return nil
}

// loadOrOpenApproval finds the member's approval for the month, creating it
// on first use. The id is derived from (member, month), so two concurrent
// first submissions collide on the version check instead of forking.
func (s *Service) loadOrOpenApproval(ctx context.Context, st Stores, memberID uuid.UUID, month fiscal.Month) (*domain.MonthlyApproval, error) {
	approval, err := st.Approvals().Load(ctx, domain.MonthlyApprovalID(memberID, month))
	if err == nil {
		return approval, nil
	}
	if !domain.IsCode(err, domain.CodeNotFound) {
		return nil, err
	}
	return domain.OpenMonthlyApproval(memberID, month)
}

func idStrings(ids []uuid.UUID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
