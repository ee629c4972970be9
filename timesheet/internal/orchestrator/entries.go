package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"worklog-approval-system/timesheet/internal/domain"
)

type CreateEntry struct {
	MemberID  uuid.UUID
	ProjectID uuid.UUID
	WorkDate  time.Time
	Hours     float64
	Comment   string
	ActorID   uuid.UUID
}

type UpdateEntry struct {
	EntryID uuid.UUID
	Hours   float64
	Comment string
	ActorID uuid.UUID
}

type DeleteEntry struct {
	EntryID uuid.UUID
	ActorID uuid.UUID
}

type CreateAbsence struct {
	MemberID    uuid.UUID
	AbsenceType string
	WorkDate    time.Time
	Comment     string
	ActorID     uuid.UUID
}

type UpdateAbsence struct {
	AbsenceID   uuid.UUID
	AbsenceType string
	Comment     string
	ActorID     uuid.UUID
}

type DeleteAbsence struct {
	AbsenceID uuid.UUID
	ActorID   uuid.UUID
}

// CreateWorkLog records a new draft entry. A proxy actor must be in the
// member's management chain, the member may hold only one live entry per
// project and date, and the member's daily total across all projects may
// not exceed the 24-hour cap.
func (s *Service) CreateWorkLog(ctx context.Context, cmd CreateEntry) (uuid.UUID, error) {
	if err := s.authorizeActor(ctx, cmd.ActorID, cmd.MemberID); err != nil {
		return uuid.Nil, err
	}
	var entryID uuid.UUID
	err := s.run(ctx, "worklog.create", func(ctx context.Context, st Stores) error {
		entry, err := domain.RecordWorkLog(cmd.MemberID, cmd.ProjectID, cmd.WorkDate, cmd.Hours, cmd.Comment, cmd.ActorID)
		if err != nil {
			return err
		}
		if err := s.checkUniqueEntry(ctx, st, cmd.MemberID, cmd.ProjectID, entry.WorkDate); err != nil {
			return err
		}
		if err := s.checkDailyLimit(ctx, st, cmd.MemberID, entry.WorkDate, entry.ID(), cmd.Hours); err != nil {
			return err
		}
		if err := st.WorkLogs().Save(ctx, entry); err != nil {
			return err
		}
		if err := st.Entries().UpsertEntry(ctx, entry); err != nil {
			return err
		}
		entryID = entry.ID()
		return nil
	})
	s.writeAudit(cmd.ActorID, "worklog.create", "worklog_entry", entryID, outcome(err), cmd)
	return entryID, err
}

func (s *Service) UpdateWorkLog(ctx context.Context, cmd UpdateEntry) error {
	err := s.run(ctx, "worklog.update", func(ctx context.Context, st Stores) error {
		entry, err := st.WorkLogs().Load(ctx, cmd.EntryID)
		if err != nil {
			return err
		}
		if err := s.authorizeActor(ctx, cmd.ActorID, entry.MemberID); err != nil {
			return err
		}
		if err := s.checkDailyLimit(ctx, st, entry.MemberID, entry.WorkDate, entry.ID(), cmd.Hours); err != nil {
			return err
		}
		if err := entry.Update(cmd.Hours, cmd.Comment, cmd.ActorID); err != nil {
			return err
		}
		if err := st.WorkLogs().Save(ctx, entry); err != nil {
			return err
		}
		return st.Entries().UpsertEntry(ctx, entry)
	})
	s.writeAudit(cmd.ActorID, "worklog.update", "worklog_entry", cmd.EntryID, outcome(err), cmd)
	return err
}

func (s *Service) DeleteWorkLog(ctx context.Context, cmd DeleteEntry) error {
	err := s.run(ctx, "worklog.delete", func(ctx context.Context, st Stores) error {
		entry, err := st.WorkLogs().Load(ctx, cmd.EntryID)
		if err != nil {
			return err
		}
		if err := s.authorizeActor(ctx, cmd.ActorID, entry.MemberID); err != nil {
			return err
		}
		if err := entry.Delete(cmd.ActorID); err != nil {
			return err
		}
		if err := st.WorkLogs().Save(ctx, entry); err != nil {
			return err
		}
		return st.Entries().UpsertEntry(ctx, entry)
	})
	s.writeAudit(cmd.ActorID, "worklog.delete", "worklog_entry", cmd.EntryID, outcome(err), cmd)
	return err
}

// RecordAbsence creates a draft absence. Absences carry no hours, so the
// daily cap does not apply.
func (s *Service) RecordAbsence(ctx context.Context, cmd CreateAbsence) (uuid.UUID, error) {
	if err := s.authorizeActor(ctx, cmd.ActorID, cmd.MemberID); err != nil {
		return uuid.Nil, err
	}
	var absenceID uuid.UUID
	err := s.run(ctx, "absence.create", func(ctx context.Context, st Stores) error {
		absence, err := domain.RecordAbsence(cmd.MemberID, cmd.AbsenceType, cmd.WorkDate, cmd.Comment, cmd.ActorID)
		if err != nil {
			return err
		}
		if err := st.Absences().Save(ctx, absence); err != nil {
			return err
		}
		if err := st.Entries().UpsertAbsence(ctx, absence); err != nil {
			return err
		}
		absenceID = absence.ID()
		return nil
	})
	s.writeAudit(cmd.ActorID, "absence.create", "absence", absenceID, outcome(err), cmd)
	return absenceID, err
}

func (s *Service) UpdateAbsenceRecord(ctx context.Context, cmd UpdateAbsence) error {
	err := s.run(ctx, "absence.update", func(ctx context.Context, st Stores) error {
		absence, err := st.Absences().Load(ctx, cmd.AbsenceID)
		if err != nil {
			return err
		}
		if err := s.authorizeActor(ctx, cmd.ActorID, absence.MemberID); err != nil {
			return err
		}
		if err := absence.Update(cmd.AbsenceType, cmd.Comment, cmd.ActorID); err != nil {
			return err
		}
		if err := st.Absences().Save(ctx, absence); err != nil {
			return err
		}
		return st.Entries().UpsertAbsence(ctx, absence)
	})
	s.writeAudit(cmd.ActorID, "absence.update", "absence", cmd.AbsenceID, outcome(err), cmd)
	return err
}

func (s *Service) DeleteAbsenceRecord(ctx context.Context, cmd DeleteAbsence) error {
	err := s.run(ctx, "absence.delete", func(ctx context.Context, st Stores) error {
		absence, err := st.Absences().Load(ctx, cmd.AbsenceID)
		if err != nil {
			return err
		}
		if err := s.authorizeActor(ctx, cmd.ActorID, absence.MemberID); err != nil {
			return err
		}
		if err := absence.Delete(cmd.ActorID); err != nil {
			return err
		}
		if err := st.Absences().Save(ctx, absence); err != nil {
			return err
		}
		return st.Entries().UpsertAbsence(ctx, absence)
	})
	s.writeAudit(cmd.ActorID, "absence.delete", "absence", cmd.AbsenceID, outcome(err), cmd)
	return err
}
