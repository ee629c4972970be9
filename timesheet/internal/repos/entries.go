package repos

import (
	"context"
	"time"

	"github.com/google/uuid"

	"worklog-approval-system/timesheet/internal/domain"
	"worklog-approval-system/timesheet/internal/models"
)

// EntryIndex keeps the queryable mirror of the work-log and absence
// aggregates. Rows are upserted in the same transaction as the events they
// reflect; logically deleted rows stay but are filtered from every read.
type EntryIndex struct{}

func NewEntryIndex() *EntryIndex {
	return &EntryIndex{}
}

func (EntryIndex) UpsertEntry(ctx context.Context, db DBTX, e *domain.WorkLogEntry) error {
	_, err := db.Exec(ctx, `
		INSERT INTO worklog_entries (entry_id, member_id, project_id, work_date, hours, comment, status, entered_by, deleted, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (entry_id) DO UPDATE
		SET hours = EXCLUDED.hours, comment = EXCLUDED.comment, status = EXCLUDED.status,
			deleted = EXCLUDED.deleted, version = EXCLUDED.version, updated_at = now()
		WHERE worklog_entries.version < EXCLUDED.version
	`, e.ID(), e.MemberID, e.ProjectID, e.WorkDate, e.Hours, e.Comment, e.Status, e.EnteredBy, e.Deleted, e.Version())
	return err
}

func (EntryIndex) UpsertAbsence(ctx context.Context, db DBTX, a *domain.Absence) error {
	_, err := db.Exec(ctx, `
		INSERT INTO absences (absence_id, member_id, absence_type, work_date, comment, status, entered_by, deleted, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (absence_id) DO UPDATE
		SET absence_type = EXCLUDED.absence_type, comment = EXCLUDED.comment, status = EXCLUDED.status,
			deleted = EXCLUDED.deleted, version = EXCLUDED.version, updated_at = now()
		WHERE absences.version < EXCLUDED.version
	`, a.ID(), a.MemberID, a.AbsenceType, a.WorkDate, a.Comment, a.Status, a.EnteredBy, a.Deleted, a.Version())
	return err
}

// SumHoursForDay totals a member's live work-log hours on one date,
// optionally excluding the entry being written so an update counts its new
// hours instead of both.
func (EntryIndex) SumHoursForDay(ctx context.Context, db DBTX, memberID uuid.UUID, day time.Time, exclude uuid.UUID) (float64, error) {
	var total float64
	err := db.QueryRow(ctx, `
		SELECT COALESCE(SUM(hours), 0)
		FROM worklog_entries
		WHERE member_id = $1 AND work_date = $2 AND NOT deleted AND entry_id <> $3
	`, memberID, domain.Day(day), exclude).Scan(&total)
	return total, err
}

// ListEntries returns a member's live entries with work_date in [from, to).
func (EntryIndex) ListEntries(ctx context.Context, db DBTX, memberID uuid.UUID, from time.Time, to time.Time) ([]models.EntryRow, error) {
	rows, err := db.Query(ctx, `
		SELECT entry_id, member_id, project_id, work_date, hours, comment, status, entered_by, deleted, version, updated_at
		FROM worklog_entries
		WHERE member_id = $1 AND work_date >= $2 AND work_date < $3 AND NOT deleted
		ORDER BY work_date ASC, entry_id ASC
	`, memberID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.EntryRow
	for rows.Next() {
		var e models.EntryRow
		if err := rows.Scan(&e.EntryID, &e.MemberID, &e.ProjectID, &e.WorkDate, &e.Hours, &e.Comment, &e.Status, &e.EnteredBy, &e.Deleted, &e.Version, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListAbsences returns a member's live absences with work_date in [from, to).
func (EntryIndex) ListAbsences(ctx context.Context, db DBTX, memberID uuid.UUID, from time.Time, to time.Time) ([]models.AbsenceRow, error) {
	rows, err := db.Query(ctx, `
		SELECT absence_id, member_id, absence_type, work_date, comment, status, entered_by, deleted, version, updated_at
		FROM absences
		WHERE member_id = $1 AND work_date >= $2 AND work_date < $3 AND NOT deleted
		ORDER BY work_date ASC, absence_id ASC
	`, memberID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var absences []models.AbsenceRow
	for rows.Next() {
		var a models.AbsenceRow
		if err := rows.Scan(&a.AbsenceID, &a.MemberID, &a.AbsenceType, &a.WorkDate, &a.Comment, &a.Status, &a.EnteredBy, &a.Deleted, &a.Version, &a.UpdatedAt); err != nil {
			return nil, err
		}
		absences = append(absences, a)
	}
	return absences, rows.Err()
}
