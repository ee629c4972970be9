package repos

import (
	"context"
	"time"

	"github.com/google/uuid"

	"worklog-approval-system/shared/fiscal"
	"worklog-approval-system/timesheet/internal/models"
)

// CalendarRepo maintains the monthly calendar projection: one row per member
// per work date, carrying the summed hours and any absence for that day.
type CalendarRepo struct{}

func NewCalendarRepo() *CalendarRepo {
	return &CalendarRepo{}
}

// RebuildMonth recomputes a member's calendar for one fiscal month from the
// entry and absence read models. Delete-then-insert inside the caller's
// transaction keeps readers from ever seeing a half-built month.
func (CalendarRepo) RebuildMonth(ctx context.Context, db DBTX, memberID uuid.UUID, month fiscal.Month, startDay int) error {
	from, to := month.Window(startDay)

	_, err := db.Exec(ctx, `
		DELETE FROM monthly_calendar WHERE member_id = $1 AND fiscal_month = $2
	`, memberID, month.String())
	if err != nil {
		return err
	}

	_, err = db.Exec(ctx, `
		INSERT INTO monthly_calendar (member_id, work_date, fiscal_month, total_hours, absence_type, status, rebuilt_at)
		SELECT
			$1,
			d.work_date,
			$2,
			COALESCE(h.total_hours, 0),
			a.absence_type,
			COALESCE(h.status, a.status, 'draft'),
			now()
		FROM (
			SELECT DISTINCT work_date FROM worklog_entries
			WHERE member_id = $1 AND work_date >= $3 AND work_date < $4 AND NOT deleted
			UNION
			SELECT DISTINCT work_date FROM absences
			WHERE member_id = $1 AND work_date >= $3 AND work_date < $4 AND NOT deleted
		) d
		LEFT JOIN (
			SELECT work_date, SUM(hours) AS total_hours, MIN(status) AS status
			FROM worklog_entries
			WHERE member_id = $1 AND work_date >= $3 AND work_date < $4 AND NOT deleted
			GROUP BY work_date
		) h ON h.work_date = d.work_date
		LEFT JOIN (
			SELECT DISTINCT ON (work_date) work_date, absence_type, status
			FROM absences
			WHERE member_id = $1 AND work_date >= $3 AND work_date < $4 AND NOT deleted
			ORDER BY work_date, updated_at DESC
		) a ON a.work_date = d.work_date
	`, memberID, month.String(), from, to)
	return err
}

func (CalendarRepo) ListMonth(ctx context.Context, db DBTX, memberID uuid.UUID, month fiscal.Month) ([]models.CalendarDay, error) {
	rows, err := db.Query(ctx, `
		SELECT member_id, work_date, fiscal_month, total_hours, absence_type, status, rebuilt_at
		FROM monthly_calendar
		WHERE member_id = $1 AND fiscal_month = $2
		ORDER BY work_date ASC
	`, memberID, month.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []models.CalendarDay
	for rows.Next() {
		var d models.CalendarDay
		if err := rows.Scan(&d.MemberID, &d.WorkDate, &d.FiscalMonth, &d.TotalHours, &d.AbsenceType, &d.Status, &d.RebuiltAt); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// StaleMembers lists members whose read-model rows changed after the last
// calendar rebuild for the given month. The rebuild job walks this list.
func (CalendarRepo) StaleMembers(ctx context.Context, db DBTX, month fiscal.Month, startDay int, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 100
	}
	from, to := month.Window(startDay)
	rows, err := db.Query(ctx, `
		SELECT member_id FROM (
			SELECT member_id, MAX(updated_at) AS changed_at FROM worklog_entries
			WHERE work_date >= $1 AND work_date < $2
			GROUP BY member_id
			UNION ALL
			SELECT member_id, MAX(updated_at) FROM absences
			WHERE work_date >= $1 AND work_date < $2
			GROUP BY member_id
		) changed
		WHERE changed.changed_at > COALESCE((
			SELECT MAX(rebuilt_at) FROM monthly_calendar
			WHERE member_id = changed.member_id AND fiscal_month = $3
		), 'epoch'::timestamptz)
		GROUP BY member_id
		LIMIT $4
	`, from, to, month.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

// LastRebuiltAt reports when a member's month was last projected, zero when
// never.
func (CalendarRepo) LastRebuiltAt(ctx context.Context, db DBTX, memberID uuid.UUID, month fiscal.Month) (time.Time, error) {
	var at *time.Time
	err := db.QueryRow(ctx, `
		SELECT MAX(rebuilt_at) FROM monthly_calendar WHERE member_id = $1 AND fiscal_month = $2
	`, memberID, month.String()).Scan(&at)
	if err != nil {
		return time.Time{}, err
	}
	if at == nil {
		return time.Time{}, nil
	}
	return *at, nil
}
