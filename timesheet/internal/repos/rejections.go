package repos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"worklog-approval-system/timesheet/internal/domain"
	"worklog-approval-system/timesheet/internal/models"
)

// RejectionsRepo records the latest rejection note per member per day.
// Rejecting the same day twice overwrites the earlier note.
type RejectionsRepo struct{}

func NewRejectionsRepo() *RejectionsRepo {
	return &RejectionsRepo{}
}

func (RejectionsRepo) Upsert(ctx context.Context, db DBTX, rejection models.DailyRejection) error {
	if rejection.RejectedAt.IsZero() {
		rejection.RejectedAt = time.Now().UTC()
	}
	entryIDs, err := json.Marshal(rejection.EntryIDs)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, `
		INSERT INTO daily_rejections (member_id, work_date, reason, rejected_by, entry_ids, rejected_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (member_id, work_date) DO UPDATE
		SET reason = EXCLUDED.reason, rejected_by = EXCLUDED.rejected_by, entry_ids = EXCLUDED.entry_ids, rejected_at = EXCLUDED.rejected_at
	`, rejection.MemberID, domain.Day(rejection.WorkDate), rejection.Reason, rejection.RejectedBy, entryIDs, rejection.RejectedAt)
	return err
}

func (RejectionsRepo) ListForMember(ctx context.Context, db DBTX, memberID uuid.UUID, from time.Time, to time.Time) ([]models.DailyRejection, error) {
	rows, err := db.Query(ctx, `
		SELECT member_id, work_date, reason, rejected_by, entry_ids, rejected_at
		FROM daily_rejections
		WHERE member_id = $1 AND work_date >= $2 AND work_date < $3
		ORDER BY work_date ASC
	`, memberID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rejections []models.DailyRejection
	for rows.Next() {
		var r models.DailyRejection
		var entryIDs []byte
		if err := rows.Scan(&r.MemberID, &r.WorkDate, &r.Reason, &r.RejectedBy, &entryIDs, &r.RejectedAt); err != nil {
			return nil, err
		}
		if len(entryIDs) > 0 {
			if err := json.Unmarshal(entryIDs, &r.EntryIDs); err != nil {
				return nil, err
			}
		}
		rejections = append(rejections, r)
	}
	return rejections, rows.Err()
}

func (RejectionsRepo) Clear(ctx context.Context, db DBTX, memberID uuid.UUID, day time.Time) error {
	_, err := db.Exec(ctx, `
		DELETE FROM daily_rejections WHERE member_id = $1 AND work_date = $2
	`, memberID, domain.Day(day))
	return err
}
