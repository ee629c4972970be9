package eventstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"worklog-approval-system/timesheet/internal/models"
)

// SnapshotStore keeps at most one snapshot per aggregate; Save overwrites.
type SnapshotStore struct{}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

func (s *SnapshotStore) Save(ctx context.Context, db DBTX, snap models.Snapshot) error {
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now().UTC()
	}
	_, err := db.Exec(ctx, `
		INSERT INTO aggregate_snapshots (aggregate_id, aggregate_type, version, state, taken_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (aggregate_id) DO UPDATE
		SET version = EXCLUDED.version, state = EXCLUDED.state, taken_at = EXCLUDED.taken_at
		WHERE aggregate_snapshots.version < EXCLUDED.version
	`, snap.AggregateID, snap.AggregateType, snap.Version, snap.State, snap.TakenAt)
	return err
}

// Load returns the latest snapshot, or found=false when none exists.
func (s *SnapshotStore) Load(ctx context.Context, db DBTX, aggregateID uuid.UUID) (models.Snapshot, bool, error) {
	var snap models.Snapshot
	err := db.QueryRow(ctx, `
		SELECT aggregate_id, aggregate_type, version, state, taken_at
		FROM aggregate_snapshots
		WHERE aggregate_id = $1
	`, aggregateID).Scan(&snap.AggregateID, &snap.AggregateType, &snap.Version, &snap.State, &snap.TakenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Snapshot{}, false, nil
	}
	if err != nil {
		return models.Snapshot{}, false, err
	}
	return snap, true, nil
}

// Delete removes the snapshot; replay falls back to the full history.
func (s *SnapshotStore) Delete(ctx context.Context, db DBTX, aggregateID uuid.UUID) error {
	_, err := db.Exec(ctx, `DELETE FROM aggregate_snapshots WHERE aggregate_id = $1`, aggregateID)
	return err
}
