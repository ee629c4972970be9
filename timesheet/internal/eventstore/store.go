package eventstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"worklog-approval-system/timesheet/internal/models"
)

const pgUniqueViolation = "23505"

type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// ConflictError reports a lost optimistic-concurrency race: the log moved
// past the version the writer loaded at. The whole batch is rejected; the
// caller reloads and retries the command.
type ConflictError struct {
	AggregateID uuid.UUID
	Expected    int
	Actual      int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict on aggregate %s: expected %d, log is at %d", e.AggregateID, e.Expected, e.Actual)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// Store is the append-only event log backed by the domain_events table.
// Methods take a DBTX so appends join the caller's transaction; a cascade
// over several aggregates commits or rolls back as one.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

// Append writes events at versions expectedVersion+1..expectedVersion+n.
// It fails with ConflictError when the stored head is not expectedVersion,
// and writes nothing in that case.
func (s *Store) Append(ctx context.Context, db DBTX, aggregateType string, aggregateID uuid.UUID, expectedVersion int, events []models.StoredEvent) error {
	if len(events) == 0 {
		return nil
	}

	current, err := s.CurrentVersion(ctx, db, aggregateID)
	if err != nil {
		return err
	}
	if current != expectedVersion {
		return &ConflictError{AggregateID: aggregateID, Expected: expectedVersion, Actual: current}
	}

	now := time.Now().UTC()
	for i := range events {
		ev := &events[i]
		ev.AggregateType = aggregateType
		ev.AggregateID = aggregateID
		ev.Version = expectedVersion + i + 1
		ev.RecordedAt = now

		_, err := db.Exec(ctx, `
			INSERT INTO domain_events (event_id, aggregate_type, aggregate_id, version, event_type, payload, occurred_at, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, ev.EventID, ev.AggregateType, ev.AggregateID, ev.Version, ev.EventType, ev.Payload, ev.OccurredAt, ev.RecordedAt)
		if err != nil {
			// Two writers can pass the version read concurrently; the unique
			// (aggregate_id, version) index arbitrates, losers surface as a
			// conflict and retry.
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return &ConflictError{AggregateID: aggregateID, Expected: expectedVersion, Actual: expectedVersion + i + 1}
			}
			return err
		}
	}
	return nil
}

// Load returns the full history of an aggregate in version order.
func (s *Store) Load(ctx context.Context, db DBTX, aggregateID uuid.UUID) ([]models.StoredEvent, error) {
	return s.LoadFrom(ctx, db, aggregateID, 0)
}

// LoadFrom returns events with version > afterVersion in version order.
func (s *Store) LoadFrom(ctx context.Context, db DBTX, aggregateID uuid.UUID, afterVersion int) ([]models.StoredEvent, error) {
	rows, err := db.Query(ctx, `
		SELECT event_id, aggregate_type, aggregate_id, version, event_type, payload, occurred_at, recorded_at
		FROM domain_events
		WHERE aggregate_id = $1 AND version > $2
		ORDER BY version ASC
	`, aggregateID, afterVersion)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.StoredEvent
	for rows.Next() {
		var ev models.StoredEvent
		if err := rows.Scan(&ev.EventID, &ev.AggregateType, &ev.AggregateID, &ev.Version, &ev.EventType, &ev.Payload, &ev.OccurredAt, &ev.RecordedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// LaggingAggregates lists aggregates of one type whose event log leads the
// stored snapshot by at least threshold versions. The compaction job walks
// this list.
func (s *Store) LaggingAggregates(ctx context.Context, db DBTX, aggregateType string, threshold int, limit int) ([]uuid.UUID, error) {
	if threshold <= 0 {
		threshold = 1
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(ctx, `
		SELECT e.aggregate_id
		FROM domain_events e
		LEFT JOIN aggregate_snapshots s ON s.aggregate_id = e.aggregate_id
		WHERE e.aggregate_type = $1
		GROUP BY e.aggregate_id, s.version
		HAVING MAX(e.version) - COALESCE(s.version, 0) >= $2
		ORDER BY e.aggregate_id
		LIMIT $3
	`, aggregateType, threshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CurrentVersion returns the head version of an aggregate, 0 when no events
// exist for it.
func (s *Store) CurrentVersion(ctx context.Context, db DBTX, aggregateID uuid.UUID) (int, error) {
	var version int
	err := db.QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM domain_events WHERE aggregate_id = $1
	`, aggregateID).Scan(&version)
	return version, err
}
