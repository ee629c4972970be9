package repos

import (
	"context"

	"github.com/google/uuid"

	"worklog-approval-system/shared/metricsx"
	"worklog-approval-system/timesheet/internal/domain"
	"worklog-approval-system/timesheet/internal/eventstore"
	"worklog-approval-system/timesheet/internal/models"
)

func snapshotRow(aggregateType string, id uuid.UUID, version int, state []byte) models.Snapshot {
	return models.Snapshot{AggregateID: id, AggregateType: aggregateType, Version: version, State: state}
}

// Repository rebuilds aggregates from the event log and persists their
// uncommitted events. Both operations run on the caller's DBTX, so a command
// touching several aggregates stays atomic.
type Repository[T domain.Aggregate] struct {
	aggregateType string
	newAggregate  func() T
	events        *eventstore.Store
	snapshots     *eventstore.SnapshotStore
	snapshotEvery int
}

func NewWorkLogRepository(snapshotEvery int) *Repository[*domain.WorkLogEntry] {
	return newRepository(domain.AggregateTypeWorkLog, domain.NewWorkLogEntry, snapshotEvery)
}

func NewAbsenceRepository(snapshotEvery int) *Repository[*domain.Absence] {
	return newRepository(domain.AggregateTypeAbsence, domain.NewAbsence, snapshotEvery)
}

func NewApprovalRepository(snapshotEvery int) *Repository[*domain.MonthlyApproval] {
	return newRepository(domain.AggregateTypeApproval, domain.NewMonthlyApproval, snapshotEvery)
}

func newRepository[T domain.Aggregate](aggregateType string, newAggregate func() T, snapshotEvery int) *Repository[T] {
	return &Repository[T]{
		aggregateType: aggregateType,
		newAggregate:  newAggregate,
		events:        eventstore.NewStore(),
		snapshots:     eventstore.NewSnapshotStore(),
		snapshotEvery: snapshotEvery,
	}
}

// Load reconstitutes an aggregate: latest snapshot first, then the events
// recorded after it, replayed in version order.
func (r *Repository[T]) Load(ctx context.Context, db DBTX, id uuid.UUID) (T, error) {
	var zero T
	agg := r.newAggregate()

	after := 0
	snap, found, err := r.snapshots.Load(ctx, db, id)
	if err != nil {
		return zero, err
	}
	if found {
		if err := agg.RestoreSnapshot(id, snap.Version, snap.State); err != nil {
			return zero, err
		}
		after = snap.Version
	}

	stored, err := r.events.LoadFrom(ctx, db, id, after)
	if err != nil {
		return zero, err
	}
	if !found && len(stored) == 0 {
		return zero, domain.Errorf(domain.CodeNotFound, "%s %s does not exist", r.aggregateType, id)
	}
	for _, row := range stored {
		ev, err := decodeEvent(row)
		if err != nil {
			return zero, err
		}
		if err := agg.Replay(ev); err != nil {
			return zero, err
		}
	}
	return agg, nil
}

// Save appends the uncommitted events at the version the aggregate was
// loaded at. On success the buffer is cleared and, when the version crosses
// a snapshot boundary, a fresh snapshot is written in the same transaction.
func (r *Repository[T]) Save(ctx context.Context, db DBTX, agg T) error {
	pending := agg.Uncommitted()
	if len(pending) == 0 {
		return nil
	}
	stored, err := encodeEvents(pending)
	if err != nil {
		return err
	}

	base := agg.Version()
	if err := r.events.Append(ctx, db, r.aggregateType, agg.ID(), base, stored); err != nil {
		if eventstore.IsConflict(err) {
			metricsx.IncOptimisticConflict(r.aggregateType)
		}
		return err
	}
	agg.MarkCommitted(len(pending))
	metricsx.AddEventsAppended(r.aggregateType, len(pending))

	if r.snapshotEvery > 0 && base/r.snapshotEvery != agg.Version()/r.snapshotEvery {
		state, err := agg.SnapshotState()
		if err != nil {
			return err
		}
		if err := r.snapshots.Save(ctx, db, snapshotRow(r.aggregateType, agg.ID(), agg.Version(), state)); err != nil {
			return err
		}
		metricsx.IncSnapshotWritten(r.aggregateType)
	}
	return nil
}

// CompactSnapshots refreshes snapshots for aggregates whose log has grown
// past the snapshot interval since the last one, and returns how many were
// written. Run periodically as a backstop for saves that skipped the inline
// snapshot.
func (r *Repository[T]) CompactSnapshots(ctx context.Context, db DBTX, limit int) (int, error) {
	if r.snapshotEvery <= 0 {
		return 0, nil
	}
	ids, err := r.events.LaggingAggregates(ctx, db, r.aggregateType, r.snapshotEvery, limit)
	if err != nil {
		return 0, err
	}
	written := 0
	for _, id := range ids {
		agg, err := r.Load(ctx, db, id)
		if err != nil {
			return written, err
		}
		state, err := agg.SnapshotState()
		if err != nil {
			return written, err
		}
		if err := r.snapshots.Save(ctx, db, snapshotRow(r.aggregateType, id, agg.Version(), state)); err != nil {
			return written, err
		}
		metricsx.IncSnapshotWritten(r.aggregateType)
		written++
	}
	return written, nil
}

// History returns the decoded event stream, oldest first.
func (r *Repository[T]) History(ctx context.Context, db DBTX, id uuid.UUID) ([]domain.Event, error) {
	stored, err := r.events.Load(ctx, db, id)
	if err != nil {
		return nil, err
	}
	events := make([]domain.Event, 0, len(stored))
	for _, row := range stored {
		ev, err := decodeEvent(row)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}
