package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"worklog-approval-system/timesheet/internal/domain"
	"worklog-approval-system/timesheet/internal/models"
	"worklog-approval-system/timesheet/internal/orchestrator"
)

// UnitOfWork gives the orchestrator transactional access to all stores. One
// Within call is one database transaction.
type UnitOfWork struct {
	pool       *pgxpool.Pool
	workLogs   *Repository[*domain.WorkLogEntry]
	absences   *Repository[*domain.Absence]
	approvals  *Repository[*domain.MonthlyApproval]
	entries    *EntryIndex
	rejections *RejectionsRepo
	outbox     *OutboxRepo
}

func NewUnitOfWork(pool *pgxpool.Pool, snapshotEvery int) *UnitOfWork {
	return &UnitOfWork{
		pool:       pool,
		workLogs:   NewWorkLogRepository(snapshotEvery),
		absences:   NewAbsenceRepository(snapshotEvery),
		approvals:  NewApprovalRepository(snapshotEvery),
		entries:    NewEntryIndex(),
		rejections: NewRejectionsRepo(),
		outbox:     NewOutboxRepo(),
	}
}

func (u *UnitOfWork) Within(ctx context.Context, fn func(ctx context.Context, s orchestrator.Stores) error) error {
	tx, err := u.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, &txStores{u: u, tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txStores struct {
	u  *UnitOfWork
	tx pgx.Tx
}

func (s *txStores) WorkLogs() orchestrator.WorkLogStore {
	return &txWorkLogs{u: s.u, tx: s.tx}
}

func (s *txStores) Absences() orchestrator.AbsenceStore {
	return &txAbsences{u: s.u, tx: s.tx}
}

func (s *txStores) Approvals() orchestrator.ApprovalStore {
	return &txApprovals{u: s.u, tx: s.tx}
}

func (s *txStores) Entries() orchestrator.EntryIndexStore {
	return &txEntries{u: s.u, tx: s.tx}
}

func (s *txStores) Rejections() orchestrator.RejectionStore {
	return &txRejections{u: s.u, tx: s.tx}
}

func (s *txStores) Outbox() orchestrator.OutboxStore {
	return &txOutbox{u: s.u, tx: s.tx}
}

type txWorkLogs struct {
	u  *UnitOfWork
	tx pgx.Tx
}

func (t *txWorkLogs) Load(ctx context.Context, id uuid.UUID) (*domain.WorkLogEntry, error) {
	return t.u.workLogs.Load(ctx, t.tx, id)
}

func (t *txWorkLogs) Save(ctx context.Context, entry *domain.WorkLogEntry) error {
	return t.u.workLogs.Save(ctx, t.tx, entry)
}

type txAbsences struct {
	u  *UnitOfWork
	tx pgx.Tx
}

func (t *txAbsences) Load(ctx context.Context, id uuid.UUID) (*domain.Absence, error) {
	return t.u.absences.Load(ctx, t.tx, id)
}

func (t *txAbsences) Save(ctx context.Context, absence *domain.Absence) error {
	return t.u.absences.Save(ctx, t.tx, absence)
}

type txApprovals struct {
	u  *UnitOfWork
	tx pgx.Tx
}

func (t *txApprovals) Load(ctx context.Context, id uuid.UUID) (*domain.MonthlyApproval, error) {
	return t.u.approvals.Load(ctx, t.tx, id)
}

func (t *txApprovals) Save(ctx context.Context, approval *domain.MonthlyApproval) error {
	return t.u.approvals.Save(ctx, t.tx, approval)
}

type txEntries struct {
	u  *UnitOfWork
	tx pgx.Tx
}

func (t *txEntries) UpsertEntry(ctx context.Context, entry *domain.WorkLogEntry) error {
	return t.u.entries.UpsertEntry(ctx, t.tx, entry)
}

func (t *txEntries) UpsertAbsence(ctx context.Context, absence *domain.Absence) error {
	return t.u.entries.UpsertAbsence(ctx, t.tx, absence)
}

func (t *txEntries) SumHoursForDay(ctx context.Context, memberID uuid.UUID, day time.Time, exclude uuid.UUID) (float64, error) {
	return t.u.entries.SumHoursForDay(ctx, t.tx, memberID, day, exclude)
}

func (t *txEntries) ListEntries(ctx context.Context, memberID uuid.UUID, from time.Time, to time.Time) ([]models.EntryRow, error) {
	return t.u.entries.ListEntries(ctx, t.tx, memberID, from, to)
}

func (t *txEntries) ListAbsences(ctx context.Context, memberID uuid.UUID, from time.Time, to time.Time) ([]models.AbsenceRow, error) {
	return t.u.entries.ListAbsences(ctx, t.tx, memberID, from, to)
}

type txRejections struct {
	u  *UnitOfWork
	tx pgx.Tx
}

func (t *txRejections) Upsert(ctx context.Context, rejection models.DailyRejection) error {
	return t.u.rejections.Upsert(ctx, t.tx, rejection)
}

type txOutbox struct {
	u  *UnitOfWork
	tx pgx.Tx
}

func (t *txOutbox) Insert(ctx context.Context, event models.OutboxEvent) (models.OutboxEvent, error) {
	return t.u.outbox.Insert(ctx, t.tx, event)
}
