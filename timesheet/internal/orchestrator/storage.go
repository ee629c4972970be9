package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"worklog-approval-system/timesheet/internal/domain"
	"worklog-approval-system/timesheet/internal/models"
)

// Stores is the transaction-scoped view of persistence a command works
// against. Everything reached through one Stores value commits or rolls back
// together.
type Stores interface {
	WorkLogs() WorkLogStore
	Absences() AbsenceStore
	Approvals() ApprovalStore
	Entries() EntryIndexStore
	Rejections() RejectionStore
	Outbox() OutboxStore
}

// UnitOfWork runs fn inside a single transaction. An error from fn rolls
// everything back.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

type WorkLogStore interface {
	Load(ctx context.Context, id uuid.UUID) (*domain.WorkLogEntry, error)
	Save(ctx context.Context, entry *domain.WorkLogEntry) error
}

type AbsenceStore interface {
	Load(ctx context.Context, id uuid.UUID) (*domain.Absence, error)
	Save(ctx context.Context, absence *domain.Absence) error
}

type ApprovalStore interface {
	Load(ctx context.Context, id uuid.UUID) (*domain.MonthlyApproval, error)
	Save(ctx context.Context, approval *domain.MonthlyApproval) error
}

type EntryIndexStore interface {
	UpsertEntry(ctx context.Context, entry *domain.WorkLogEntry) error
	UpsertAbsence(ctx context.Context, absence *domain.Absence) error
	SumHoursForDay(ctx context.Context, memberID uuid.UUID, day time.Time, exclude uuid.UUID) (float64, error)
	ListEntries(ctx context.Context, memberID uuid.UUID, from time.Time, to time.Time) ([]models.EntryRow, error)
	ListAbsences(ctx context.Context, memberID uuid.UUID, from time.Time, to time.Time) ([]models.AbsenceRow, error)
}

type RejectionStore interface {
	Upsert(ctx context.Context, rejection models.DailyRejection) error
}

type OutboxStore interface {
	Insert(ctx context.Context, event models.OutboxEvent) (models.OutboxEvent, error)
}

// Directory answers whether member reports, directly or through the chain,
// to manager. Backed by the HR directory service.
type Directory interface {
	IsSubordinate(ctx context.Context, managerID uuid.UUID, memberID uuid.UUID) (bool, error)
}

type AuditWriter interface {
	WriteAuditLog(ctx context.Context, entries []models.AuditLog) error
}
