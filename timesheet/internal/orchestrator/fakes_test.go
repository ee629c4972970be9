package orchestrator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"worklog-approval-system/shared/logx"
	"worklog-approval-system/timesheet/internal/domain"
	"worklog-approval-system/timesheet/internal/eventstore"
	"worklog-approval-system/timesheet/internal/models"
)

// memState is the committed picture of the world. Aggregates are kept as
// their event history; loads replay it, which keeps the fakes honest about
// reconstitution.
type memState struct {
	events      map[uuid.UUID][]domain.Event
	entryRows   map[uuid.UUID]models.EntryRow
	absenceRows map[uuid.UUID]models.AbsenceRow
	rejections  map[string]models.DailyRejection
	outbox      []models.OutboxEvent
}

func newMemState() *memState {
	return &memState{
		events:      make(map[uuid.UUID][]domain.Event),
		entryRows:   make(map[uuid.UUID]models.EntryRow),
		absenceRows: make(map[uuid.UUID]models.AbsenceRow),
		rejections:  make(map[string]models.DailyRejection),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for id, evs := range s.events {
		c.events[id] = append([]domain.Event(nil), evs...)
	}
	for id, row := range s.entryRows {
		c.entryRows[id] = row
	}
	for id, row := range s.absenceRows {
		c.absenceRows[id] = row
	}
	for k, v := range s.rejections {
		c.rejections[k] = v
	}
	c.outbox = append([]models.OutboxEvent(nil), s.outbox...)
	return c
}

// memUnitOfWork runs commands against a clone and swaps it in on success,
// so a failing command leaves the committed state untouched.
type memUnitOfWork struct {
	state *memState
	// failSaves forces the next n Save calls for an aggregate to lose the
	// version race.
	failSaves map[uuid.UUID]int
}

func newMemUnitOfWork() *memUnitOfWork {
	return &memUnitOfWork{state: newMemState(), failSaves: make(map[uuid.UUID]int)}
}

func (u *memUnitOfWork) Within(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	work := u.state.clone()
	if err := fn(ctx, &memStores{state: work, uow: u}); err != nil {
		return err
	}
	u.state = work
	return nil
}

type memStores struct {
	state *memState
	uow   *memUnitOfWork
}

func (s *memStores) WorkLogs() WorkLogStore   { return &memAggStore[*domain.WorkLogEntry]{s: s, newFn: domain.NewWorkLogEntry, kind: domain.AggregateTypeWorkLog} }
func (s *memStores) Absences() AbsenceStore   { return &memAggStore[*domain.Absence]{s: s, newFn: domain.NewAbsence, kind: domain.AggregateTypeAbsence} }
func (s *memStores) Approvals() ApprovalStore { return &memAggStore[*domain.MonthlyApproval]{s: s, newFn: domain.NewMonthlyApproval, kind: domain.AggregateTypeApproval} }
func (s *memStores) Entries() EntryIndexStore { return &memEntryIndex{s: s} }
func (s *memStores) Rejections() RejectionStore {
	return &memRejections{s: s}
}
func (s *memStores) Outbox() OutboxStore { return &memOutbox{s: s} }

type memAggStore[T domain.Aggregate] struct {
	s     *memStores
	newFn func() T
	kind  string
}

func (m *memAggStore[T]) Load(ctx context.Context, id uuid.UUID) (T, error) {
	var zero T
	history := m.s.state.events[id]
	if len(history) == 0 {
		return zero, domain.Errorf(domain.CodeNotFound, "%s %s does not exist", m.kind, id)
	}
	agg := m.newFn()
	for _, ev := range history {
		if err := agg.Replay(ev); err != nil {
			return zero, err
		}
	}
	return agg, nil
}

func (m *memAggStore[T]) Save(ctx context.Context, agg T) error {
	if n := m.s.uow.failSaves[agg.ID()]; n > 0 {
		m.s.uow.failSaves[agg.ID()] = n - 1
		return &eventstore.ConflictError{AggregateID: agg.ID(), Expected: agg.Version(), Actual: agg.Version() + 1}
	}
	pending := agg.Uncommitted()
	if len(pending) == 0 {
		return nil
	}
	if head := len(m.s.state.events[agg.ID()]); head != agg.Version() {
		return &eventstore.ConflictError{AggregateID: agg.ID(), Expected: agg.Version(), Actual: head}
	}
	m.s.state.events[agg.ID()] = append(m.s.state.events[agg.ID()], pending...)
	agg.MarkCommitted(len(pending))
	return nil
}

type memEntryIndex struct {
	s *memStores
}

func (m *memEntryIndex) UpsertEntry(ctx context.Context, e *domain.WorkLogEntry) error {
	m.s.state.entryRows[e.ID()] = models.EntryRow{
		EntryID:   e.ID(),
		MemberID:  e.MemberID,
		ProjectID: e.ProjectID,
		WorkDate:  e.WorkDate,
		Hours:     e.Hours,
		Comment:   e.Comment,
		Status:    e.Status,
		EnteredBy: e.EnteredBy,
		Deleted:   e.Deleted,
		Version:   e.Version(),
	}
	return nil
}

func (m *memEntryIndex) UpsertAbsence(ctx context.Context, a *domain.Absence) error {
	m.s.state.absenceRows[a.ID()] = models.AbsenceRow{
		AbsenceID:   a.ID(),
		MemberID:    a.MemberID,
		AbsenceType: a.AbsenceType,
		WorkDate:    a.WorkDate,
		Comment:     a.Comment,
		Status:      a.Status,
		EnteredBy:   a.EnteredBy,
		Deleted:     a.Deleted,
		Version:     a.Version(),
	}
	return nil
}

func (m *memEntryIndex) SumHoursForDay(ctx context.Context, memberID uuid.UUID, day time.Time, exclude uuid.UUID) (float64, error) {
	var total float64
	target := domain.Day(day)
	for _, row := range m.s.state.entryRows {
		if row.MemberID == memberID && !row.Deleted && row.EntryID != exclude && row.WorkDate.Equal(target) {
			total += row.Hours
		}
	}
	return total, nil
}

func (m *memEntryIndex) ListEntries(ctx context.Context, memberID uuid.UUID, from time.Time, to time.Time) ([]models.EntryRow, error) {
	var rows []models.EntryRow
	for _, row := range m.s.state.entryRows {
		if row.MemberID == memberID && !row.Deleted && !row.WorkDate.Before(from) && row.WorkDate.Before(to) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].WorkDate.Equal(rows[j].WorkDate) {
			return rows[i].WorkDate.Before(rows[j].WorkDate)
		}
		return rows[i].EntryID.String() < rows[j].EntryID.String()
	})
	return rows, nil
}

func (m *memEntryIndex) ListAbsences(ctx context.Context, memberID uuid.UUID, from time.Time, to time.Time) ([]models.AbsenceRow, error) {
	var rows []models.AbsenceRow
	for _, row := range m.s.state.absenceRows {
		if row.MemberID == memberID && !row.Deleted && !row.WorkDate.Before(from) && row.WorkDate.Before(to) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].WorkDate.Equal(rows[j].WorkDate) {
			return rows[i].WorkDate.Before(rows[j].WorkDate)
		}
		return rows[i].AbsenceID.String() < rows[j].AbsenceID.String()
	})
	return rows, nil
}

type memRejections struct {
	s *memStores
}

func rejectionKey(memberID uuid.UUID, day time.Time) string {
	return memberID.String() + "|" + domain.Day(day).Format("2006-01-02")
}

func (m *memRejections) Upsert(ctx context.Context, rejection models.DailyRejection) error {
	m.s.state.rejections[rejectionKey(rejection.MemberID, rejection.WorkDate)] = rejection
	return nil
}

type memOutbox struct {
	s *memStores
}

func (m *memOutbox) Insert(ctx context.Context, event models.OutboxEvent) (models.OutboxEvent, error) {
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	m.s.state.outbox = append(m.s.state.outbox, event)
	return event, nil
}

// memDirectory answers reporting-chain queries from a fixed table and
// records whether it was consulted at all.
type memDirectory struct {
	mu        sync.Mutex
	managers  map[uuid.UUID]map[uuid.UUID]bool
	consulted bool
}

func newMemDirectory() *memDirectory {
	return &memDirectory{managers: make(map[uuid.UUID]map[uuid.UUID]bool)}
}

func (d *memDirectory) addReport(managerID uuid.UUID, memberID uuid.UUID) {
	if d.managers[managerID] == nil {
		d.managers[managerID] = make(map[uuid.UUID]bool)
	}
	d.managers[managerID][memberID] = true
}

func (d *memDirectory) IsSubordinate(ctx context.Context, managerID uuid.UUID, memberID uuid.UUID) (bool, error) {
	d.mu.Lock()
	d.consulted = true
	d.mu.Unlock()
	return d.managers[managerID][memberID], nil
}

func (d *memDirectory) wasConsulted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.consulted
}

type memAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (a *memAudit) WriteAuditLog(ctx context.Context, entries []models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entries...)
	return nil
}

func newTestService(uow *memUnitOfWork, dir *memDirectory) *Service {
	return New(uow, dir, nil, logx.New("timesheet-test", "test", "", "error"), Config{})
}
