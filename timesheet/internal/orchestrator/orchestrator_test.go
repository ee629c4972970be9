package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"worklog-approval-system/shared/events"
	"worklog-approval-system/shared/fiscal"
	"worklog-approval-system/shared/workflow"
	"worklog-approval-system/timesheet/internal/domain"
)

var testDay = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

func createEntry(t *testing.T, svc *Service, memberID uuid.UUID, day time.Time, hours float64) uuid.UUID {
	t.Helper()
	id, err := svc.CreateWorkLog(context.Background(), CreateEntry{
		MemberID:  memberID,
		ProjectID: uuid.New(),
		WorkDate:  day,
		Hours:     hours,
		ActorID:   memberID,
	})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	return id
}

func entryStatus(t *testing.T, uow *memUnitOfWork, id uuid.UUID) string {
	t.Helper()
	row, ok := uow.state.entryRows[id]
	if !ok {
		t.Fatalf("entry %s not in read model", id)
	}
	return row.Status
}

func TestDailyLimit(t *testing.T) {
	uow := newMemUnitOfWork()
	svc := newTestService(uow, newMemDirectory())
	member := uuid.New()

	createEntry(t, svc, member, testDay, 10)
	createEntry(t, svc, member, testDay, 10)

	_, err := svc.CreateWorkLog(context.Background(), CreateEntry{
		MemberID: member, ProjectID: uuid.New(), WorkDate: testDay, Hours: 5, ActorID: member,
	})
	if domain.ErrorCode(err) != domain.CodeDailyLimitExceeded {
		t.Fatalf("expected DAILY_LIMIT_EXCEEDED, got %v", err)
	}

	createEntry(t, svc, member, testDay, 4)

	var total float64
	for _, row := range uow.state.entryRows {
		total += row.Hours
	}
	if total != 24 {
		t.Fatalf("expected 24 hours on the day, got %g", total)
	}
}

func TestDailyLimitIgnoresOtherDaysAndDeleted(t *testing.T) {
	uow := newMemUnitOfWork()
	svc := newTestService(uow, newMemDirectory())
	member := uuid.New()

	createEntry(t, svc, member, testDay.AddDate(0, 0, -1), 24)
	deleted := createEntry(t, svc, member, testDay, 10)
	if err := svc.DeleteWorkLog(context.Background(), DeleteEntry{EntryID: deleted, ActorID: member}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	createEntry(t, svc, member, testDay, 24)
}

func TestDuplicateEntrySameProjectAndDate(t *testing.T) {
	uow := newMemUnitOfWork()
	svc := newTestService(uow, newMemDirectory())
	member := uuid.New()
	project := uuid.New()
	ctx := context.Background()

	first, err := svc.CreateWorkLog(ctx, CreateEntry{
		MemberID: member, ProjectID: project, WorkDate: testDay, Hours: 4, ActorID: member,
	})
	if err != nil {
		t.Fatalf("first entry: %v", err)
	}

	_, err = svc.CreateWorkLog(ctx, CreateEntry{
		MemberID: member, ProjectID: project, WorkDate: testDay, Hours: 2, ActorID: member,
	})
	if domain.ErrorCode(err) != domain.CodeDuplicateEntry {
		t.Fatalf("expected DUPLICATE_ENTRY, got %v", err)
	}

	// A different project on the same day is fine, and so is the same
	// project on another day.
	if _, err := svc.CreateWorkLog(ctx, CreateEntry{
		MemberID: member, ProjectID: uuid.New(), WorkDate: testDay, Hours: 2, ActorID: member,
	}); err != nil {
		t.Fatalf("second project: %v", err)
	}
	if _, err := svc.CreateWorkLog(ctx, CreateEntry{
		MemberID: member, ProjectID: project, WorkDate: testDay.AddDate(0, 0, 1), Hours: 2, ActorID: member,
	}); err != nil {
		t.Fatalf("next day: %v", err)
	}

	// Deleting the original frees the slot.
	if err := svc.DeleteWorkLog(ctx, DeleteEntry{EntryID: first, ActorID: member}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.CreateWorkLog(ctx, CreateEntry{
		MemberID: member, ProjectID: project, WorkDate: testDay, Hours: 4, ActorID: member,
	}); err != nil {
		t.Fatalf("re-create after delete: %v", err)
	}
}

func TestProxyPermission(t *testing.T) {
	uow := newMemUnitOfWork()
	dir := newMemDirectory()
	svc := newTestService(uow, dir)
	member := uuid.New()
	manager := uuid.New()
	stranger := uuid.New()
	dir.addReport(manager, member)

	// Self entry never consults the directory.
	createEntry(t, svc, member, testDay, 8)
	if dir.wasConsulted() {
		t.Fatalf("self entry must not consult the directory")
	}

	_, err := svc.CreateWorkLog(context.Background(), CreateEntry{
		MemberID: member, ProjectID: uuid.New(), WorkDate: testDay, Hours: 2, ActorID: stranger,
	})
	if domain.ErrorCode(err) != domain.CodeProxyEntryNotAllowed {
		t.Fatalf("expected PROXY_ENTRY_NOT_ALLOWED, got %v", err)
	}
	if !strings.Contains(err.Error(), member.String()) {
		t.Fatalf("proxy failure must name the member, got %q", err)
	}

	if _, err := svc.CreateWorkLog(context.Background(), CreateEntry{
		MemberID: member, ProjectID: uuid.New(), WorkDate: testDay, Hours: 2, ActorID: manager,
	}); err != nil {
		t.Fatalf("manager proxy entry: %v", err)
	}
}

func TestSubmitDayCascadeAtomicity(t *testing.T) {
	uow := newMemUnitOfWork()
	svc := newTestService(uow, newMemDirectory())
	member := uuid.New()

	e1 := createEntry(t, svc, member, testDay, 4)
	e2 := createEntry(t, svc, member, testDay, 4)
	e3 := createEntry(t, svc, member, testDay, 4)

	uow.failSaves[e2] = 10
	err := svc.SubmitDayEntries(context.Background(), SubmitDay{MemberID: member, Day: testDay, ActorID: member})
	if err == nil {
		t.Fatalf("expected forced conflict to fail the submission")
	}
	for _, id := range []uuid.UUID{e1, e2, e3} {
		if got := entryStatus(t, uow, id); got != workflow.EntryStatusDraft {
			t.Fatalf("entry %s should still be draft after failed cascade, got %s", id, got)
		}
	}
	if len(uow.state.outbox) != 0 {
		t.Fatalf("failed submission must not stage notifications")
	}
}

func TestConflictRetry(t *testing.T) {
	uow := newMemUnitOfWork()
	svc := newTestService(uow, newMemDirectory())
	member := uuid.New()

	e1 := createEntry(t, svc, member, testDay, 8)
	uow.failSaves[e1] = 1

	if err := svc.SubmitDayEntries(context.Background(), SubmitDay{MemberID: member, Day: testDay, ActorID: member}); err != nil {
		t.Fatalf("expected retry to absorb one conflict: %v", err)
	}
	if got := entryStatus(t, uow, e1); got != workflow.EntryStatusSubmitted {
		t.Fatalf("expected submitted after retry, got %s", got)
	}
}

func TestEntryLifecycle(t *testing.T) {
	uow := newMemUnitOfWork()
	dir := newMemDirectory()
	svc := newTestService(uow, dir)
	member := uuid.New()
	manager := uuid.New()
	dir.addReport(manager, member)
	ctx := context.Background()

	id := createEntry(t, svc, member, testDay, 8)
	if got := entryStatus(t, uow, id); got != workflow.EntryStatusDraft {
		t.Fatalf("new entry should be draft, got %s", got)
	}

	if err := svc.SubmitDayEntries(ctx, SubmitDay{MemberID: member, Day: testDay, ActorID: member}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := entryStatus(t, uow, id); got != workflow.EntryStatusSubmitted {
		t.Fatalf("expected submitted, got %s", got)
	}

	if err := svc.ApproveDayEntries(ctx, ApproveDay{MemberID: member, Day: testDay, ActorID: manager}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got := entryStatus(t, uow, id); got != workflow.EntryStatusApproved {
		t.Fatalf("expected approved, got %s", got)
	}

	err := svc.UpdateWorkLog(ctx, UpdateEntry{EntryID: id, Hours: 4, ActorID: member})
	if domain.ErrorCode(err) != domain.CodeNotEditable {
		t.Fatalf("approved entry update should fail with NOT_EDITABLE, got %v", err)
	}
}

func TestRejectDayOverwritesEarlierRejection(t *testing.T) {
	uow := newMemUnitOfWork()
	dir := newMemDirectory()
	svc := newTestService(uow, dir)
	member := uuid.New()
	manager := uuid.New()
	dir.addReport(manager, member)
	ctx := context.Background()

	createEntry(t, svc, member, testDay, 8)
	if err := svc.SubmitDayEntries(ctx, SubmitDay{MemberID: member, Day: testDay, ActorID: member}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := svc.RejectDayEntries(ctx, RejectDay{MemberID: member, Day: testDay, ActorID: manager, Reason: "first reason"}); err != nil {
		t.Fatalf("first reject: %v", err)
	}
	if err := svc.SubmitDayEntries(ctx, SubmitDay{MemberID: member, Day: testDay, ActorID: member}); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if err := svc.RejectDayEntries(ctx, RejectDay{MemberID: member, Day: testDay, ActorID: manager, Reason: "second reason"}); err != nil {
		t.Fatalf("second reject: %v", err)
	}

	if len(uow.state.rejections) != 1 {
		t.Fatalf("expected exactly one rejection row, got %d", len(uow.state.rejections))
	}
	row := uow.state.rejections[rejectionKey(member, testDay)]
	if row.Reason != "second reason" {
		t.Fatalf("expected the second reason to win, got %q", row.Reason)
	}
	if len(row.EntryIDs) != 1 {
		t.Fatalf("rejection row should carry the affected entry ids, got %d", len(row.EntryIDs))
	}
}

func TestRejectDayRequiresReason(t *testing.T) {
	svc := newTestService(newMemUnitOfWork(), newMemDirectory())
	err := svc.RejectDayEntries(context.Background(), RejectDay{
		MemberID: uuid.New(), Day: testDay, ActorID: uuid.New(), Reason: "   ",
	})
	if domain.ErrorCode(err) != domain.CodeReasonRequired {
		t.Fatalf("expected REASON_REQUIRED, got %v", err)
	}
}

func TestRecallIsSelfOnly(t *testing.T) {
	uow := newMemUnitOfWork()
	dir := newMemDirectory()
	svc := newTestService(uow, dir)
	member := uuid.New()
	manager := uuid.New()
	dir.addReport(manager, member)
	ctx := context.Background()

	id := createEntry(t, svc, member, testDay, 8)
	if err := svc.SubmitDayEntries(ctx, SubmitDay{MemberID: member, Day: testDay, ActorID: member}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	err := svc.RecallDayEntries(ctx, RecallDay{MemberID: member, Day: testDay, ActorID: manager})
	if domain.ErrorCode(err) != domain.CodeProxyEntryNotAllowed {
		t.Fatalf("manager recall should be refused, got %v", err)
	}
	if err := svc.RecallDayEntries(ctx, RecallDay{MemberID: member, Day: testDay, ActorID: member}); err != nil {
		t.Fatalf("self recall: %v", err)
	}
	if got := entryStatus(t, uow, id); got != workflow.EntryStatusDraft {
		t.Fatalf("expected draft after recall, got %s", got)
	}
}

func TestMonthlyApprovalFlow(t *testing.T) {
	uow := newMemUnitOfWork()
	dir := newMemDirectory()
	svc := newTestService(uow, dir)
	member := uuid.New()
	manager := uuid.New()
	dir.addReport(manager, member)
	ctx := context.Background()
	month := fiscal.Month{Year: 2026, Month: time.January}

	e1 := createEntry(t, svc, member, testDay, 8)
	e2 := createEntry(t, svc, member, testDay.AddDate(0, 0, 1), 6)
	absenceID, err := svc.RecordAbsence(ctx, CreateAbsence{
		MemberID: member, AbsenceType: domain.AbsenceTypePaidLeave, WorkDate: testDay.AddDate(0, 0, 2), ActorID: member,
	})
	if err != nil {
		t.Fatalf("record absence: %v", err)
	}

	if err := svc.SubmitMonthEntries(ctx, SubmitMonth{MemberID: member, Month: month, ActorID: member}); err != nil {
		t.Fatalf("submit month: %v", err)
	}
	approvalID := domain.MonthlyApprovalID(member, month)
	if len(uow.state.events[approvalID]) == 0 {
		t.Fatalf("monthly approval aggregate was not created")
	}

	if err := svc.ApproveMonthEntries(ctx, ApproveMonth{MemberID: member, Month: month, ActorID: manager}); err != nil {
		t.Fatalf("approve month: %v", err)
	}
	for _, id := range []uuid.UUID{e1, e2} {
		if got := entryStatus(t, uow, id); got != workflow.EntryStatusApproved {
			t.Fatalf("entry %s should be approved via cascade, got %s", id, got)
		}
	}
	if got := uow.state.absenceRows[absenceID].Status; got != workflow.AbsenceStatusApproved {
		t.Fatalf("absence should be approved via cascade, got %s", got)
	}

	var decisions int
	for _, event := range uow.state.outbox {
		if event.Topic == events.TopicApprovalDecisions {
			decisions++
		}
	}
	if decisions == 0 {
		t.Fatalf("expected an approval decision on the outbox")
	}
}

func TestRejectMonthThenResubmit(t *testing.T) {
	uow := newMemUnitOfWork()
	dir := newMemDirectory()
	svc := newTestService(uow, dir)
	member := uuid.New()
	manager := uuid.New()
	dir.addReport(manager, member)
	ctx := context.Background()
	month := fiscal.Month{Year: 2026, Month: time.January}

	e1 := createEntry(t, svc, member, testDay, 8)
	absenceID, err := svc.RecordAbsence(ctx, CreateAbsence{
		MemberID: member, AbsenceType: domain.AbsenceTypeSickLeave, WorkDate: testDay.AddDate(0, 0, 1), ActorID: member,
	})
	if err != nil {
		t.Fatalf("record absence: %v", err)
	}

	if err := svc.SubmitMonthEntries(ctx, SubmitMonth{MemberID: member, Month: month, ActorID: member}); err != nil {
		t.Fatalf("submit month: %v", err)
	}
	if err := svc.RejectMonthEntries(ctx, RejectMonth{MemberID: member, Month: month, ActorID: manager, Reason: "missing detail"}); err != nil {
		t.Fatalf("reject month: %v", err)
	}

	if got := entryStatus(t, uow, e1); got != workflow.EntryStatusDraft {
		t.Fatalf("rejected entry should return to draft, got %s", got)
	}
	if got := uow.state.absenceRows[absenceID].Status; got != workflow.AbsenceStatusRejected {
		t.Fatalf("rejected absence should be in its explicit rejected state, got %s", got)
	}
	if len(uow.state.rejections) == 0 {
		t.Fatalf("monthly rejection should write daily rejection rows")
	}

	// The member fixes the entry (the absence stays rejected until edited)
	// and resubmits the month on the same approval aggregate.
	if err := svc.UpdateWorkLog(ctx, UpdateEntry{EntryID: e1, Hours: 7.5, ActorID: member}); err != nil {
		t.Fatalf("update after rejection: %v", err)
	}
	if err := svc.SubmitMonthEntries(ctx, SubmitMonth{MemberID: member, Month: month, ActorID: member}); err != nil {
		t.Fatalf("resubmit month: %v", err)
	}
	if got := entryStatus(t, uow, e1); got != workflow.EntryStatusSubmitted {
		t.Fatalf("expected resubmitted entry, got %s", got)
	}
}

func TestMonthlyCascadeSkipsDayDecidedEntries(t *testing.T) {
	uow := newMemUnitOfWork()
	dir := newMemDirectory()
	svc := newTestService(uow, dir)
	member := uuid.New()
	manager := uuid.New()
	dir.addReport(manager, member)
	ctx := context.Background()
	month := fiscal.Month{Year: 2026, Month: time.January}

	e1 := createEntry(t, svc, member, testDay, 8)
	e2 := createEntry(t, svc, member, testDay.AddDate(0, 0, 1), 6)
	if err := svc.SubmitMonthEntries(ctx, SubmitMonth{MemberID: member, Month: month, ActorID: member}); err != nil {
		t.Fatalf("submit month: %v", err)
	}

	// The member pulls one day back while the month is in review. The
	// monthly decision must still go through for the rest.
	if err := svc.RecallDayEntries(ctx, RecallDay{MemberID: member, Day: testDay, ActorID: member}); err != nil {
		t.Fatalf("recall day: %v", err)
	}
	if err := svc.ApproveMonthEntries(ctx, ApproveMonth{MemberID: member, Month: month, ActorID: manager}); err != nil {
		t.Fatalf("approve month after day recall: %v", err)
	}
	if got := entryStatus(t, uow, e1); got != workflow.EntryStatusDraft {
		t.Fatalf("recalled entry must stay draft, got %s", got)
	}
	if got := entryStatus(t, uow, e2); got != workflow.EntryStatusApproved {
		t.Fatalf("remaining entry should be approved, got %s", got)
	}
}

func TestMonthlyRejectSkipsDayRejectedEntries(t *testing.T) {
	uow := newMemUnitOfWork()
	dir := newMemDirectory()
	svc := newTestService(uow, dir)
	member := uuid.New()
	manager := uuid.New()
	dir.addReport(manager, member)
	ctx := context.Background()
	month := fiscal.Month{Year: 2026, Month: time.January}

	e1 := createEntry(t, svc, member, testDay, 8)
	e2 := createEntry(t, svc, member, testDay.AddDate(0, 0, 1), 6)
	if err := svc.SubmitMonthEntries(ctx, SubmitMonth{MemberID: member, Month: month, ActorID: member}); err != nil {
		t.Fatalf("submit month: %v", err)
	}

	if err := svc.RejectDayEntries(ctx, RejectDay{MemberID: member, Day: testDay, ActorID: manager, Reason: "wrong project"}); err != nil {
		t.Fatalf("reject day: %v", err)
	}
	if err := svc.RejectMonthEntries(ctx, RejectMonth{MemberID: member, Month: month, ActorID: manager, Reason: "rework"}); err != nil {
		t.Fatalf("reject month after day reject: %v", err)
	}
	for _, id := range []uuid.UUID{e1, e2} {
		if got := entryStatus(t, uow, id); got != workflow.EntryStatusDraft {
			t.Fatalf("entry %s should be back in draft, got %s", id, got)
		}
	}
	// Only the entry still in review carries the monthly reason; the
	// day-rejected one keeps its own rejection row.
	if row := uow.state.rejections[rejectionKey(member, testDay)]; row.Reason != "wrong project" {
		t.Fatalf("day rejection reason should survive, got %q", row.Reason)
	}
	if row := uow.state.rejections[rejectionKey(member, testDay.AddDate(0, 0, 1))]; row.Reason != "rework" {
		t.Fatalf("monthly rejection should log the remaining day, got %q", row.Reason)
	}
}

func TestSubmitDayWithNothingToSubmit(t *testing.T) {
	svc := newTestService(newMemUnitOfWork(), newMemDirectory())
	err := svc.SubmitDayEntries(context.Background(), SubmitDay{
		MemberID: uuid.New(), Day: testDay, ActorID: uuid.Nil,
	})
	if domain.ErrorCode(err) != domain.CodeProxyEntryNotAllowed {
		// Actor differs from member, so authorization fails first.
		t.Fatalf("expected PROXY_ENTRY_NOT_ALLOWED, got %v", err)
	}

	member := uuid.New()
	err = svc.SubmitDayEntries(context.Background(), SubmitDay{MemberID: member, Day: testDay, ActorID: member})
	if domain.ErrorCode(err) != domain.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for an empty day, got %v", err)
	}
}
