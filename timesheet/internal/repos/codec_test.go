package repos

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"worklog-approval-system/shared/fiscal"
	"worklog-approval-system/timesheet/internal/domain"
	"worklog-approval-system/timesheet/internal/models"
)

func TestEventsSurviveCodec(t *testing.T) {
	day := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	member := uuid.New()
	manager := uuid.New()

	entry, err := domain.RecordWorkLog(member, uuid.New(), day, 7.5, "sprint work", member)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := entry.Submit(member); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := entry.Approve(manager); err != nil {
		t.Fatalf("approve: %v", err)
	}

	pending := entry.Uncommitted()
	stored, err := encodeEvents(pending)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(stored) != len(pending) {
		t.Fatalf("encoded %d rows for %d events", len(stored), len(pending))
	}

	replayed := domain.NewWorkLogEntry()
	for i, row := range stored {
		if row.EventID != pending[i].EventID() {
			t.Fatalf("row %d carries event id %s, want %s", i, row.EventID, pending[i].EventID())
		}
		if row.EventType != pending[i].EventType() {
			t.Fatalf("row %d carries type %q, want %q", i, row.EventType, pending[i].EventType())
		}
		ev, err := decodeEvent(row)
		if err != nil {
			t.Fatalf("decode row %d: %v", i, err)
		}
		if err := replayed.Replay(ev); err != nil {
			t.Fatalf("replay row %d: %v", i, err)
		}
	}

	if replayed.ID() != entry.ID() {
		t.Fatalf("replayed id %s, want %s", replayed.ID(), entry.ID())
	}
	if replayed.Hours != 7.5 || replayed.Comment != "sprint work" {
		t.Fatalf("replayed fields diverged: hours=%v comment=%q", replayed.Hours, replayed.Comment)
	}
	if replayed.Status != entry.Status {
		t.Fatalf("replayed status %s, want %s", replayed.Status, entry.Status)
	}
	if replayed.Version() != len(stored) {
		t.Fatalf("replayed version %d, want %d", replayed.Version(), len(stored))
	}
}

func TestApprovalEventsSurviveCodec(t *testing.T) {
	member := uuid.New()
	month := fiscal.Month{Year: 2026, Month: time.February}

	approval, err := domain.OpenMonthlyApproval(member, month)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := approval.Submit(member, []uuid.UUID{uuid.New(), uuid.New()}, []uuid.UUID{uuid.New()}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	stored, err := encodeEvents(approval.Uncommitted())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	replayed := domain.NewMonthlyApproval()
	for i, row := range stored {
		ev, err := decodeEvent(row)
		if err != nil {
			t.Fatalf("decode row %d: %v", i, err)
		}
		if err := replayed.Replay(ev); err != nil {
			t.Fatalf("replay row %d: %v", i, err)
		}
	}
	if replayed.FiscalMonth != month {
		t.Fatalf("replayed month %s, want %s", replayed.FiscalMonth, month)
	}
	if len(replayed.EntryIDs) != 2 || len(replayed.AbsenceIDs) != 1 {
		t.Fatalf("replayed id sets %d/%d, want 2/1", len(replayed.EntryIDs), len(replayed.AbsenceIDs))
	}
}

func TestDecodeUnknownEventType(t *testing.T) {
	_, err := decodeEvent(models.StoredEvent{
		AggregateID: uuid.New(),
		Version:     3,
		EventType:   "entry_exported",
		Payload:     []byte(`{}`),
	})
	if err == nil {
		t.Fatalf("expected unknown event type to fail the load")
	}
	if !domain.IsCode(err, domain.CodeUnknownEventType) {
		t.Fatalf("expected %s, got %v", domain.CodeUnknownEventType, err)
	}
}

func TestDecodeMalformedPayload(t *testing.T) {
	_, err := decodeEvent(models.StoredEvent{
		AggregateID: uuid.New(),
		Version:     1,
		EventType:   domain.EventWorkLogRecorded,
		Payload:     []byte(`{"hours":`),
	})
	if err == nil {
		t.Fatalf("expected malformed payload to fail the load")
	}
}
