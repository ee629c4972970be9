package orchestrator

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"worklog-approval-system/shared/events"
	"worklog-approval-system/shared/logx"
	"worklog-approval-system/shared/metricsx"
	"worklog-approval-system/timesheet/internal/domain"
	"worklog-approval-system/timesheet/internal/eventstore"
	"worklog-approval-system/timesheet/internal/models"
)

type Config struct {
	// RetryMax bounds how often a command is re-run after losing an
	// optimistic-concurrency race.
	RetryMax int
	// FiscalStartDay is the day of month a fiscal month begins on, 1..28.
	FiscalStartDay int
	AuditTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.RetryMax <= 0 {
		c.RetryMax = 3
	}
	if c.FiscalStartDay < 1 || c.FiscalStartDay > 28 {
		c.FiscalStartDay = 1
	}
	if c.AuditTimeout <= 0 {
		c.AuditTimeout = 3 * time.Second
	}
	return c
}

// Service coordinates commands that span several aggregates: it opens the
// transaction, re-runs commands that lose an optimistic race, checks
// proxy permissions against the directory, and stages notifications in the
// outbox within the same transaction.
type Service struct {
	uow       UnitOfWork
	directory Directory
	audit     AuditWriter
	log       logx.Logger
	cfg       Config
	tracer    trace.Tracer
}

func New(uow UnitOfWork, directory Directory, audit AuditWriter, log logx.Logger, cfg Config) *Service {
	return &Service{
		uow:       uow,
		directory: directory,
		audit:     audit,
		log:       log,
		cfg:       cfg.withDefaults(),
		tracer:    otel.Tracer("timesheet/orchestrator"),
	}
}

// run executes one command inside a transaction, retrying on version
// conflicts. Each retry re-runs fn from scratch, so it reloads aggregates at
// their new head version.
func (s *Service) run(ctx context.Context, command string, fn func(ctx context.Context, st Stores) error) error {
	ctx, span := s.tracer.Start(ctx, command)
	defer span.End()
	start := time.Now()

	var err error
	for attempt := 0; ; attempt++ {
		err = s.uow.Within(ctx, fn)
		if err == nil || !eventstore.IsConflict(err) || attempt >= s.cfg.RetryMax {
			break
		}
		s.log.Warn(ctx, "command_conflict_retry", "optimistic conflict, retrying",
			slog.String("command", command), slog.Int("attempt", attempt+1))
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 25 * time.Millisecond):
			continue
		}
		break
	}

	metricsx.ObserveCommandLatency(command, time.Since(start))
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// authorizeActor allows a member to act for themselves and a manager to act
// for anyone in their reporting chain.
func (s *Service) authorizeActor(ctx context.Context, actorID uuid.UUID, memberID uuid.UUID) error {
	if actorID == memberID {
		return nil
	}
	ok, err := s.directory.IsSubordinate(ctx, actorID, memberID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Errorf(domain.CodeProxyEntryNotAllowed, "actor %s is not a manager of member %s", actorID, memberID)
	}
	return nil
}

// requireManager is for review decisions: the actor must be in the member's
// management chain, acting for themselves is not enough.
func (s *Service) requireManager(ctx context.Context, actorID uuid.UUID, memberID uuid.UUID) error {
	ok, err := s.directory.IsSubordinate(ctx, actorID, memberID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Errorf(domain.CodeProxyEntryNotAllowed, "actor %s is not a manager of member %s", actorID, memberID)
	}
	return nil
}

// requireSelf guards recall: only the member themselves may take back a
// submission.
func requireSelf(actorID uuid.UUID, memberID uuid.UUID) error {
	if actorID != memberID {
		return domain.Errorf(domain.CodeProxyEntryNotAllowed, "actor %s may not recall submissions of member %s", actorID, memberID)
	}
	return nil
}

// checkDailyLimit sums the member's other live entries on the day and fails
// when adding hours would push the date past the 24-hour cap. The sum is
// read inside the command transaction; a concurrent writer loses its own
// version race instead of corrupting the total.
func (s *Service) checkDailyLimit(ctx context.Context, st Stores, memberID uuid.UUID, day time.Time, exclude uuid.UUID, hours float64) error {
	total, err := st.Entries().SumHoursForDay(ctx, memberID, day, exclude)
	if err != nil {
		return err
	}
	if total+hours > domain.MaxDailyHours {
		metricsx.IncDailyLimitRejection()
		return domain.Errorf(domain.CodeDailyLimitExceeded,
			"member %s already has %g hours on %s, adding %g exceeds the daily limit of %g",
			memberID, total, domain.Day(day).Format("2006-01-02"), hours, domain.MaxDailyHours)
	}
	return nil
}

// checkUniqueEntry rejects a second live entry for the same member, project
// and work date. Deleted entries free the slot; the read runs inside the
// command transaction, so a racing duplicate loses its version check.
func (s *Service) checkUniqueEntry(ctx context.Context, st Stores, memberID uuid.UUID, projectID uuid.UUID, day time.Time) error {
	from, to := dayWindow(day)
	rows, err := st.Entries().ListEntries(ctx, memberID, from, to)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row.ProjectID == projectID {
			return domain.Errorf(domain.CodeDuplicateEntry,
				"member %s already has an entry for project %s on %s",
				memberID, projectID, from.Format("2006-01-02"))
		}
	}
	return nil
}

// notify stages an envelope on the outbox inside the command transaction.
func notify(ctx context.Context, st Stores, topic string, aggregateType string, aggregateID uuid.UUID, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(events.Envelope{
		EventID:       uuid.New(),
		OccurredAt:    time.Now().UTC(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       body,
	})
	if err != nil {
		return err
	}
	_, err = st.Outbox().Insert(ctx, models.OutboxEvent{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Topic:         topic,
		Payload:       raw,
	})
	return err
}

// writeAudit records the trail after the command committed. The write runs
// detached with its own deadline; a failed audit write is logged, never
// surfaced to the caller.
func (s *Service) writeAudit(actorID uuid.UUID, action string, resourceType string, resourceID uuid.UUID, outcome string, details any) {
	if s.audit == nil {
		return
	}
	raw, err := json.Marshal(details)
	if err != nil {
		raw = nil
	}
	entry := models.AuditLog{
		OccurredAt:   time.Now().UTC(),
		ActorID:      actorID,
		Action:       action,
		ResourceType: resourceType,
		Outcome:      outcome,
		Details:      raw,
	}
	if resourceID != uuid.Nil {
		id := resourceID
		entry.ResourceID = &id
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.AuditTimeout)
		defer cancel()
		if err := s.audit.WriteAuditLog(ctx, []models.AuditLog{entry}); err != nil {
			s.log.Warn(ctx, "audit_write_failed", "audit log write failed",
				slog.String("action", action), slog.String("error", err.Error()))
		}
	}()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
