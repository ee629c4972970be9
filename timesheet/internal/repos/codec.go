package repos

import (
	"encoding/json"

	"worklog-approval-system/timesheet/internal/domain"
	"worklog-approval-system/timesheet/internal/models"
)

// eventFactories maps the stored event_type back to its concrete struct.
// A type missing here makes the load fail rather than skip: replaying a
// partial history would reconstruct wrong state.
var eventFactories = map[string]func() domain.Event{
	domain.EventWorkLogRecorded:  func() domain.Event { return &domain.WorkLogRecorded{} },
	domain.EventWorkLogUpdated:   func() domain.Event { return &domain.WorkLogUpdated{} },
	domain.EventWorkLogSubmitted: func() domain.Event { return &domain.WorkLogSubmitted{} },
	domain.EventWorkLogApproved:  func() domain.Event { return &domain.WorkLogApproved{} },
	domain.EventWorkLogReturned:  func() domain.Event { return &domain.WorkLogReturned{} },
	domain.EventWorkLogDeleted:   func() domain.Event { return &domain.WorkLogDeleted{} },

	domain.EventAbsenceRecorded:  func() domain.Event { return &domain.AbsenceRecorded{} },
	domain.EventAbsenceUpdated:   func() domain.Event { return &domain.AbsenceUpdated{} },
	domain.EventAbsenceSubmitted: func() domain.Event { return &domain.AbsenceSubmitted{} },
	domain.EventAbsenceApproved:  func() domain.Event { return &domain.AbsenceApproved{} },
	domain.EventAbsenceRejected:  func() domain.Event { return &domain.AbsenceRejected{} },
	domain.EventAbsenceRecalled:  func() domain.Event { return &domain.AbsenceRecalled{} },
	domain.EventAbsenceReopened:  func() domain.Event { return &domain.AbsenceReopened{} },
	domain.EventAbsenceDeleted:   func() domain.Event { return &domain.AbsenceDeleted{} },

	domain.EventApprovalOpened:    func() domain.Event { return &domain.ApprovalOpened{} },
	domain.EventApprovalSubmitted: func() domain.Event { return &domain.ApprovalSubmitted{} },
	domain.EventApprovalApproved:  func() domain.Event { return &domain.ApprovalApproved{} },
	domain.EventApprovalRejected:  func() domain.Event { return &domain.ApprovalRejected{} },
	domain.EventApprovalRecalled:  func() domain.Event { return &domain.ApprovalRecalled{} },
}

func encodeEvents(events []domain.Event) ([]models.StoredEvent, error) {
	stored := make([]models.StoredEvent, 0, len(events))
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return nil, err
		}
		stored = append(stored, models.StoredEvent{
			EventID:    ev.EventID(),
			EventType:  ev.EventType(),
			Payload:    payload,
			OccurredAt: ev.OccurredAt(),
		})
	}
	return stored, nil
}

func decodeEvent(stored models.StoredEvent) (domain.Event, error) {
	factory, ok := eventFactories[stored.EventType]
	if !ok {
		return nil, domain.Errorf(domain.CodeUnknownEventType, "no decoder for event type %q at %s v%d", stored.EventType, stored.AggregateID, stored.Version)
	}
	ev := factory()
	if err := json.Unmarshal(stored.Payload, ev); err != nil {
		return nil, domain.Errorf(domain.CodeUnknownEventType, "event %s v%d does not decode: %v", stored.AggregateID, stored.Version, err)
	}
	return ev, nil
}
