package command

import (
	"context"
	"errors"

	"github.com/rezkam/taskflow/internal/domain"
	"github.com/rezkam/taskflow/internal/event"
)

// HandleReminderEvent closes the reminder lifecycle from the bus: delivered
// and failed outcomes reported by the notification pipeline are applied to
// the reminder rows. All other reminder events are this service's own output
// and are acked untouched.
func (s *Service) HandleReminderEvent(ctx context.Context, env event.Envelope) (event.Status, error) {
	switch env.Type {
	case event.TypeReminderDelivered, event.TypeReminderFailed:
	default:
		return event.StatusSuccess, nil
	}

	dup, err := s.processed.IsDuplicate(ctx, env.ID)
	if err != nil {
		return event.StatusRetry, err
	}
	if dup {
		s.log.DebugContext(ctx, "duplicate reminder event dropped", "event_id", env.ID)
		return event.StatusDrop, nil
	}

	switch env.Type {
	case event.TypeReminderDelivered:
		var data event.ReminderDeliveredData
		if err := env.DecodeData(&data); err != nil {
			s.log.WarnContext(ctx, "malformed reminder event dropped", "event_id", env.ID, "error", err)
			return event.StatusDrop, nil
		}
		at := env.EventTime()
		err = s.repo.SetReminderStatus(ctx, data.ReminderID, domain.ReminderStatusDelivered, &at)
	case event.TypeReminderFailed:
		var data event.ReminderFailedData
		if err := env.DecodeData(&data); err != nil {
			s.log.WarnContext(ctx, "malformed reminder event dropped", "event_id", env.ID, "error", err)
			return event.StatusDrop, nil
		}
		err = s.repo.SetReminderStatus(ctx, data.ReminderID, domain.ReminderStatusFailed, nil)
	}

	switch {
	case errors.Is(err, domain.ErrReminderNotFound):
		// The task was deleted between trigger and outcome. Nothing to
		// update; record the event as handled.
		s.log.InfoContext(ctx, "reminder outcome for unknown reminder", "event_id", env.ID)
	case err != nil:
		return event.StatusRetry, err
	}

	if err := s.processed.MarkProcessed(ctx, env.ID); err != nil {
		return event.StatusRetry, err
	}
	return event.StatusSuccess, nil
}
