// Package notification turns fired scheduler jobs into the reminder
// lifecycle on the bus: triggered when the job fires, then delivered or
// failed depending on whether the fan-out reached the gateway topic.
package notification

import (
	"context"
	"log/slog"

	"github.com/rezkam/taskflow/internal/domain"
	"github.com/rezkam/taskflow/internal/event"
	"github.com/rezkam/taskflow/internal/infrastructure/scheduler"
)

// Source is the CloudEvents source stamped on reminder lifecycle events.
const Source = "notification-service"

// Publisher sends an envelope to its topic on the bus.
type Publisher interface {
	Publish(ctx context.Context, env event.Envelope) error
}

// JobCanceller cancels scheduler jobs. A 404 from the scheduler counts as
// success.
type JobCanceller interface {
	Cancel(ctx context.Context, name string) error
}

// ProcessedEvents is the per-service idempotency ledger.
type ProcessedEvents interface {
	IsDuplicate(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// Service handles scheduler callbacks and task-events subscriptions.
type Service struct {
	publisher Publisher
	jobs      JobCanceller
	processed ProcessedEvents
	log       *slog.Logger
}

// NewService creates a notification service.
func NewService(publisher Publisher, jobs JobCanceller, processed ProcessedEvents, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{publisher: publisher, jobs: jobs, processed: processed, log: log}
}

// HandleJobFired processes a scheduler callback for a fired reminder job.
// It publishes reminder.triggered.v1, then records the outcome: delivered
// when the triggered event reached the bus (the gateway takes it from
// there), failed otherwise.
func (s *Service) HandleJobFired(ctx context.Context, payload scheduler.JobPayload) error {
	s.log.InfoContext(ctx, "reminder job fired",
		"reminder_id", payload.ReminderID, "task_id", payload.TaskID, "user_id", payload.UserID)

	triggered, err := event.New(event.TypeReminderTriggered, Source, event.ReminderTriggeredData{
		ReminderID: payload.ReminderID,
		TaskID:     payload.TaskID,
		UserID:     payload.UserID,
	})
	if err != nil {
		return err
	}

	if err := s.publisher.Publish(ctx, triggered); err != nil {
		s.log.ErrorContext(ctx, "failed to publish reminder.triggered",
			"reminder_id", payload.ReminderID, "error", err)
		return s.publishOutcome(ctx, payload, false, "failed to publish triggered event")
	}
	return s.publishOutcome(ctx, payload, true, "")
}

// publishOutcome emits reminder.delivered.v1 or reminder.failed.v1.
func (s *Service) publishOutcome(ctx context.Context, payload scheduler.JobPayload, delivered bool, reason string) error {
	var env event.Envelope
	var err error
	if delivered {
		env, err = event.New(event.TypeReminderDelivered, Source, event.ReminderDeliveredData{
			ReminderID:   payload.ReminderID,
			TaskID:       payload.TaskID,
			UserID:       payload.UserID,
			DeliveredVia: "websocket",
		})
	} else {
		env, err = event.New(event.TypeReminderFailed, Source, event.ReminderFailedData{
			ReminderID: payload.ReminderID,
			TaskID:     payload.TaskID,
			UserID:     payload.UserID,
			Reason:     reason,
		})
	}
	if err != nil {
		return err
	}

	if err := s.publisher.Publish(ctx, env); err != nil {
		s.log.ErrorContext(ctx, "failed to publish reminder outcome",
			"reminder_id", payload.ReminderID, "delivered", delivered, "error", err)
		return err
	}
	return nil
}

// HandleTaskEvent reacts to the task-events topic: a deleted task gets its
// legacy task-scoped reminder job cancelled as a safety net on top of the
// command service's own per-reminder cancellation.
func (s *Service) HandleTaskEvent(ctx context.Context, env event.Envelope) (event.Status, error) {
	if env.Type != event.TypeTaskDeleted {
		return event.StatusSuccess, nil
	}

	dup, err := s.processed.IsDuplicate(ctx, env.ID)
	if err != nil {
		return event.StatusRetry, err
	}
	if dup {
		s.log.InfoContext(ctx, "duplicate task.deleted event dropped", "event_id", env.ID)
		return event.StatusDrop, nil
	}

	var data event.TaskDeletedData
	if err := env.DecodeData(&data); err != nil {
		s.log.WarnContext(ctx, "malformed task.deleted event dropped", "event_id", env.ID, "error", err)
		return event.StatusDrop, nil
	}

	jobName := domain.ReminderJobName(data.TaskID)
	if err := s.jobs.Cancel(ctx, jobName); err != nil {
		// Best effort: the command service already cancelled per-reminder
		// jobs inside the delete.
		s.log.WarnContext(ctx, "failed to cancel reminder job for deleted task",
			"job_name", jobName, "error", err)
	}

	if err := s.processed.MarkProcessed(ctx, env.ID); err != nil {
		return event.StatusRetry, err
	}
	return event.StatusSuccess, nil
}

// HandleReminderEvent acknowledges reminder.scheduled.v1 notices. The job
// itself was created by the command service; this subscription only records
// that the notice was seen.
func (s *Service) HandleReminderEvent(ctx context.Context, env event.Envelope) (event.Status, error) {
	if env.Type != event.TypeReminderScheduled {
		return event.StatusSuccess, nil
	}

	dup, err := s.processed.IsDuplicate(ctx, env.ID)
	if err != nil {
		return event.StatusRetry, err
	}
	if dup {
		return event.StatusDrop, nil
	}

	var data event.ReminderScheduledData
	if err := env.DecodeData(&data); err != nil {
		s.log.WarnContext(ctx, "malformed reminder.scheduled event dropped", "event_id", env.ID, "error", err)
		return event.StatusDrop, nil
	}
	s.log.InfoContext(ctx, "reminder scheduled",
		"reminder_id", data.ReminderID, "task_id", data.TaskID, "trigger_time", data.TriggerTime)

	if err := s.processed.MarkProcessed(ctx, env.ID); err != nil {
		return event.StatusRetry, err
	}
	return event.StatusSuccess, nil
}
