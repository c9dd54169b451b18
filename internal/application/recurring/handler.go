// Package recurring spawns the next occurrence of a completed recurring
// task. It owns no database: rules and tasks live in the command service and
// are read and written through its internal invocation endpoints.
package recurring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rezkam/taskflow/internal/domain"
	"github.com/rezkam/taskflow/internal/event"
	"github.com/rezkam/taskflow/internal/infrastructure/invocation"
	calc "github.com/rezkam/taskflow/internal/recurring"
)

// Source is the CloudEvents source stamped on generated events.
const Source = "recurring-service"

// CommandAPI is the slice of the command service's internal surface this
// handler needs.
type CommandAPI interface {
	GetRule(ctx context.Context, ruleID, userID string) (*invocation.Rule, error)
	PatchRule(ctx context.Context, ruleID string, patch invocation.RulePatchRequest) (*invocation.Rule, error)
	GetTask(ctx context.Context, taskID, userID string) (*invocation.Task, error)
	CreateTask(ctx context.Context, req invocation.CreateTaskRequest) (*invocation.Task, error)
}

// Publisher sends an envelope to its topic on the bus.
type Publisher interface {
	Publish(ctx context.Context, env event.Envelope) error
}

// ProcessedEvents is the per-service idempotency ledger.
type ProcessedEvents interface {
	IsDuplicate(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// Handler processes task.completed.v1 events.
type Handler struct {
	api       CommandAPI
	publisher Publisher
	processed ProcessedEvents
	log       *slog.Logger
	now       func() time.Time
}

// NewHandler creates a recurrence handler.
func NewHandler(api CommandAPI, publisher Publisher, processed ProcessedEvents, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		api:       api,
		publisher: publisher,
		processed: processed,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// HandleTaskCompleted spawns the next occurrence for a completed task whose
// recurrence rule is still active. Duplicate deliveries are dropped on the
// idempotency ledger; once the successor task exists, later failures in the
// same pass are logged but never retried, so one completion spawns at most
// one occurrence.
func (h *Handler) HandleTaskCompleted(ctx context.Context, env event.Envelope) (event.Status, error) {
	if env.Type != event.TypeTaskCompleted {
		return event.StatusSuccess, nil
	}

	var data event.TaskCompletedData
	if err := env.DecodeData(&data); err != nil {
		h.log.WarnContext(ctx, "malformed task.completed event dropped", "event_id", env.ID, "error", err)
		return event.StatusDrop, nil
	}
	if !data.HadRecurrenceRule || data.RecurrenceRuleID == "" {
		return event.StatusSuccess, nil
	}

	dup, err := h.processed.IsDuplicate(ctx, env.ID)
	if err != nil {
		return event.StatusRetry, err
	}
	if dup {
		h.log.InfoContext(ctx, "duplicate task.completed event dropped", "event_id", env.ID)
		return event.StatusDrop, nil
	}

	rule, err := h.api.GetRule(ctx, data.RecurrenceRuleID, data.UserID)
	if err != nil {
		return h.upstreamFailure(ctx, env.ID, "fetch recurrence rule", err)
	}

	if !rule.IsActive {
		h.log.InfoContext(ctx, "recurrence rule inactive, skipping", "rule_id", rule.ID)
		return h.finish(ctx, env.ID)
	}

	if rule.EndAfterCount != nil && rule.OccurrencesGenerated >= *rule.EndAfterCount {
		h.log.InfoContext(ctx, "recurrence rule reached occurrence budget, deactivating",
			"rule_id", rule.ID, "occurrences", rule.OccurrencesGenerated)
		return h.deactivate(ctx, env.ID, rule.ID, data.UserID)
	}

	if rule.EndByDate != "" {
		endBy, err := domain.ParseDueDate(rule.EndByDate)
		if err != nil {
			h.log.WarnContext(ctx, "invalid end_by_date on rule", "rule_id", rule.ID, "end_by_date", rule.EndByDate)
		} else if !h.now().Before(endBy) {
			h.log.InfoContext(ctx, "recurrence rule past end date, deactivating",
				"rule_id", rule.ID, "end_by_date", rule.EndByDate)
			return h.deactivate(ctx, env.ID, rule.ID, data.UserID)
		}
	}

	nextDue := h.nextDueDate(ctx, rule, data)

	title, description, dueTime := h.sourceTaskFields(ctx, data)

	created, err := h.api.CreateTask(ctx, invocation.CreateTaskRequest{
		UserID:           data.UserID,
		Title:            title,
		Description:      description,
		DueDate:          nextDue.Format(domain.DueDateLayout),
		DueTime:          dueTime,
		RecurrenceRuleID: rule.ID,
	})
	if err != nil {
		return h.upstreamFailure(ctx, env.ID, "create successor task", err)
	}

	occurrence := rule.OccurrencesGenerated + 1
	_, err = h.api.PatchRule(ctx, rule.ID, invocation.RulePatchRequest{
		UserID:               data.UserID,
		OccurrencesGenerated: &occurrence,
		BaseDueDate:          nextDue.Format(domain.DueDateLayout),
	})
	if err != nil {
		// The successor exists; retrying the whole event would spawn a
		// second one. Surface the inconsistency and move on.
		h.log.ErrorContext(ctx, "failed to advance recurrence rule after generation",
			"rule_id", rule.ID, "new_task_id", created.ID, "error", err)
	}

	genEnv, err := event.New(event.TypeRecurringGenerated, Source, event.RecurringGeneratedData{
		OriginalTaskID:   data.TaskID,
		NewTaskID:        created.ID,
		UserID:           data.UserID,
		RecurrenceRuleID: rule.ID,
		DueDate:          nextDue.Format(domain.DueDateLayout),
		OccurrenceNumber: occurrence,
	})
	if err != nil {
		h.log.ErrorContext(ctx, "failed to build recurring.generated event", "error", err)
	} else if err := h.publisher.Publish(ctx, genEnv); err != nil {
		h.log.ErrorContext(ctx, "failed to publish recurring.generated event",
			"new_task_id", created.ID, "error", err)
	}

	h.log.InfoContext(ctx, "recurring task generated",
		"new_task_id", created.ID, "rule_id", rule.ID, "occurrence", occurrence)
	return h.finish(ctx, env.ID)
}

// nextDueDate computes the successor's due date from the rule's base date,
// falling back to the completed task's due date and finally to now.
func (h *Handler) nextDueDate(ctx context.Context, rule *invocation.Rule, data event.TaskCompletedData) time.Time {
	base := h.now()
	for _, candidate := range []string{rule.BaseDueDate, data.DueDate} {
		if candidate == "" {
			continue
		}
		d, err := domain.ParseDueDate(candidate)
		if err != nil {
			h.log.WarnContext(ctx, "unparseable base due date", "value", candidate)
			continue
		}
		base = d
		break
	}

	frequency, err := domain.NewFrequency(rule.Frequency)
	if err != nil {
		h.log.WarnContext(ctx, "unknown rule frequency, defaulting to daily",
			"rule_id", rule.ID, "frequency", rule.Frequency)
		frequency = domain.FrequencyDaily
	}
	return calc.ForFrequency(frequency).NextDueDate(base)
}

// sourceTaskFields reads title, description, and due time from the completed
// task so the successor mirrors its latest state. A vanished source task
// degrades to a placeholder title.
func (h *Handler) sourceTaskFields(ctx context.Context, data event.TaskCompletedData) (title, description, dueTime string) {
	task, err := h.api.GetTask(ctx, data.TaskID, data.UserID)
	if err != nil {
		h.log.WarnContext(ctx, "could not fetch source task for successor",
			"task_id", data.TaskID, "error", err)
		return fmt.Sprintf("Recurring task from %s", data.TaskID), "", ""
	}
	return task.Title, task.Description, task.DueTime
}

// deactivate flips the rule inactive and records the event as processed.
func (h *Handler) deactivate(ctx context.Context, eventID, ruleID, userID string) (event.Status, error) {
	inactive := false
	if _, err := h.api.PatchRule(ctx, ruleID, invocation.RulePatchRequest{
		UserID:   userID,
		IsActive: &inactive,
	}); err != nil {
		return h.upstreamFailure(ctx, eventID, "deactivate recurrence rule", err)
	}
	return h.finish(ctx, eventID)
}

// upstreamFailure maps an invocation error to a bus status: transient
// failures retry, permanent rejections are recorded and dropped.
func (h *Handler) upstreamFailure(ctx context.Context, eventID, op string, err error) (event.Status, error) {
	if invocation.IsTransient(err) {
		return event.StatusRetry, fmt.Errorf("failed to %s: %w", op, err)
	}
	h.log.ErrorContext(ctx, "permanent upstream rejection, dropping event",
		"event_id", eventID, "operation", op, "error", err)
	if markErr := h.processed.MarkProcessed(ctx, eventID); markErr != nil {
		h.log.WarnContext(ctx, "failed to mark event processed", "event_id", eventID, "error", markErr)
	}
	return event.StatusDrop, nil
}

// finish marks the event processed and acks it. A mark failure only costs
// the idempotency guard for this id, so it is logged rather than retried.
func (h *Handler) finish(ctx context.Context, eventID string) (event.Status, error) {
	if err := h.processed.MarkProcessed(ctx, eventID); err != nil {
		h.log.WarnContext(ctx, "failed to mark event processed", "event_id", eventID, "error", err)
	}
	return event.StatusSuccess, nil
}
