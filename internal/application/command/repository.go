package command

import (
	"context"
	"time"

	"github.com/rezkam/taskflow/internal/domain"
	"github.com/rezkam/taskflow/internal/event"
	"github.com/rezkam/taskflow/internal/infrastructure/scheduler"
)

// Repository defines storage operations for the command service's task
// database. Every read is scoped to the owning user where a userID parameter
// is present; a lookup for another user's resource returns the same not-found
// error as a missing one.
type Repository interface {
	// Atomic runs fn inside a single transaction. The Repository passed to
	// fn shares that transaction; the outer Repository must not be used
	// inside fn. Returning an error rolls everything back, including
	// appended outbox events.
	Atomic(ctx context.Context, fn func(Repository) error) error

	// CreateTask inserts a new task row.
	CreateTask(ctx context.Context, task *domain.Task) error

	// FindTaskByID retrieves a task owned by userID. Soft-deleted tasks are
	// treated as missing. Returns domain.ErrTaskNotFound otherwise.
	FindTaskByID(ctx context.Context, userID, taskID string) (*domain.Task, error)

	// ListTasks retrieves the user's non-deleted tasks filtered by status,
	// ordered by updated_at descending, together with unfiltered counts.
	ListTasks(ctx context.Context, userID string, filter domain.StatusFilter) ([]*domain.Task, domain.TaskCounts, error)

	// UpdateTask persists all mutable task fields by id and owner.
	// Returns domain.ErrTaskNotFound if no row matches.
	UpdateTask(ctx context.Context, task *domain.Task) error

	// CreateRule inserts a new recurrence rule row.
	CreateRule(ctx context.Context, rule *domain.RecurrenceRule) error

	// FindRuleByID retrieves a rule whose owning task belongs to userID.
	// Returns domain.ErrRuleNotFound otherwise.
	FindRuleByID(ctx context.Context, userID, ruleID string) (*domain.RecurrenceRule, error)

	// UpdateRule persists all mutable rule fields.
	// Returns domain.ErrRuleNotFound if no row matches.
	UpdateRule(ctx context.Context, rule *domain.RecurrenceRule) error

	// DeleteRule removes a rule whose owning task belongs to userID. Tasks
	// referencing the rule are detached by the schema's ON DELETE SET NULL.
	// Returns domain.ErrRuleNotFound if no row matches.
	DeleteRule(ctx context.Context, userID, ruleID string) error

	// CreateReminder inserts a new reminder row.
	CreateReminder(ctx context.Context, reminder *domain.Reminder) error

	// FindPendingRemindersByTask retrieves the task's reminders still in
	// the pending state.
	FindPendingRemindersByTask(ctx context.Context, taskID string) ([]*domain.Reminder, error)

	// SetReminderStatus moves a reminder to the given status. DeliveredAt is
	// recorded when non-nil. Returns domain.ErrReminderNotFound if no row
	// matches.
	SetReminderStatus(ctx context.Context, reminderID string, status domain.ReminderStatus, deliveredAt *time.Time) error

	// AppendEvent stages an envelope in the outbox. The relay publishes it
	// to the bus after the surrounding transaction commits.
	AppendEvent(ctx context.Context, env event.Envelope) error
}

// JobScheduler creates and cancels one-shot reminder jobs on the scheduler
// sidecar.
type JobScheduler interface {
	Schedule(ctx context.Context, name string, dueTime time.Time, payload scheduler.JobPayload) error
	Cancel(ctx context.Context, name string) error
}

// ProcessedEvents is the per-service idempotency ledger consulted before
// applying a bus delivery.
type ProcessedEvents interface {
	IsDuplicate(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}
