// Package command implements the task-mutation side of the platform: the
// task, recurrence-rule, and reminder lifecycles, with every mutation staging
// its event in the transactional outbox.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rezkam/taskflow/internal/domain"
	"github.com/rezkam/taskflow/internal/event"
	"github.com/rezkam/taskflow/internal/infrastructure/scheduler"
)

// Source is the CloudEvents source stamped on every envelope this service
// produces.
const Source = "command-service"

// Service provides business logic for task management. Mutations write the
// row and its event in one transaction; scheduler jobs are created after
// commit because the sidecar call cannot join the transaction.
type Service struct {
	repo      Repository
	jobs      JobScheduler
	processed ProcessedEvents
	log       *slog.Logger
}

// NewService creates a new command service.
func NewService(repo Repository, jobs JobScheduler, processed ProcessedEvents, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, jobs: jobs, processed: processed, log: log}
}

// RecurrenceInput describes a rule to attach at task creation or update.
type RecurrenceInput struct {
	Frequency     string
	EndAfterCount *int
	EndByDate     string // YYYY-MM-DD, exclusive of nothing: generation stops once passed
}

// CreateTaskInput carries the fields of a new task. Zero values mean absent.
type CreateTaskInput struct {
	Title        string
	Description  string
	DueDate      string // YYYY-MM-DD
	DueTime      string // HH:MM
	Priority     string
	Tags         string
	ReminderTime string // RFC 3339, must be in the future
	Recurrence   *RecurrenceInput

	// RecurrenceRuleID attaches an existing rule instead of creating one.
	// Used by the internal create endpoint when the recurring service
	// spawns the next occurrence. Mutually exclusive with Recurrence.
	RecurrenceRuleID string
}

// CreateTask creates a task for the user, together with its recurrence rule
// and reminder when requested. Publishes task.created.v1 and, when a
// reminder is attached, reminder.scheduled.v1.
func (s *Service) CreateTask(ctx context.Context, userID string, in CreateTaskInput) (*domain.Task, error) {
	title, err := domain.NewTitle(in.Title)
	if err != nil {
		return nil, err
	}
	description, err := domain.NewDescription(in.Description)
	if err != nil {
		return nil, err
	}
	priority, err := domain.NewPriority(in.Priority)
	if err != nil {
		return nil, err
	}

	var dueDate *time.Time
	if in.DueDate != "" {
		d, err := domain.ParseDueDate(in.DueDate)
		if err != nil {
			return nil, err
		}
		dueDate = &d
	}

	var dueTime *string
	if in.DueTime != "" {
		t, err := domain.NewDueTime(in.DueTime)
		if err != nil {
			return nil, err
		}
		dueTime = &t
	}

	now := time.Now().UTC()

	var trigger *time.Time
	if in.ReminderTime != "" {
		t, err := parseTriggerTime(in.ReminderTime, now)
		if err != nil {
			return nil, err
		}
		trigger = &t
	}

	taskID, err := newID()
	if err != nil {
		return nil, err
	}

	task := &domain.Task{
		ID:           taskID,
		UserID:       userID,
		Title:        title.String(),
		Description:  description.String(),
		Status:       domain.TaskStatusPending,
		Priority:     priority,
		Tags:         in.Tags,
		DueDate:      dueDate,
		DueTime:      dueTime,
		ReminderTime: trigger,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var rule *domain.RecurrenceRule
	switch {
	case in.Recurrence != nil:
		rule, err = buildRule(taskID, *in.Recurrence, dueDate, now)
		if err != nil {
			return nil, err
		}
		task.RecurrenceRuleID = &rule.ID
	case in.RecurrenceRuleID != "":
		ruleID := in.RecurrenceRuleID
		task.RecurrenceRuleID = &ruleID
	}

	var reminder *domain.Reminder
	if trigger != nil {
		reminder, err = buildReminder(taskID, userID, *trigger, now)
		if err != nil {
			return nil, err
		}
	}

	createdEnv, err := event.New(event.TypeTaskCreated, Source, taskCreatedPayload(task, rule))
	if err != nil {
		return nil, err
	}

	var scheduledEnv event.Envelope
	if reminder != nil {
		scheduledEnv, err = event.New(event.TypeReminderScheduled, Source, reminderScheduledPayload(reminder))
		if err != nil {
			return nil, err
		}
	}

	err = s.repo.Atomic(ctx, func(r Repository) error {
		if rule == nil {
			if err := r.CreateTask(ctx, task); err != nil {
				return err
			}
		} else {
			// The rule references the task and the task references the
			// rule, so the task is inserted detached first.
			detached := *task
			detached.RecurrenceRuleID = nil
			if err := r.CreateTask(ctx, &detached); err != nil {
				return err
			}
			if err := r.CreateRule(ctx, rule); err != nil {
				return err
			}
			if err := r.UpdateTask(ctx, task); err != nil {
				return err
			}
		}
		if reminder != nil {
			if err := r.CreateReminder(ctx, reminder); err != nil {
				return err
			}
		}
		if err := r.AppendEvent(ctx, createdEnv); err != nil {
			return err
		}
		if reminder != nil {
			return r.AppendEvent(ctx, scheduledEnv)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if reminder != nil {
		s.scheduleJob(ctx, reminder)
	}

	return task, nil
}

// UpdateTaskInput carries a full task update. Title is required; nil pointer
// fields are left untouched; pointers to the empty string clear the field.
type UpdateTaskInput struct {
	Title        string
	Description  *string
	Priority     *string
	Tags         *string
	DueDate      *string
	DueTime      *string
	ReminderTime *string
	Recurrence   *RecurrenceInput
}

// UpdateTask applies the update to a task owned by the user and publishes
// task.updated.v1 with the changed fields. Changing the reminder time
// supersedes any pending reminder: its job is cancelled and a fresh reminder
// with a fresh job takes its place.
func (s *Service) UpdateTask(ctx context.Context, userID, taskID string, in UpdateTaskInput) (*domain.Task, error) {
	title, err := domain.NewTitle(in.Title)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	changes := map[string]any{"title": title.String()}

	var description *string
	if in.Description != nil {
		d, err := domain.NewDescription(*in.Description)
		if err != nil {
			return nil, err
		}
		v := d.String()
		description = &v
		changes["description"] = v
	}

	var priority *domain.Priority
	if in.Priority != nil {
		p, err := domain.NewPriority(*in.Priority)
		if err != nil {
			return nil, err
		}
		priority = &p
		changes["priority"] = string(p)
	}

	var dueDate *time.Time
	clearDueDate := false
	if in.DueDate != nil {
		changes["due_date"] = *in.DueDate
		if *in.DueDate == "" {
			clearDueDate = true
		} else {
			d, err := domain.ParseDueDate(*in.DueDate)
			if err != nil {
				return nil, err
			}
			dueDate = &d
		}
	}

	var dueTime *string
	clearDueTime := false
	if in.DueTime != nil {
		changes["due_time"] = *in.DueTime
		if *in.DueTime == "" {
			clearDueTime = true
		} else {
			t, err := domain.NewDueTime(*in.DueTime)
			if err != nil {
				return nil, err
			}
			dueTime = &t
		}
	}

	var trigger *time.Time
	if in.ReminderTime != nil {
		changes["reminder_time"] = *in.ReminderTime
		if *in.ReminderTime != "" {
			t, err := parseTriggerTime(*in.ReminderTime, now)
			if err != nil {
				return nil, err
			}
			trigger = &t
		}
	}

	var (
		task        *domain.Task
		newReminder *domain.Reminder
		cancelJobs  []string
	)
	err = s.repo.Atomic(ctx, func(r Repository) error {
		var err error
		task, err = r.FindTaskByID(ctx, userID, taskID)
		if err != nil {
			return err
		}

		task.Title = title.String()
		if description != nil {
			task.Description = *description
		}
		if priority != nil {
			task.Priority = *priority
		}
		if in.Tags != nil {
			task.Tags = *in.Tags
			changes["tags"] = *in.Tags
		}
		if clearDueDate {
			task.DueDate = nil
		} else if dueDate != nil {
			task.DueDate = dueDate
		}
		if clearDueTime {
			task.DueTime = nil
		} else if dueTime != nil {
			task.DueTime = dueTime
		}

		if in.ReminderTime != nil {
			pending, err := r.FindPendingRemindersByTask(ctx, task.ID)
			if err != nil {
				return err
			}
			for _, rem := range pending {
				if err := r.SetReminderStatus(ctx, rem.ID, domain.ReminderStatusFailed, nil); err != nil {
					return err
				}
				cancelJobs = append(cancelJobs, rem.JobName)
			}
			task.ReminderTime = trigger
			if trigger != nil {
				newReminder, err = buildReminder(task.ID, userID, *trigger, now)
				if err != nil {
					return err
				}
				if err := r.CreateReminder(ctx, newReminder); err != nil {
					return err
				}
			}
		}

		if in.Recurrence != nil {
			if err := s.upsertRule(ctx, r, task, *in.Recurrence, now); err != nil {
				return err
			}
		}

		task.UpdatedAt = now
		if err := r.UpdateTask(ctx, task); err != nil {
			return err
		}

		env, err := event.New(event.TypeTaskUpdated, Source, event.TaskUpdatedData{
			TaskID:  task.ID,
			UserID:  userID,
			Changes: changes,
		})
		if err != nil {
			return err
		}
		if err := r.AppendEvent(ctx, env); err != nil {
			return err
		}

		if newReminder != nil {
			schedEnv, err := event.New(event.TypeReminderScheduled, Source, reminderScheduledPayload(newReminder))
			if err != nil {
				return err
			}
			return r.AppendEvent(ctx, schedEnv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, name := range cancelJobs {
		s.cancelJob(ctx, name)
	}
	if newReminder != nil {
		s.scheduleJob(ctx, newReminder)
	}

	return task, nil
}

// SetCompletion toggles a task between completed and pending. Completing a
// task publishes task.completed.v1; repeating the call on an already
// completed task is a no-op and publishes nothing, so recurrence is only
// triggered once per completion.
func (s *Service) SetCompletion(ctx context.Context, userID, taskID string, completed bool) (*domain.Task, error) {
	target := domain.TaskStatusPending
	if completed {
		target = domain.TaskStatusCompleted
	}

	var task *domain.Task
	err := s.repo.Atomic(ctx, func(r Repository) error {
		var err error
		task, err = r.FindTaskByID(ctx, userID, taskID)
		if err != nil {
			return err
		}
		if task.Status == target {
			return nil
		}

		task.Status = target
		task.UpdatedAt = time.Now().UTC()
		if err := r.UpdateTask(ctx, task); err != nil {
			return err
		}

		if target != domain.TaskStatusCompleted {
			return nil
		}

		data := event.TaskCompletedData{
			TaskID:            task.ID,
			UserID:            userID,
			HadRecurrenceRule: task.RecurrenceRuleID != nil,
			DueDate:           formatDate(task.DueDate),
		}
		if task.RecurrenceRuleID != nil {
			data.RecurrenceRuleID = *task.RecurrenceRuleID
		}
		env, err := event.New(event.TypeTaskCompleted, Source, data)
		if err != nil {
			return err
		}
		return r.AppendEvent(ctx, env)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask soft-deletes a task and publishes task.deleted.v1. Pending
// reminders are marked failed and their scheduler jobs cancelled so nothing
// fires for a task that no longer exists.
func (s *Service) DeleteTask(ctx context.Context, userID, taskID string) error {
	var cancelJobs []string
	err := s.repo.Atomic(ctx, func(r Repository) error {
		task, err := r.FindTaskByID(ctx, userID, taskID)
		if err != nil {
			return err
		}

		pending, err := r.FindPendingRemindersByTask(ctx, task.ID)
		if err != nil {
			return err
		}
		for _, rem := range pending {
			if err := r.SetReminderStatus(ctx, rem.ID, domain.ReminderStatusFailed, nil); err != nil {
				return err
			}
			cancelJobs = append(cancelJobs, rem.JobName)
		}

		task.Status = domain.TaskStatusDeleted
		task.UpdatedAt = time.Now().UTC()
		if err := r.UpdateTask(ctx, task); err != nil {
			return err
		}

		env, err := event.New(event.TypeTaskDeleted, Source, event.TaskDeletedData{
			TaskID: task.ID,
			UserID: userID,
		})
		if err != nil {
			return err
		}
		return r.AppendEvent(ctx, env)
	})
	if err != nil {
		return err
	}

	for _, name := range cancelJobs {
		s.cancelJob(ctx, name)
	}
	return nil
}

// GetTask retrieves a task owned by the user.
func (s *Service) GetTask(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	return s.repo.FindTaskByID(ctx, userID, taskID)
}

// ListTasks retrieves the user's tasks filtered by status, newest update
// first, with unfiltered counts.
func (s *Service) ListTasks(ctx context.Context, userID string, filter domain.StatusFilter) ([]*domain.Task, domain.TaskCounts, error) {
	return s.repo.ListTasks(ctx, userID, filter)
}

func (s *Service) scheduleJob(ctx context.Context, reminder *domain.Reminder) {
	err := s.jobs.Schedule(ctx, reminder.JobName, reminder.TriggerTime, scheduler.JobPayload{
		ReminderID: reminder.ID,
		TaskID:     reminder.TaskID,
		UserID:     reminder.UserID,
	})
	if err != nil {
		s.log.WarnContext(ctx, "failed to schedule reminder job",
			"job_name", reminder.JobName, "error", err)
	}
}

func (s *Service) cancelJob(ctx context.Context, name string) {
	if err := s.jobs.Cancel(ctx, name); err != nil {
		s.log.WarnContext(ctx, "failed to cancel reminder job",
			"job_name", name, "error", err)
	}
}

func buildRule(taskID string, in RecurrenceInput, baseDueDate *time.Time, now time.Time) (*domain.RecurrenceRule, error) {
	frequency, err := domain.NewFrequency(in.Frequency)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateEndAfterCount(in.EndAfterCount); err != nil {
		return nil, err
	}

	var endBy *time.Time
	if in.EndByDate != "" {
		d, err := domain.ParseDueDate(in.EndByDate)
		if err != nil {
			return nil, err
		}
		endBy = &d
	}

	id, err := newID()
	if err != nil {
		return nil, err
	}

	return &domain.RecurrenceRule{
		ID:            id,
		TaskID:        taskID,
		Frequency:     frequency,
		EndAfterCount: in.EndAfterCount,
		EndByDate:     endBy,
		IsActive:      true,
		BaseDueDate:   baseDueDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func buildReminder(taskID, userID string, trigger, now time.Time) (*domain.Reminder, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	return &domain.Reminder{
		ID:          id,
		TaskID:      taskID,
		UserID:      userID,
		TriggerTime: trigger,
		Status:      domain.ReminderStatusPending,
		JobName:     domain.ReminderJobName(id),
		CreatedAt:   now,
	}, nil
}

func taskCreatedPayload(task *domain.Task, rule *domain.RecurrenceRule) event.TaskCreatedData {
	data := event.TaskCreatedData{
		TaskID:      task.ID,
		UserID:      task.UserID,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     formatDate(task.DueDate),
		Priority:    string(task.Priority),
		Tags:        task.Tags,
	}
	if task.ReminderTime != nil {
		data.ReminderTime = task.ReminderTime.UTC().Format(time.RFC3339)
	}
	if rule != nil {
		data.Recurrence = &event.RecurrenceDetail{
			RuleID:        rule.ID,
			Frequency:     string(rule.Frequency),
			EndAfterCount: rule.EndAfterCount,
			EndByDate:     formatDate(rule.EndByDate),
		}
	}
	return data
}

func reminderScheduledPayload(reminder *domain.Reminder) event.ReminderScheduledData {
	return event.ReminderScheduledData{
		ReminderID:  reminder.ID,
		TaskID:      reminder.TaskID,
		UserID:      reminder.UserID,
		TriggerTime: reminder.TriggerTime.UTC().Format(time.RFC3339),
	}
}

func parseTriggerTime(s string, now time.Time) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, domain.ErrInvalidTriggerTime
	}
	t = t.UTC()
	if !t.After(now) {
		return time.Time{}, domain.ErrInvalidTriggerTime
	}
	return t, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(domain.DueDateLayout)
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	return id.String(), nil
}
