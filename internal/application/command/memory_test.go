package command

import (
	"context"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/rezkam/taskflow/internal/domain"
	"github.com/rezkam/taskflow/internal/event"
	"github.com/rezkam/taskflow/internal/infrastructure/scheduler"
)

// memoryRepo is an in-memory Repository with snapshot rollback, good enough
// to exercise the service's transactional composition.
type memoryRepo struct {
	tasks     map[string]domain.Task
	rules     map[string]domain.RecurrenceRule
	reminders map[string]domain.Reminder
	outbox    []event.Envelope
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		tasks:     map[string]domain.Task{},
		rules:     map[string]domain.RecurrenceRule{},
		reminders: map[string]domain.Reminder{},
	}
}

func (m *memoryRepo) Atomic(_ context.Context, fn func(Repository) error) error {
	tasks := maps.Clone(m.tasks)
	rules := maps.Clone(m.rules)
	reminders := maps.Clone(m.reminders)
	outbox := slices.Clone(m.outbox)

	if err := fn(m); err != nil {
		m.tasks, m.rules, m.reminders, m.outbox = tasks, rules, reminders, outbox
		return err
	}
	return nil
}

func (m *memoryRepo) CreateTask(_ context.Context, task *domain.Task) error {
	m.tasks[task.ID] = *task
	return nil
}

func (m *memoryRepo) FindTaskByID(_ context.Context, userID, taskID string) (*domain.Task, error) {
	task, ok := m.tasks[taskID]
	if !ok || task.UserID != userID || task.Status == domain.TaskStatusDeleted {
		return nil, domain.ErrTaskNotFound
	}
	copied := task
	return &copied, nil
}

func (m *memoryRepo) ListTasks(_ context.Context, userID string, filter domain.StatusFilter) ([]*domain.Task, domain.TaskCounts, error) {
	var tasks []*domain.Task
	var counts domain.TaskCounts
	for _, task := range m.tasks {
		if task.UserID != userID || task.Status == domain.TaskStatusDeleted {
			continue
		}
		counts.Total++
		if task.Status == domain.TaskStatusCompleted {
			counts.Completed++
		} else {
			counts.Pending++
		}
		switch filter {
		case domain.StatusFilterPending:
			if task.Status != domain.TaskStatusPending {
				continue
			}
		case domain.StatusFilterCompleted:
			if task.Status != domain.TaskStatusCompleted {
				continue
			}
		}
		copied := task
		tasks = append(tasks, &copied)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].UpdatedAt.After(tasks[j].UpdatedAt) })
	return tasks, counts, nil
}

func (m *memoryRepo) UpdateTask(_ context.Context, task *domain.Task) error {
	existing, ok := m.tasks[task.ID]
	if !ok || existing.UserID != task.UserID {
		return domain.ErrTaskNotFound
	}
	m.tasks[task.ID] = *task
	return nil
}

func (m *memoryRepo) CreateRule(_ context.Context, rule *domain.RecurrenceRule) error {
	m.rules[rule.ID] = *rule
	return nil
}

func (m *memoryRepo) FindRuleByID(_ context.Context, userID, ruleID string) (*domain.RecurrenceRule, error) {
	rule, ok := m.rules[ruleID]
	if !ok {
		return nil, domain.ErrRuleNotFound
	}
	owner, ok := m.tasks[rule.TaskID]
	if !ok || owner.UserID != userID {
		return nil, domain.ErrRuleNotFound
	}
	copied := rule
	return &copied, nil
}

func (m *memoryRepo) UpdateRule(_ context.Context, rule *domain.RecurrenceRule) error {
	if _, ok := m.rules[rule.ID]; !ok {
		return domain.ErrRuleNotFound
	}
	m.rules[rule.ID] = *rule
	return nil
}

func (m *memoryRepo) DeleteRule(ctx context.Context, userID, ruleID string) error {
	if _, err := m.FindRuleByID(ctx, userID, ruleID); err != nil {
		return err
	}
	delete(m.rules, ruleID)
	for id, task := range m.tasks {
		if task.RecurrenceRuleID != nil && *task.RecurrenceRuleID == ruleID {
			task.RecurrenceRuleID = nil
			m.tasks[id] = task
		}
	}
	return nil
}

func (m *memoryRepo) CreateReminder(_ context.Context, reminder *domain.Reminder) error {
	m.reminders[reminder.ID] = *reminder
	return nil
}

func (m *memoryRepo) FindPendingRemindersByTask(_ context.Context, taskID string) ([]*domain.Reminder, error) {
	var out []*domain.Reminder
	for _, rem := range m.reminders {
		if rem.TaskID == taskID && rem.Status == domain.ReminderStatusPending {
			copied := rem
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryRepo) SetReminderStatus(_ context.Context, reminderID string, status domain.ReminderStatus, deliveredAt *time.Time) error {
	rem, ok := m.reminders[reminderID]
	if !ok {
		return domain.ErrReminderNotFound
	}
	rem.Status = status
	rem.DeliveredAt = deliveredAt
	m.reminders[reminderID] = rem
	return nil
}

func (m *memoryRepo) AppendEvent(_ context.Context, env event.Envelope) error {
	m.outbox = append(m.outbox, env)
	return nil
}

func (m *memoryRepo) eventsOfType(eventType string) []event.Envelope {
	var out []event.Envelope
	for _, env := range m.outbox {
		if env.Type == eventType {
			out = append(out, env)
		}
	}
	return out
}

// fakeScheduler records job calls.
type fakeScheduler struct {
	scheduled []string
	cancelled []string
	payloads  map[string]scheduler.JobPayload
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{payloads: map[string]scheduler.JobPayload{}}
}

func (f *fakeScheduler) Schedule(_ context.Context, name string, _ time.Time, payload scheduler.JobPayload) error {
	f.scheduled = append(f.scheduled, name)
	f.payloads[name] = payload
	return nil
}

func (f *fakeScheduler) Cancel(_ context.Context, name string) error {
	f.cancelled = append(f.cancelled, name)
	return nil
}

// fakeProcessed is an in-memory idempotency ledger.
type fakeProcessed struct {
	seen map[string]bool
}

func newFakeProcessed() *fakeProcessed { return &fakeProcessed{seen: map[string]bool{}} }

func (f *fakeProcessed) IsDuplicate(_ context.Context, eventID string) (bool, error) {
	return f.seen[eventID], nil
}

func (f *fakeProcessed) MarkProcessed(_ context.Context, eventID string) error {
	f.seen[eventID] = true
	return nil
}
