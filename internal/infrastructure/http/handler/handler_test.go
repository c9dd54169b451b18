package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"net/http/httptest"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/taskflow/internal/application/command"
	"github.com/rezkam/taskflow/internal/domain"
	"github.com/rezkam/taskflow/internal/event"
	httpserver "github.com/rezkam/taskflow/internal/infrastructure/http"
	mw "github.com/rezkam/taskflow/internal/infrastructure/http/middleware"
	"github.com/rezkam/taskflow/internal/infrastructure/scheduler"
	"github.com/rezkam/taskflow/pkg/jwt"
)

// memRepo is an in-memory command.Repository, enough to drive the handlers
// through the real service layer.
type memRepo struct {
	tasks     map[string]domain.Task
	rules     map[string]domain.RecurrenceRule
	reminders map[string]domain.Reminder
	outbox    []event.Envelope
}

func newMemRepo() *memRepo {
	return &memRepo{
		tasks:     map[string]domain.Task{},
		rules:     map[string]domain.RecurrenceRule{},
		reminders: map[string]domain.Reminder{},
	}
}

func (m *memRepo) Atomic(_ context.Context, fn func(command.Repository) error) error {
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

func (m *memRepo) CreateTask(_ context.Context, task *domain.Task) error {
	m.tasks[task.ID] = *task
	return nil
}

func (m *memRepo) FindTaskByID(_ context.Context, userID, taskID string) (*domain.Task, error) {
	task, ok := m.tasks[taskID]
	if !ok || task.UserID != userID || task.Status == domain.TaskStatusDeleted {
		return nil, domain.ErrTaskNotFound
	}
	copied := task
	return &copied, nil
}

func (m *memRepo) ListTasks(_ context.Context, userID string, filter domain.StatusFilter) ([]*domain.Task, domain.TaskCounts, error) {
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

func (m *memRepo) UpdateTask(_ context.Context, task *domain.Task) error {
	existing, ok := m.tasks[task.ID]
	if !ok || existing.UserID != task.UserID {
		return domain.ErrTaskNotFound
	}
	m.tasks[task.ID] = *task
	return nil
}

func (m *memRepo) CreateRule(_ context.Context, rule *domain.RecurrenceRule) error {
	m.rules[rule.ID] = *rule
	return nil
}

func (m *memRepo) FindRuleByID(_ context.Context, userID, ruleID string) (*domain.RecurrenceRule, error) {
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

func (m *memRepo) UpdateRule(_ context.Context, rule *domain.RecurrenceRule) error {
	if _, ok := m.rules[rule.ID]; !ok {
		return domain.ErrRuleNotFound
	}
	m.rules[rule.ID] = *rule
	return nil
}

func (m *memRepo) DeleteRule(ctx context.Context, userID, ruleID string) error {
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

func (m *memRepo) CreateReminder(_ context.Context, reminder *domain.Reminder) error {
	m.reminders[reminder.ID] = *reminder
	return nil
}

func (m *memRepo) FindPendingRemindersByTask(_ context.Context, taskID string) ([]*domain.Reminder, error) {
	var out []*domain.Reminder
	for _, rem := range m.reminders {
		if rem.TaskID == taskID && rem.Status == domain.ReminderStatusPending {
			copied := rem
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memRepo) SetReminderStatus(_ context.Context, reminderID string, status domain.ReminderStatus, deliveredAt *time.Time) error {
	rem, ok := m.reminders[reminderID]
	if !ok {
		return domain.ErrReminderNotFound
	}
	rem.Status = status
	rem.DeliveredAt = deliveredAt
	m.reminders[reminderID] = rem
	return nil
}

func (m *memRepo) AppendEvent(_ context.Context, env event.Envelope) error {
	m.outbox = append(m.outbox, env)
	return nil
}

// fakeJobs records scheduler calls.
type fakeJobs struct {
	scheduled []string
	cancelled []string
}

func (f *fakeJobs) Schedule(_ context.Context, name string, _ time.Time, _ scheduler.JobPayload) error {
	f.scheduled = append(f.scheduled, name)
	return nil
}

func (f *fakeJobs) Cancel(_ context.Context, name string) error {
	f.cancelled = append(f.cancelled, name)
	return nil
}

// fakeLedger is an in-memory idempotency ledger.
type fakeLedger struct {
	seen map[string]bool
}

func newFakeLedger() *fakeLedger { return &fakeLedger{seen: map[string]bool{}} }

func (f *fakeLedger) IsDuplicate(_ context.Context, eventID string) (bool, error) {
	return f.seen[eventID], nil
}

func (f *fakeLedger) MarkProcessed(_ context.Context, eventID string) error {
	f.seen[eventID] = true
	return nil
}

// commandFixture wires the command handlers behind the real server router,
// auth middleware included.
type commandFixture struct {
	handler http.Handler
	repo    *memRepo
	jobs    *fakeJobs
	svc     *command.Service
	tokens  *jwt.Manager
}

func newCommandFixture(t *testing.T, cfg httpserver.ServerConfig) *commandFixture {
	t.Helper()

	repo := newMemRepo()
	jobs := &fakeJobs{}
	svc := command.NewService(repo, jobs, newFakeLedger(), nil)
	h := NewCommandHandler(svc)
	tokens := jwt.NewManager("test-secret", time.Hour)

	cfg.ServiceName = "command-service"
	srv := httpserver.NewServer(cfg, func(r chi.Router) {
		r.Route("/api", func(r chi.Router) {
			r.Use(mw.NewAuth(tokens).Validate)
			r.Mount("/", h.Routes())
		})
		r.Mount("/internal", h.InternalRoutes())
	})

	return &commandFixture{
		handler: srv.Handler(),
		repo:    repo,
		jobs:    jobs,
		svc:     svc,
		tokens:  tokens,
	}
}

func (f *commandFixture) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := f.tokens.Mint(userID)
	require.NoError(t, err)
	return token
}

// do sends a JSON request through the full router and returns the recorder.
func (f *commandFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}
