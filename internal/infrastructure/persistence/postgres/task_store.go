package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rezkam/taskflow/internal/application/command"
	"github.com/rezkam/taskflow/internal/application/outbox"
	"github.com/rezkam/taskflow/internal/domain"
)

// querier is the common surface of *pgxpool.Pool and pgx.Tx, so repository
// methods run identically inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TaskStore is the PostgreSQL implementation of the command service's
// storage: tasks, recurrence rules, reminders, and the event outbox.
type TaskStore struct {
	pool *pgxpool.Pool
	db   querier
}

// Compile-time verification of the repository contracts.
var (
	_ command.Repository = (*TaskStore)(nil)
	_ outbox.Repository  = (*TaskStore)(nil)
)

// NewTaskStore opens the task database, running migrations first.
func NewTaskStore(ctx context.Context, cfg DBConfig) (*TaskStore, error) {
	pool, err := newPool(ctx, cfg, taskMigrations)
	if err != nil {
		return nil, err
	}
	return &TaskStore{pool: pool, db: pool}, nil
}

// Close closes the connection pool.
func (s *TaskStore) Close() error {
	s.pool.Close()
	return nil
}

// Atomic executes fn within one transaction, with panic rollback.
func (s *TaskStore) Atomic(ctx context.Context, fn func(command.Repository) error) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			slog.ErrorContext(ctx, "transaction panic, rolling back", "panic", p)
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				slog.ErrorContext(ctx, "rollback after panic failed",
					"panic", p, "rollback_error", rbErr)
			}
			panic(p)
		}
		finalizeTx(ctx, tx, &err)
	}()

	err = fn(&TaskStore{pool: s.pool, db: tx})
	return
}

// === Tasks ===

const taskColumns = `id, user_id, title, description, status, priority, tags,
	due_date, due_time, reminder_time, recurrence_rule_id, created_at, updated_at`

func (s *TaskStore) CreateTask(ctx context.Context, task *domain.Task) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		task.ID, task.UserID, task.Title, task.Description, string(task.Status),
		string(task.Priority), task.Tags, task.DueDate, task.DueTime,
		task.ReminderTime, task.RecurrenceRuleID, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (s *TaskStore) FindTaskByID(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	if !validUUID(taskID) {
		return nil, domain.ErrTaskNotFound
	}

	row := s.db.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1 AND user_id = $2 AND status <> 'deleted'`,
		taskID, userID,
	)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}
	return task, nil
}

func (s *TaskStore) ListTasks(ctx context.Context, userID string, filter domain.StatusFilter) ([]*domain.Task, domain.TaskCounts, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1 AND status <> 'deleted'`
	args := []any{userID}
	switch filter {
	case domain.StatusFilterPending:
		query += ` AND status = 'pending'`
	case domain.StatusFilterCompleted:
		query += ` AND status = 'completed'`
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.TaskCounts{}, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, domain.TaskCounts{}, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.TaskCounts{}, fmt.Errorf("failed to read tasks: %w", err)
	}

	counts, err := s.taskCounts(ctx, userID)
	if err != nil {
		return nil, domain.TaskCounts{}, err
	}
	return tasks, counts, nil
}

func (s *TaskStore) taskCounts(ctx context.Context, userID string) (domain.TaskCounts, error) {
	rows, err := s.db.Query(ctx, `
		SELECT status, COUNT(*)
		FROM tasks
		WHERE user_id = $1 AND status <> 'deleted'
		GROUP BY status`,
		userID,
	)
	if err != nil {
		return domain.TaskCounts{}, fmt.Errorf("failed to count tasks: %w", err)
	}
	defer rows.Close()

	var counts domain.TaskCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return domain.TaskCounts{}, fmt.Errorf("failed to scan task counts: %w", err)
		}
		counts.Total += n
		if status == string(domain.TaskStatusCompleted) {
			counts.Completed += n
		} else {
			counts.Pending += n
		}
	}
	if err := rows.Err(); err != nil {
		return domain.TaskCounts{}, fmt.Errorf("failed to read task counts: %w", err)
	}
	return counts, nil
}

func (s *TaskStore) UpdateTask(ctx context.Context, task *domain.Task) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE tasks
		SET title = $3, description = $4, status = $5, priority = $6, tags = $7,
			due_date = $8, due_time = $9, reminder_time = $10,
			recurrence_rule_id = $11, updated_at = $12
		WHERE id = $1 AND user_id = $2`,
		task.ID, task.UserID, task.Title, task.Description, string(task.Status),
		string(task.Priority), task.Tags, task.DueDate, task.DueTime,
		task.ReminderTime, task.RecurrenceRuleID, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// === Recurrence rules ===

const ruleColumns = `id, task_id, frequency, end_after_count, end_by_date,
	occurrences_generated, is_active, base_due_date, created_at, updated_at`

func (s *TaskStore) CreateRule(ctx context.Context, rule *domain.RecurrenceRule) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO recurrence_rules (`+ruleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rule.ID, rule.TaskID, string(rule.Frequency), rule.EndAfterCount,
		rule.EndByDate, rule.OccurrencesGenerated, rule.IsActive,
		rule.BaseDueDate, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert recurrence rule: %w", err)
	}
	return nil
}

func (s *TaskStore) FindRuleByID(ctx context.Context, userID, ruleID string) (*domain.RecurrenceRule, error) {
	if !validUUID(ruleID) {
		return nil, domain.ErrRuleNotFound
	}

	row := s.db.QueryRow(ctx, `
		SELECT r.id, r.task_id, r.frequency, r.end_after_count, r.end_by_date,
			r.occurrences_generated, r.is_active, r.base_due_date,
			r.created_at, r.updated_at
		FROM recurrence_rules r
		JOIN tasks t ON t.id = r.task_id
		WHERE r.id = $1 AND t.user_id = $2`,
		ruleID, userID,
	)
	rule, err := scanRule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query recurrence rule: %w", err)
	}
	return rule, nil
}

func (s *TaskStore) UpdateRule(ctx context.Context, rule *domain.RecurrenceRule) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE recurrence_rules
		SET frequency = $2, end_after_count = $3, end_by_date = $4,
			occurrences_generated = $5, is_active = $6, base_due_date = $7,
			updated_at = $8
		WHERE id = $1`,
		rule.ID, string(rule.Frequency), rule.EndAfterCount, rule.EndByDate,
		rule.OccurrencesGenerated, rule.IsActive, rule.BaseDueDate, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update recurrence rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

func (s *TaskStore) DeleteRule(ctx context.Context, userID, ruleID string) error {
	if !validUUID(ruleID) {
		return domain.ErrRuleNotFound
	}

	tag, err := s.db.Exec(ctx, `
		DELETE FROM recurrence_rules r
		USING tasks t
		WHERE t.id = r.task_id AND r.id = $1 AND t.user_id = $2`,
		ruleID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete recurrence rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

// === Reminders ===

func (s *TaskStore) CreateReminder(ctx context.Context, reminder *domain.Reminder) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO reminders (id, task_id, user_id, trigger_time, status, job_name, delivered_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		reminder.ID, reminder.TaskID, reminder.UserID, reminder.TriggerTime,
		string(reminder.Status), reminder.JobName, reminder.DeliveredAt, reminder.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reminder: %w", err)
	}
	return nil
}

func (s *TaskStore) FindPendingRemindersByTask(ctx context.Context, taskID string) ([]*domain.Reminder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, task_id, user_id, trigger_time, status, job_name, delivered_at, created_at
		FROM reminders
		WHERE task_id = $1 AND status = 'pending'
		ORDER BY created_at`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*domain.Reminder
	for rows.Next() {
		var r domain.Reminder
		var status string
		if err := rows.Scan(&r.ID, &r.TaskID, &r.UserID, &r.TriggerTime, &status,
			&r.JobName, &r.DeliveredAt, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		r.Status = domain.ReminderStatus(status)
		reminders = append(reminders, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reminders: %w", err)
	}
	return reminders, nil
}

func (s *TaskStore) SetReminderStatus(ctx context.Context, reminderID string, status domain.ReminderStatus, deliveredAt *time.Time) error {
	if !validUUID(reminderID) {
		return domain.ErrReminderNotFound
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE reminders
		SET status = $2, delivered_at = $3
		WHERE id = $1`,
		reminderID, string(status), deliveredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update reminder status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReminderNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	var status, priority string
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &status,
		&priority, &t.Tags, &t.DueDate, &t.DueTime, &t.ReminderTime,
		&t.RecurrenceRuleID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	t.Priority = domain.Priority(priority)
	return &t, nil
}

func scanRule(row pgx.Row) (*domain.RecurrenceRule, error) {
	var r domain.RecurrenceRule
	var frequency string
	err := row.Scan(&r.ID, &r.TaskID, &frequency, &r.EndAfterCount, &r.EndByDate,
		&r.OccurrencesGenerated, &r.IsActive, &r.BaseDueDate, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Frequency = domain.Frequency(frequency)
	return &r, nil
}

// validUUID guards lookups with caller-supplied ids: a malformed id means
// the resource cannot exist, which reads the same as not-found.
func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
