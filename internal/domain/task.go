package domain

import "time"

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusDeleted   TaskStatus = "deleted"
)

// Priority is the task priority level carried on task.created events.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// NewPriority validates a priority. Empty input means medium.
func NewPriority(s string) (Priority, error) {
	if s == "" {
		return PriorityMedium, nil
	}
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), nil
	default:
		return "", ErrInvalidPriority
	}
}

// Task is a single todo item owned by one user. The owner never changes.
// Status moves pending->completed, pending->deleted, or completed->deleted;
// there is no way back to pending except an explicit un-complete, which is
// modelled as completed->pending by SetCompletion.
type Task struct {
	ID               string
	UserID           string
	Title            string
	Description      string
	Status           TaskStatus
	Priority         Priority
	Tags             string
	DueDate          *time.Time // date only, midnight UTC
	DueTime          *string    // "HH:MM", wall-clock hint alongside DueDate
	ReminderTime     *time.Time
	RecurrenceRuleID *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CanTransitionTo reports whether moving to the given status is a legal
// lifecycle transition.
func (t *Task) CanTransitionTo(next TaskStatus) bool {
	switch t.Status {
	case TaskStatusPending:
		return next == TaskStatusCompleted || next == TaskStatusDeleted || next == TaskStatusPending
	case TaskStatusCompleted:
		return next == TaskStatusDeleted || next == TaskStatusPending
	case TaskStatusDeleted:
		return false
	}
	return false
}

// TaskCounts summarizes a user's tasks for list responses.
type TaskCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
}

// StatusFilter narrows task listings.
type StatusFilter string

const (
	StatusFilterAll       StatusFilter = "all"
	StatusFilterPending   StatusFilter = "pending"
	StatusFilterCompleted StatusFilter = "completed"
)

// NewStatusFilter validates a listing filter. Empty input means "all".
func NewStatusFilter(s string) (StatusFilter, error) {
	if s == "" {
		return StatusFilterAll, nil
	}
	switch StatusFilter(s) {
	case StatusFilterAll, StatusFilterPending, StatusFilterCompleted:
		return StatusFilter(s), nil
	default:
		return "", ErrInvalidStatusFilter
	}
}
