package handler

import (
	"time"

	"github.com/rezkam/taskflow/internal/domain"
)

// TaskDTO is the wire representation of a task. The internal invocation
// client decodes the same field names.
type TaskDTO struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Status           string    `json:"status"`
	Priority         string    `json:"priority"`
	Tags             string    `json:"tags,omitempty"`
	DueDate          string    `json:"due_date,omitempty"`
	DueTime          string    `json:"due_time,omitempty"`
	ReminderTime     string    `json:"reminder_time,omitempty"`
	RecurrenceRuleID string    `json:"recurrence_rule_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RuleDTO is the wire representation of a recurrence rule.
type RuleDTO struct {
	ID                   string    `json:"id"`
	TaskID               string    `json:"task_id"`
	Frequency            string    `json:"frequency"`
	EndAfterCount        *int      `json:"end_after_count,omitempty"`
	EndByDate            string    `json:"end_by_date,omitempty"`
	OccurrencesGenerated int       `json:"occurrences_generated"`
	IsActive             bool      `json:"is_active"`
	BaseDueDate          string    `json:"base_due_date,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// MapTaskToDTO converts a domain task to its wire representation.
func MapTaskToDTO(t *domain.Task) TaskDTO {
	dto := TaskDTO{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		Tags:        t.Tags,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.DueDate != nil {
		dto.DueDate = t.DueDate.Format(time.DateOnly)
	}
	if t.DueTime != nil {
		dto.DueTime = *t.DueTime
	}
	if t.ReminderTime != nil {
		dto.ReminderTime = t.ReminderTime.UTC().Format(time.RFC3339)
	}
	if t.RecurrenceRuleID != nil {
		dto.RecurrenceRuleID = *t.RecurrenceRuleID
	}
	return dto
}

// MapRuleToDTO converts a domain recurrence rule to its wire representation.
func MapRuleToDTO(r *domain.RecurrenceRule) RuleDTO {
	dto := RuleDTO{
		ID:                   r.ID,
		TaskID:               r.TaskID,
		Frequency:            string(r.Frequency),
		EndAfterCount:        r.EndAfterCount,
		OccurrencesGenerated: r.OccurrencesGenerated,
		IsActive:             r.IsActive,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
	if r.EndByDate != nil {
		dto.EndByDate = r.EndByDate.Format(time.DateOnly)
	}
	if r.BaseDueDate != nil {
		dto.BaseDueDate = r.BaseDueDate.Format(time.DateOnly)
	}
	return dto
}

// MapTasksToDTO converts a task slice, preserving order.
func MapTasksToDTO(tasks []*domain.Task) []TaskDTO {
	out := make([]TaskDTO, len(tasks))
	for i, t := range tasks {
		out[i] = MapTaskToDTO(t)
	}
	return out
}
