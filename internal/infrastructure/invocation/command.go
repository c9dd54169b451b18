package invocation

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Wire DTOs for the command service's internal invocation surface. The
// command service's internal HTTP handlers serve these same shapes.

// Rule is a recurrence rule as served by the command service.
type Rule struct {
	ID                   string `json:"id"`
	TaskID               string `json:"task_id"`
	Frequency            string `json:"frequency"`
	EndAfterCount        *int   `json:"end_after_count,omitempty"`
	EndByDate            string `json:"end_by_date,omitempty"`
	OccurrencesGenerated int    `json:"occurrences_generated"`
	IsActive             bool   `json:"is_active"`
	BaseDueDate          string `json:"base_due_date,omitempty"`
}

// Task is a task as served by the command service.
type Task struct {
	ID               string `json:"id"`
	UserID           string `json:"user_id"`
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	Status           string `json:"status"`
	DueDate          string `json:"due_date,omitempty"`
	DueTime          string `json:"due_time,omitempty"`
	RecurrenceRuleID string `json:"recurrence_rule_id,omitempty"`
}

// RulePatchRequest carries the mutable rule fields. Nil fields are
// untouched.
type RulePatchRequest struct {
	UserID               string `json:"user_id"`
	OccurrencesGenerated *int   `json:"occurrences_generated,omitempty"`
	BaseDueDate          string `json:"base_due_date,omitempty"`
	IsActive             *bool  `json:"is_active,omitempty"`
}

// CreateTaskRequest creates a task on behalf of a user.
type CreateTaskRequest struct {
	UserID           string `json:"user_id"`
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	DueDate          string `json:"due_date,omitempty"`
	DueTime          string `json:"due_time,omitempty"`
	RecurrenceRuleID string `json:"recurrence_rule_id,omitempty"`
}

// CommandClient is the typed client for the command service's internal
// endpoints, used by the recurring-task service.
type CommandClient struct {
	client *Client
}

// NewCommandClient creates a command invocation client.
func NewCommandClient(baseURL, appID string) *CommandClient {
	return &CommandClient{client: NewClient(baseURL, appID)}
}

// GetRule fetches a recurrence rule scoped to its owner.
func (c *CommandClient) GetRule(ctx context.Context, ruleID, userID string) (*Rule, error) {
	var rule Rule
	path := fmt.Sprintf("internal/recurrence-rules/%s?user_id=%s", ruleID, url.QueryEscape(userID))
	if err := c.client.Do(ctx, http.MethodGet, path, nil, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// PatchRule applies a partial update to a recurrence rule.
func (c *CommandClient) PatchRule(ctx context.Context, ruleID string, patch RulePatchRequest) (*Rule, error) {
	var rule Rule
	path := "internal/recurrence-rules/" + ruleID
	if err := c.client.Do(ctx, http.MethodPatch, path, patch, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// GetTask fetches a task scoped to its owner.
func (c *CommandClient) GetTask(ctx context.Context, taskID, userID string) (*Task, error) {
	var task Task
	path := fmt.Sprintf("internal/tasks/%s?user_id=%s", taskID, url.QueryEscape(userID))
	if err := c.client.Do(ctx, http.MethodGet, path, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask creates a new task.
func (c *CommandClient) CreateTask(ctx context.Context, req CreateTaskRequest) (*Task, error) {
	var task Task
	if err := c.client.Do(ctx, http.MethodPost, "internal/tasks", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}
