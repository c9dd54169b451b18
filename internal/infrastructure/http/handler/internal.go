package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/taskflow/internal/application/command"
	"github.com/rezkam/taskflow/internal/domain"
	"github.com/rezkam/taskflow/internal/infrastructure/http/response"
)

// Internal invocation endpoints. The request shapes mirror the invocation
// package's client DTOs; the owner arrives in the query string or body
// because these routes sit outside the token-protected subtree.

// InternalGetRule handles GET /internal/recurrence-rules/{rule_id}?user_id=.
func (h *CommandHandler) InternalGetRule(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		response.ValidationError(w, "user_id", "required parameter missing")
		return
	}

	rule, err := h.svc.GetRule(r.Context(), userID, chi.URLParam(r, "rule_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, MapRuleToDTO(rule))
}

type internalPatchRuleRequest struct {
	UserID               string  `json:"user_id"`
	OccurrencesGenerated *int    `json:"occurrences_generated"`
	BaseDueDate          *string `json:"base_due_date"`
	IsActive             *bool   `json:"is_active"`
}

// InternalPatchRule handles PATCH /internal/recurrence-rules/{rule_id}. This
// is how the recurring service advances a rule after spawning the next
// occurrence, and how it deactivates exhausted rules.
func (h *CommandHandler) InternalPatchRule(w http.ResponseWriter, r *http.Request) {
	var req internalPatchRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON")
		return
	}
	if req.UserID == "" {
		response.ValidationError(w, "user_id", "required field missing")
		return
	}

	patch := domain.RulePatch{
		OccurrencesGenerated: req.OccurrencesGenerated,
		IsActive:             req.IsActive,
	}
	if req.BaseDueDate != nil && *req.BaseDueDate != "" {
		d, err := domain.ParseDueDate(*req.BaseDueDate)
		if err != nil {
			response.FromDomainError(w, r, err)
			return
		}
		patch.BaseDueDate = &d
	}

	rule, err := h.svc.PatchRule(r.Context(), req.UserID, chi.URLParam(r, "rule_id"), patch)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, MapRuleToDTO(rule))
}

// InternalGetTask handles GET /internal/tasks/{task_id}?user_id=.
func (h *CommandHandler) InternalGetTask(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		response.ValidationError(w, "user_id", "required parameter missing")
		return
	}

	task, err := h.svc.GetTask(r.Context(), userID, chi.URLParam(r, "task_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, MapTaskToDTO(task))
}

type internalCreateTaskRequest struct {
	UserID           string `json:"user_id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	DueDate          string `json:"due_date"`
	DueTime          string `json:"due_time"`
	RecurrenceRuleID string `json:"recurrence_rule_id"`
}

// InternalCreateTask handles POST /internal/tasks. The recurring service
// uses it to create the next occurrence; the new task references the source
// task's existing rule instead of creating one. Validation is the same as
// the public create endpoint.
func (h *CommandHandler) InternalCreateTask(w http.ResponseWriter, r *http.Request) {
	var req internalCreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON")
		return
	}
	if req.UserID == "" {
		response.ValidationError(w, "user_id", "required field missing")
		return
	}

	task, err := h.svc.CreateTask(r.Context(), req.UserID, command.CreateTaskInput{
		Title:            req.Title,
		Description:      req.Description,
		DueDate:          req.DueDate,
		DueTime:          req.DueTime,
		RecurrenceRuleID: req.RecurrenceRuleID,
	})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.Created(w, MapTaskToDTO(task))
}
