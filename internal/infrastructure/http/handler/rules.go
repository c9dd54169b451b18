package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/taskflow/internal/application/command"
	"github.com/rezkam/taskflow/internal/domain"
	mw "github.com/rezkam/taskflow/internal/infrastructure/http/middleware"
	"github.com/rezkam/taskflow/internal/infrastructure/http/response"
)

type createRuleRequest struct {
	TaskID        string `json:"task_id"`
	Frequency     string `json:"frequency"`
	EndAfterCount *int   `json:"end_after_count"`
	EndByDate     string `json:"end_by_date"`
}

// CreateRule handles POST /api/recurrence-rules. The target task must be
// owned by the caller and not already carry a rule.
func (h *CommandHandler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON")
		return
	}
	if req.TaskID == "" {
		response.ValidationError(w, "task_id", "required field missing")
		return
	}

	rule, err := h.svc.CreateRule(r.Context(), mw.UserID(r.Context()), req.TaskID, command.RecurrenceInput{
		Frequency:     req.Frequency,
		EndAfterCount: req.EndAfterCount,
		EndByDate:     req.EndByDate,
	})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.Created(w, MapRuleToDTO(rule))
}

// GetRule handles GET /api/recurrence-rules/{rule_id}.
func (h *CommandHandler) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.svc.GetRule(r.Context(), mw.UserID(r.Context()), chi.URLParam(r, "rule_id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, MapRuleToDTO(rule))
}

type patchRuleRequest struct {
	Frequency     *string `json:"frequency"`
	EndAfterCount *int    `json:"end_after_count"`
	EndByDate     *string `json:"end_by_date"`
	IsActive      *bool   `json:"is_active"`
}

// PatchRule handles PATCH /api/recurrence-rules/{rule_id}. Absent fields
// are left untouched.
func (h *CommandHandler) PatchRule(w http.ResponseWriter, r *http.Request) {
	var req patchRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON")
		return
	}

	patch := domain.RulePatch{
		EndAfterCount: req.EndAfterCount,
		IsActive:      req.IsActive,
	}
	if req.Frequency != nil {
		f, err := domain.NewFrequency(*req.Frequency)
		if err != nil {
			response.FromDomainError(w, r, err)
			return
		}
		patch.Frequency = &f
	}
	if req.EndByDate != nil {
		d, err := domain.ParseDueDate(*req.EndByDate)
		if err != nil {
			response.FromDomainError(w, r, err)
			return
		}
		patch.EndByDate = &d
	}

	rule, err := h.svc.PatchRule(r.Context(), mw.UserID(r.Context()), chi.URLParam(r, "rule_id"), patch)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, MapRuleToDTO(rule))
}

// DeleteRule handles DELETE /api/recurrence-rules/{rule_id}.
func (h *CommandHandler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteRule(r.Context(), mw.UserID(r.Context()), chi.URLParam(r, "rule_id")); err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.NoContent(w)
}
