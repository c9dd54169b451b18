package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/taskflow/internal/application/command"
	"github.com/rezkam/taskflow/internal/domain"
	mw "github.com/rezkam/taskflow/internal/infrastructure/http/middleware"
	"github.com/rezkam/taskflow/internal/infrastructure/http/response"
)

// recurrenceRequest describes a rule to attach to a task.
type recurrenceRequest struct {
	Frequency     string `json:"frequency"`
	EndAfterCount *int   `json:"end_after_count"`
	EndByDate     string `json:"end_by_date"`
}

func (r *recurrenceRequest) toInput() *command.RecurrenceInput {
	if r == nil {
		return nil
	}
	return &command.RecurrenceInput{
		Frequency:     r.Frequency,
		EndAfterCount: r.EndAfterCount,
		EndByDate:     r.EndByDate,
	}
}

type createTaskRequest struct {
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	DueDate      string             `json:"due_date"`
	DueTime      string             `json:"due_time"`
	Priority     string             `json:"priority"`
	Tags         string             `json:"tags"`
	ReminderTime string             `json:"reminder_time"`
	Recurrence   *recurrenceRequest `json:"recurrence"`
}

// CreateTask handles POST /api/tasks.
func (h *CommandHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON")
		return
	}

	userID := mw.UserID(r.Context())
	task, err := h.svc.CreateTask(r.Context(), userID, command.CreateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		DueDate:      req.DueDate,
		DueTime:      req.DueTime,
		Priority:     req.Priority,
		Tags:         req.Tags,
		ReminderTime: req.ReminderTime,
		Recurrence:   req.Recurrence.toInput(),
	})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "task created via HTTP", "task_id", task.ID)
	response.Created(w, MapTaskToDTO(task))
}

// listTasksResponse wraps a task listing with its status counts.
type listTasksResponse struct {
	Tasks  []TaskDTO         `json:"tasks"`
	Counts domain.TaskCounts `json:"counts"`
}

// ListTasks handles GET /api/tasks?status=all|pending|completed.
func (h *CommandHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := domain.NewStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	tasks, counts, err := h.svc.ListTasks(r.Context(), mw.UserID(r.Context()), filter)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, listTasksResponse{
		Tasks:  MapTasksToDTO(tasks),
		Counts: counts,
	})
}

type updateTaskRequest struct {
	Title        string             `json:"title"`
	Description  *string            `json:"description"`
	Priority     *string            `json:"priority"`
	Tags         *string            `json:"tags"`
	DueDate      *string            `json:"due_date"`
	DueTime      *string            `json:"due_time"`
	ReminderTime *string            `json:"reminder_time"`
	Recurrence   *recurrenceRequest `json:"recurrence"`
}

// UpdateTask handles PUT /api/tasks/{task_id}. Absent fields are left
// untouched; fields set to the empty string are cleared.
func (h *CommandHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON")
		return
	}

	taskID := chi.URLParam(r, "task_id")
	task, err := h.svc.UpdateTask(r.Context(), mw.UserID(r.Context()), taskID, command.UpdateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		Priority:     req.Priority,
		Tags:         req.Tags,
		DueDate:      req.DueDate,
		DueTime:      req.DueTime,
		ReminderTime: req.ReminderTime,
		Recurrence:   req.Recurrence.toInput(),
	})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, MapTaskToDTO(task))
}

type setCompletionRequest struct {
	Completed bool `json:"completed"`
}

// SetCompletion handles PATCH /api/tasks/{task_id}/complete.
func (h *CommandHandler) SetCompletion(w http.ResponseWriter, r *http.Request) {
	var req setCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON")
		return
	}

	taskID := chi.URLParam(r, "task_id")
	task, err := h.svc.SetCompletion(r.Context(), mw.UserID(r.Context()), taskID, req.Completed)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, MapTaskToDTO(task))
}

// DeleteTask handles DELETE /api/tasks/{task_id}.
func (h *CommandHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	if err := h.svc.DeleteTask(r.Context(), mw.UserID(r.Context()), taskID); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "task deleted via HTTP", "task_id", taskID)
	response.NoContent(w)
}
