package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/taskflow/internal/application/notification"
	"github.com/rezkam/taskflow/internal/infrastructure/http/response"
	"github.com/rezkam/taskflow/internal/infrastructure/scheduler"
)

// NotificationHandler serves the scheduler's job callback on the
// notification service.
type NotificationHandler struct {
	svc *notification.Service
}

// NewNotificationHandler creates a new scheduler callback handler.
func NewNotificationHandler(svc *notification.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// Routes returns the callback subtree. The scheduler delivers fired jobs
// with either POST or PUT depending on its version.
func (h *NotificationHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/job/{name}", h.JobFired)
	r.Put("/job/{name}", h.JobFired)
	return r
}

// JobFired handles the scheduler callback for a fired reminder job. A non-2xx
// response makes the scheduler redeliver, so only processing failures return
// one; malformed callbacks are a 400 and will never succeed on retry.
func (h *NotificationHandler) JobFired(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.BadRequest(w, "failed to read body")
		return
	}

	payload, err := scheduler.DecodeCallback(body)
	if err != nil {
		slog.WarnContext(r.Context(), "malformed scheduler callback",
			"job_name", name,
			"error", err)
		response.BadRequest(w, "malformed callback payload")
		return
	}

	slog.InfoContext(r.Context(), "reminder job fired",
		"job_name", name,
		"reminder_id", payload.ReminderID,
		"task_id", payload.TaskID)

	if err := h.svc.HandleJobFired(r.Context(), payload); err != nil {
		response.InternalError(w, r, err)
		return
	}

	response.OK(w, map[string]string{"status": "ok"})
}
