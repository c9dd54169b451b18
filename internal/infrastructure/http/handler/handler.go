// Package handler adapts HTTP requests to application service calls. Each
// service binary mounts the routes it serves; request and response DTOs
// live here, separate from the domain types.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/taskflow/internal/application/command"
)

// CommandHandler serves the command service's HTTP surface: the
// JWT-protected task and recurrence-rule API plus the internal invocation
// endpoints used by the recurring-task service.
type CommandHandler struct {
	svc *command.Service
}

// NewCommandHandler creates a new command API handler.
func NewCommandHandler(svc *command.Service) *CommandHandler {
	return &CommandHandler{svc: svc}
}

// Routes returns the authenticated API subtree. The caller mounts it under
// /api behind the auth middleware.
func (h *CommandHandler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", h.CreateTask)
		r.Get("/", h.ListTasks)
		r.Put("/{task_id}", h.UpdateTask)
		r.Patch("/{task_id}/complete", h.SetCompletion)
		r.Delete("/{task_id}", h.DeleteTask)
	})

	r.Route("/recurrence-rules", func(r chi.Router) {
		r.Post("/", h.CreateRule)
		r.Get("/{rule_id}", h.GetRule)
		r.Patch("/{rule_id}", h.PatchRule)
		r.Delete("/{rule_id}", h.DeleteRule)
	})

	return r
}

// InternalRoutes returns the service-to-service subtree reached over the
// sidecar invocation channel. It is mounted outside the authenticated /api
// subtree; the owner comes from the request instead of a token.
func (h *CommandHandler) InternalRoutes() http.Handler {
	r := chi.NewRouter()

	r.Get("/recurrence-rules/{rule_id}", h.InternalGetRule)
	r.Patch("/recurrence-rules/{rule_id}", h.InternalPatchRule)
	r.Get("/tasks/{task_id}", h.InternalGetTask)
	r.Post("/tasks", h.InternalCreateTask)

	return r
}
