package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/taskflow/internal/domain"
	httpserver "github.com/rezkam/taskflow/internal/infrastructure/http"
)

func TestCreateTaskEndpoint(t *testing.T) {
	f := newCommandFixture(t, httpserver.ServerConfig{})
	token := f.token(t, "u1")

	rec := f.do(t, http.MethodPost, "/api/tasks", token, map[string]any{
		"title":    "Water plants",
		"due_date": "2026-09-01",
		"priority": "high",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	task := decodeJSON[TaskDTO](t, rec)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "u1", task.UserID)
	assert.Equal(t, "Water plants", task.Title)
	assert.Equal(t, "pending", task.Status)
	assert.Equal(t, "high", task.Priority)
	assert.Equal(t, "2026-09-01", task.DueDate)
}

func TestCreateTaskValidationError(t *testing.T) {
	f := newCommandFixture(t, httpserver.ServerConfig{})
	token := f.token(t, "u1")

	rec := f.do(t, http.MethodPost, "/api/tasks", token, map[string]any{
		"title": "",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
	assert.Contains(t, rec.Body.String(), `"title"`)
	assert.Empty(t, f.repo.tasks)
}

func TestCreateTaskBadJSON(t *testing.T) {
	f := newCommandFixture(t, httpserver.ServerConfig{})
	token := f.token(t, "u1")

	// An empty body is not valid JSON either.
	rec := f.do(t, http.MethodPost, "/api/tasks", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_REQUEST")
}

func TestAuthRequired(t *testing.T) {
	f := newCommandFixture(t, httpserver.ServerConfig{})

	rec := f.do(t, http.MethodGet, "/api/tasks", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/tasks", "not-a-real-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestHealthEndpointUnauthenticated(t *testing.T) {
	f := newCommandFixture(t, httpserver.ServerConfig{})

	rec := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListTasksWithCounts(t *testing.T) {
	f := newCommandFixture(t, httpserver.ServerConfig{})
	token := f.token(t, "u1")

	first := decodeJSON[TaskDTO](t, f.do(t, http.MethodPost, "/api/tasks", token, map[string]any{"title": "one"}))
	decodeJSON[TaskDTO](t, f.do(t, http.MethodPost, "/api/tasks", token, map[string]any{"title": "two"}))

	rec := f.do(t, http.MethodPatch, "/api/tasks/"+first.ID+"/complete", token, map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/tasks", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeJSON[listTasksResponse](t, rec)
	assert.Len(t, list.Tasks, 2)
	assert.Equal(t, domain.TaskCounts{Total: 2, Pending: 1, Completed: 1}, list.Counts)

	rec = f.do(t, http.MethodGet, "/api/tasks?status=completed", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decodeJSON[listTasksResponse](t, rec)
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, first.ID, list.Tasks[0].ID)
	// Counts always describe the whole set, not the filtered page.
	assert.Equal(t, domain.TaskCounts{Total: 2, Pending: 1, Completed: 1}, list.Counts)
}

func TestListTasksRejectsUnknownFilter(t *testing.T) {
	f := newCommandFixture(t, httpserver.ServerConfig{})
	token := f.token(t, "u1")

	rec := f.do(t, http.MethodGet, "/api/tasks?status=archived", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestUpdateTaskEndpoint(t *testing.T) {
	f := newCommandFixture(t, httpserver.ServerConfig{})
	token := f.token(t, "u1")

	created := decodeJSON[TaskDTO](t, f.do(t, http.MethodPost, "/api/tasks", token, map[string]any{
		"title":       "old title",
		"description": "keep me",
	}))

	rec := f.do(t, http.MethodPut, "/api/tasks/"+created.ID, token, map[string]any{
		"title":    "new title",
		"priority": "low",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeJSON[TaskDTO](t, rec)
	assert.Equal(t, "new title", updated.Title)
	assert.Equal(t, "low", updated.Priority)
	// Absent fields stay untouched.
	assert.Equal(t, "keep me", updated.Description)
}

func TestCompleteForeignTaskIs404(t *testing.T) {
	f := newCommandFixture(t, httpserver.ServerConfig{})
	owner := f.token(t, "u1")
	mallory := f.token(t, "u2")

	created := decodeJSON[TaskDTO](t, f.do(t, http.MethodPost, "/api/tasks", owner, map[string]any{"title": "private"}))

	rec := f.do(t, http.MethodPatch, "/api/tasks/"+created.ID+"/complete", mallory, map[string]any{"completed": true})
	require.Equal(t, http.StatusNotFound, rec.Code)

	// The task is untouched and nothing was published for the attempt.
	assert.Equal(t, domain.TaskStatusPending, f.repo.tasks[created.ID].Status)
	assert.Len(t, f.repo.outbox, 1) // only task.created
}

func TestDeleteTaskEndpoint(t *testing.T) {
	f := newCommandFixture(t, httpserver.ServerConfig{})
	token := f.token(t, "u1")

	created := decodeJSON[TaskDTO](t, f.do(t, http.MethodPost, "/api/tasks", token, map[string]any{"title": "doomed"}))

	rec := f.do(t, http.MethodDelete, "/api/tasks/"+created.ID, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/tasks/"+created.ID, token, map[string]any{"title": "ghost"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestBodyLimit(t *testing.T) {
	f := newCommandFixture(t, httpserver.ServerConfig{MaxBodyBytes: 128})
	token := f.token(t, "u1")

	rec := f.do(t, http.MethodPost, "/api/tasks", token, map[string]any{
		"title":       "big",
		"description": strings.Repeat("x", 1024),
	})

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "PAYLOAD_TOO_LARGE")
}
