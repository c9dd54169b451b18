package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/taskflow/internal/domain"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestFromDomainErrorValidation(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		field string
	}{
		{"missing title", domain.ErrTitleRequired, "title"},
		{"long title", domain.ErrTitleTooLong, "title"},
		{"bad due date", domain.ErrInvalidDueDate, "due_date"},
		{"bad due time", domain.ErrInvalidDueTime, "due_time"},
		{"bad priority", domain.ErrInvalidPriority, "priority"},
		{"bad frequency", domain.ErrInvalidFrequency, "frequency"},
		{"past reminder", domain.ErrInvalidTriggerTime, "reminder_time"},
		{"bad filter", domain.ErrInvalidStatusFilter, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", nil)

			FromDomainError(rec, req, tt.err)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
			require.Len(t, resp.Error.Details, 1)
			assert.Equal(t, tt.field, resp.Error.Details[0].Field)
		})
	}
}

func TestFromDomainErrorNotFound(t *testing.T) {
	for _, err := range []error{domain.ErrTaskNotFound, domain.ErrRuleNotFound, domain.ErrNotFound} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		FromDomainError(rec, req, err)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Error.Code)
	}
}

func TestFromDomainErrorConflict(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	FromDomainError(rec, req, domain.ErrRuleExists)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decodeError(t, rec).Error.Code)
}

func TestFromDomainErrorUnknown(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	FromDomainError(rec, req, errors.New("database exploded"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	// The real error never reaches the client.
	assert.NotContains(t, rec.Body.String(), "exploded")
}

func TestWrappedErrorStillMatches(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	wrapped := errors.Join(errors.New("context"), domain.ErrTaskNotFound)
	FromDomainError(rec, req, wrapped)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSuccessHelpers(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]string{"hello": "world"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"hello":"world"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	Created(rec, map[string]string{"id": "1"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	NoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}
