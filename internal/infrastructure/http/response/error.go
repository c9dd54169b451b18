package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rezkam/taskflow/internal/domain"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []ErrorField `json:"details,omitempty"`
}

// ErrorField describes a field-specific error.
type ErrorField struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// BadRequest sends a 400 Bad Request error.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, "INVALID_REQUEST", message, http.StatusBadRequest)
}

// ValidationError sends a 400 validation error with field details.
func ValidationError(w http.ResponseWriter, field, issue string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorDetail{
			Code:    "VALIDATION_ERROR",
			Message: "validation failed",
			Details: []ErrorField{
				{Field: field, Issue: issue},
			},
		},
	})
}

// NotFound sends a 404 Not Found error.
func NotFound(w http.ResponseWriter, resource string) {
	Error(w, "NOT_FOUND", resource+" not found", http.StatusNotFound)
}

// Unauthorized sends a 401 Unauthorized error.
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, "UNAUTHORIZED", message, http.StatusUnauthorized)
}

// Conflict sends a 409 Conflict error.
func Conflict(w http.ResponseWriter, message string) {
	Error(w, "CONFLICT", message, http.StatusConflict)
}

// InternalError sends a 500 Internal Server Error. The real error is logged
// server-side; the client gets a generic message.
func InternalError(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		slog.ErrorContext(r.Context(), "internal server error", "error", err)
	}
	Error(w, "INTERNAL_ERROR", "an internal error occurred", http.StatusInternalServerError)
}

// Error sends a generic error response.
func Error(w http.ResponseWriter, code, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// FromDomainError maps domain errors to HTTP responses.
func FromDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	// Validation errors (400)
	case errors.Is(err, domain.ErrTitleRequired):
		ValidationError(w, "title", "required field missing")
	case errors.Is(err, domain.ErrTitleTooLong):
		ValidationError(w, "title", "must be 500 characters or less")
	case errors.Is(err, domain.ErrDescriptionTooLong):
		ValidationError(w, "description", "must be 5000 characters or less")
	case errors.Is(err, domain.ErrInvalidDueDate):
		ValidationError(w, "due_date", "must be a valid YYYY-MM-DD date")
	case errors.Is(err, domain.ErrInvalidDueTime):
		ValidationError(w, "due_time", "must be HH:MM between 00:00 and 23:59")
	case errors.Is(err, domain.ErrInvalidPriority):
		ValidationError(w, "priority", "must be one of low, medium, high")
	case errors.Is(err, domain.ErrInvalidFrequency):
		ValidationError(w, "frequency", "must be one of daily, weekly, monthly")
	case errors.Is(err, domain.ErrInvalidEndAfterCount):
		ValidationError(w, "end_after_count", "must be at least 1")
	case errors.Is(err, domain.ErrInvalidTriggerTime):
		ValidationError(w, "reminder_time", "must be an RFC 3339 time in the future")
	case errors.Is(err, domain.ErrInvalidStatusFilter):
		ValidationError(w, "status", "must be one of all, pending, completed")
	case errors.Is(err, domain.ErrInvalidID):
		ValidationError(w, "id", "invalid ID format")

	// Not found errors (404). Ownership mismatches land here too: a foreign
	// resource is indistinguishable from a missing one.
	case errors.Is(err, domain.ErrTaskNotFound):
		NotFound(w, "task")
	case errors.Is(err, domain.ErrRuleNotFound):
		NotFound(w, "recurrence rule")
	case errors.Is(err, domain.ErrReminderNotFound):
		NotFound(w, "reminder")
	case errors.Is(err, domain.ErrNotFound):
		NotFound(w, "resource")

	// Auth errors (401)
	case errors.Is(err, domain.ErrUnauthorized):
		Unauthorized(w, "invalid or missing token")

	// Conflicts (409)
	case errors.Is(err, domain.ErrRuleExists):
		Conflict(w, err.Error())

	// Unknown errors (500)
	default:
		InternalError(w, r, err)
	}
}
