package domain

import "errors"

// Domain errors shared across services and repositories.

var (
	// ErrNotFound indicates the requested resource does not exist, or the
	// caller does not own it. Ownership mismatches deliberately map to the
	// same error so callers cannot distinguish the two cases.
	ErrNotFound = errors.New("resource not found")

	// ErrTaskNotFound indicates the specified task does not exist for the caller.
	ErrTaskNotFound = errors.New("task not found")

	// ErrRuleNotFound indicates the specified recurrence rule does not exist for the caller.
	ErrRuleNotFound = errors.New("recurrence rule not found")

	// ErrReminderNotFound indicates the specified reminder does not exist for the caller.
	ErrReminderNotFound = errors.New("reminder not found")

	// ErrUnauthorized indicates a missing, invalid, or expired credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRuleExists indicates the target task already owns a recurrence rule.
	ErrRuleExists = errors.New("task already has a recurrence rule")

	// ErrInvalidID indicates the provided ID format is invalid.
	ErrInvalidID = errors.New("invalid ID format")
)

// Validation errors. Each maps to a field-level 400 at the HTTP boundary.

var (
	ErrTitleRequired        = errors.New("title is required")
	ErrTitleTooLong         = errors.New("title exceeds 500 characters")
	ErrDescriptionTooLong   = errors.New("description exceeds 5000 characters")
	ErrInvalidDueDate       = errors.New("due_date must be a valid YYYY-MM-DD date")
	ErrInvalidDueTime       = errors.New("due_time must be HH:MM between 00:00 and 23:59")
	ErrInvalidTaskStatus    = errors.New("invalid task status")
	ErrInvalidStatusFilter  = errors.New("status filter must be one of all, pending, completed")
	ErrInvalidFrequency     = errors.New("frequency must be one of daily, weekly, monthly")
	ErrInvalidEndAfterCount = errors.New("end_after_count must be at least 1")
	ErrInvalidPriority      = errors.New("priority must be one of low, medium, high")
	ErrInvalidTriggerTime   = errors.New("reminder trigger time must be in the future")
)
