package event

// Payload structs for each event type. Field names are part of the wire
// contract shared with every consumer; do not rename without a .v2 type.

// TaskCreatedData is the payload of TypeTaskCreated.
type TaskCreatedData struct {
	TaskID       string            `json:"task_id"`
	UserID       string            `json:"user_id"`
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	DueDate      string            `json:"due_date,omitempty"`
	ReminderTime string            `json:"reminder_time,omitempty"`
	Recurrence   *RecurrenceDetail `json:"recurrence_rule,omitempty"`
	Priority     string            `json:"priority,omitempty"`
	Tags         string            `json:"tags,omitempty"`
}

// RecurrenceDetail describes the rule attached at creation time.
type RecurrenceDetail struct {
	RuleID        string `json:"rule_id"`
	Frequency     string `json:"frequency"`
	EndAfterCount *int   `json:"end_after_count,omitempty"`
	EndByDate     string `json:"end_by_date,omitempty"`
}

// TaskUpdatedData is the payload of TypeTaskUpdated. Changes maps field
// names to their new values.
type TaskUpdatedData struct {
	TaskID  string         `json:"task_id"`
	UserID  string         `json:"user_id"`
	Changes map[string]any `json:"changes"`
}

// TaskCompletedData is the payload of TypeTaskCompleted.
type TaskCompletedData struct {
	TaskID            string `json:"task_id"`
	UserID            string `json:"user_id"`
	HadRecurrenceRule bool   `json:"had_recurrence_rule"`
	RecurrenceRuleID  string `json:"recurrence_rule_id,omitempty"`
	DueDate           string `json:"due_date,omitempty"`
}

// TaskDeletedData is the payload of TypeTaskDeleted.
type TaskDeletedData struct {
	TaskID string `json:"task_id"`
	UserID string `json:"user_id"`
}

// ReminderScheduledData is the payload of TypeReminderScheduled.
type ReminderScheduledData struct {
	ReminderID  string `json:"reminder_id"`
	TaskID      string `json:"task_id"`
	UserID      string `json:"user_id"`
	TriggerTime string `json:"trigger_time"`
}

// ReminderTriggeredData is the payload of TypeReminderTriggered.
type ReminderTriggeredData struct {
	ReminderID string `json:"reminder_id"`
	TaskID     string `json:"task_id"`
	UserID     string `json:"user_id"`
}

// ReminderDeliveredData is the payload of TypeReminderDelivered.
type ReminderDeliveredData struct {
	ReminderID   string `json:"reminder_id"`
	TaskID       string `json:"task_id"`
	UserID       string `json:"user_id"`
	DeliveredVia string `json:"delivered_via"`
}

// ReminderFailedData is the payload of TypeReminderFailed.
type ReminderFailedData struct {
	ReminderID string `json:"reminder_id"`
	TaskID     string `json:"task_id"`
	UserID     string `json:"user_id"`
	Reason     string `json:"reason"`
}

// RecurringGeneratedData is the payload of TypeRecurringGenerated.
type RecurringGeneratedData struct {
	OriginalTaskID   string `json:"original_task_id"`
	NewTaskID        string `json:"new_task_id"`
	UserID           string `json:"user_id"`
	RecurrenceRuleID string `json:"recurrence_rule_id"`
	DueDate          string `json:"due_date,omitempty"`
	OccurrenceNumber int    `json:"occurrence_number"`
}
