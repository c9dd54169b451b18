package domain

import "time"

// ReminderStatus is the delivery state of a reminder. Transitions are one-way
// from pending.
type ReminderStatus string

const (
	ReminderStatusPending   ReminderStatus = "pending"
	ReminderStatusDelivered ReminderStatus = "delivered"
	ReminderStatusFailed    ReminderStatus = "failed"
)

// Reminder is a one-shot notification tied to a task. Each pending reminder
// owns exactly one scheduler job, named JobName, which the scheduler fires at
// TriggerTime.
type Reminder struct {
	ID          string
	TaskID      string
	UserID      string
	TriggerTime time.Time
	Status      ReminderStatus
	JobName     string
	DeliveredAt *time.Time
	CreatedAt   time.Time
}

// ReminderJobName derives the scheduler job name for a reminder id.
func ReminderJobName(reminderID string) string {
	return "reminder-" + reminderID
}
