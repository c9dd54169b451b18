package event

import "strings"

// Event type identifiers. The .v1 suffix versions the payload schema.
const (
	TypeTaskCreated   = "com.todo.task.created.v1"
	TypeTaskUpdated   = "com.todo.task.updated.v1"
	TypeTaskCompleted = "com.todo.task.completed.v1"
	TypeTaskDeleted   = "com.todo.task.deleted.v1"

	TypeReminderScheduled = "com.todo.reminder.scheduled.v1"
	TypeReminderTriggered = "com.todo.reminder.triggered.v1"
	TypeReminderDelivered = "com.todo.reminder.delivered.v1"
	TypeReminderFailed    = "com.todo.reminder.failed.v1"

	TypeRecurringGenerated = "com.todo.recurring.generated.v1"
)

// Topic names. One stream per topic.
const (
	TopicTaskEvents      = "task-events"
	TopicReminderEvents  = "reminder-events"
	TopicRecurringEvents = "recurring-events"
)

// Topics lists every topic in the platform, in the order the audit service
// subscribes to them.
var Topics = []string{TopicTaskEvents, TopicReminderEvents, TopicRecurringEvents}

// TopicFor maps an event type to its topic by prefix. Unknown types return
// an empty string; publishers treat that as a programming error.
func TopicFor(eventType string) string {
	switch {
	case strings.HasPrefix(eventType, "com.todo.task."):
		return TopicTaskEvents
	case strings.HasPrefix(eventType, "com.todo.reminder."):
		return TopicReminderEvents
	case strings.HasPrefix(eventType, "com.todo.recurring."):
		return TopicRecurringEvents
	default:
		return ""
	}
}

// ShortType extracts the action part of an event type:
// "com.todo.task.updated.v1" -> "updated". Used for gateway frames.
func ShortType(eventType string) string {
	trimmed := strings.TrimSuffix(eventType, ".v1")
	if i := strings.LastIndex(trimmed, "."); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
