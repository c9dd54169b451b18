package event

// Status is the tri-state result a subscription handler returns to the bus.
type Status int

const (
	// StatusSuccess acknowledges the message; processing completed.
	StatusSuccess Status = iota
	// StatusRetry leaves the message pending so the bus redelivers it. Used
	// for transient failures only; idempotency keys make the replay safe.
	StatusRetry
	// StatusDrop acknowledges the message without side effects: duplicates,
	// malformed payloads, and permanent downstream rejections.
	StatusDrop
)

// String implements fmt.Stringer for structured log fields.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusRetry:
		return "RETRY"
	case StatusDrop:
		return "DROP"
	default:
		return "UNKNOWN"
	}
}
