package domain

import (
	"encoding/json"
	"time"
)

// AuditEntry is one immutable record of a consumed envelope. Rows are
// insert-only; the storage layer rejects UPDATE and DELETE.
type AuditEntry struct {
	ID         int64           `json:"id"`
	EventType  string          `json:"event_type"`
	EventID    string          `json:"event_id"`
	Source     string          `json:"source"`
	ActorID    *string         `json:"actor_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	EventTime  time.Time       `json:"timestamp"`
	ReceivedAt time.Time       `json:"received_at"`
}

// AuditFilter narrows audit queries. Zero values mean "no constraint".
type AuditFilter struct {
	EventType string
	ActorID   string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// Audit paging bounds.
const (
	AuditDefaultPageSize = 50
	AuditMaxPageSize     = 200
)

// Normalize clamps paging to the allowed bounds: page >= 1 and
// 1 <= page_size <= 200, defaulting to 50.
func (f *AuditFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = AuditDefaultPageSize
	}
	if f.PageSize > AuditMaxPageSize {
		f.PageSize = AuditMaxPageSize
	}
}
