package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CloudEvents v1.0 envelope constants.
const (
	SpecVersion     = "1.0"
	DataContentType = "application/json"
)

// Envelope is the CloudEvents v1.0 JSON binding carried on every topic.
// The id is globally unique; consumers treat duplicate ids as already
// processed and drop them.
type Envelope struct {
	SpecVersion     string          `json:"specversion"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	ID              string          `json:"id"`
	Time            string          `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`
}

// New builds an envelope for the given event type and payload, stamping a
// fresh UUIDv7 id and the current UTC time in RFC 3339 format.
func New(eventType, source string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to generate event id: %w", err)
	}

	return Envelope{
		SpecVersion:     SpecVersion,
		Type:            eventType,
		Source:          source,
		ID:              id.String(),
		Time:            time.Now().UTC().Format(time.RFC3339),
		DataContentType: DataContentType,
		Data:            data,
	}, nil
}

// Validate checks the envelope fields consumers rely on.
func (e Envelope) Validate() error {
	if e.SpecVersion != SpecVersion {
		return fmt.Errorf("unsupported specversion %q", e.SpecVersion)
	}
	if e.Type == "" {
		return errors.New("event type is required")
	}
	if e.ID == "" {
		return errors.New("event id is required")
	}
	if e.Source == "" {
		return errors.New("event source is required")
	}
	return nil
}

// EventTime parses the envelope time, falling back to now for malformed
// producer timestamps rather than rejecting the event.
func (e Envelope) EventTime() time.Time {
	if t, err := time.Parse(time.RFC3339, e.Time); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339Nano, e.Time); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}

// DecodeData unmarshals the envelope payload into v.
func (e Envelope) DecodeData(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
	}
	return nil
}
