package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/rezkam/taskflow/internal/event"
)

// ServiceName scopes the gateway's idempotency keys and prefixes its
// per-instance consumer groups.
const ServiceName = "websocket-gateway"

// CloseMissingUserID is the close code sent when the client connected
// without a user_id.
const CloseMissingUserID = 4001

// Frame type and source discriminators on the client protocol.
const (
	FrameTypeTask     = "task"
	FrameTypeReminder = "reminder"
	SourceLive        = "live"
	SourceReplay      = "replay"
)

// TaskFrame mirrors a task mutation to the browser.
type TaskFrame struct {
	Type      string          `json:"type"`
	EventType string          `json:"event_type"`
	TaskID    string          `json:"task_id"`
	Data      json.RawMessage `json:"data"`
}

// ReminderFrame delivers a reminder, either live or replayed from the
// offline queue.
type ReminderFrame struct {
	Type   string          `json:"type"`
	Source string          `json:"source"`
	Data   json.RawMessage `json:"data"`
}

// Presence is the shared KV record of which instance owns a user's socket.
type Presence interface {
	Register(ctx context.Context, userID, instance string) error
	Remove(ctx context.Context, userID string) error
}

// Queue is the offline reminder queue. Entries survive until Clear, so a
// replay that dies partway leaves everything for the next reconnect.
type Queue interface {
	Append(ctx context.Context, userID string, env event.Envelope) error
	Peek(ctx context.Context, userID string) ([]event.Envelope, error)
	Clear(ctx context.Context, userID string) error
}

// Service wires the hub, presence, and queue into the session lifecycle and
// the bus subscriptions.
type Service struct {
	hub      *Hub
	presence Presence
	queue    Queue
	instance string
	log      *slog.Logger
}

// NewService creates a gateway service for one instance.
func NewService(hub *Hub, presence Presence, queue Queue, instance string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{hub: hub, presence: presence, queue: queue, instance: instance, log: log}
}

// Connect registers the user's socket, records presence, and replays any
// reminders that queued up while the user was offline, in firing order.
func (s *Service) Connect(ctx context.Context, userID string, ws Conn) error {
	s.hub.Register(userID, ws)

	if err := s.presence.Register(ctx, userID, s.instance); err != nil {
		s.log.WarnContext(ctx, "failed to record presence", "user_id", userID, "error", err)
	}

	queued, err := s.queue.Peek(ctx, userID)
	if err != nil {
		s.log.WarnContext(ctx, "failed to read reminder queue", "user_id", userID, "error", err)
		return nil
	}
	for _, env := range queued {
		frame := ReminderFrame{Type: FrameTypeReminder, Source: SourceReplay, Data: env.Data}
		if err := s.hub.Send(userID, frame); err != nil {
			s.log.WarnContext(ctx, "failed to replay queued reminder",
				"user_id", userID, "event_id", env.ID, "error", err)
			return err
		}
	}
	if len(queued) > 0 {
		// Cleared only now that every frame went out. A clear failure just
		// means a duplicate replay on the next reconnect.
		if err := s.queue.Clear(ctx, userID); err != nil {
			s.log.WarnContext(ctx, "failed to clear reminder queue", "user_id", userID, "error", err)
		}
		s.log.InfoContext(ctx, "replayed queued reminders", "user_id", userID, "count", len(queued))
	}
	return nil
}

// Disconnect removes the socket and, if it was still the user's current one,
// the presence entry.
func (s *Service) Disconnect(ctx context.Context, userID string, ws Conn) {
	if !s.hub.Remove(userID, ws) {
		return
	}
	if err := s.presence.Remove(ctx, userID); err != nil {
		s.log.WarnContext(ctx, "failed to remove presence", "user_id", userID, "error", err)
	}
}

// HandleTaskEvent mirrors a task mutation to its owner's socket. Users
// without a live socket here simply miss the frame; the HTTP API remains
// the source of truth for task state.
func (s *Service) HandleTaskEvent(ctx context.Context, env event.Envelope) (event.Status, error) {
	var data struct {
		TaskID string `json:"task_id"`
		UserID string `json:"user_id"`
	}
	if err := env.DecodeData(&data); err != nil {
		s.log.WarnContext(ctx, "malformed task event dropped", "event_id", env.ID, "error", err)
		return event.StatusDrop, nil
	}
	if data.UserID == "" {
		return event.StatusDrop, nil
	}

	frame := TaskFrame{
		Type:      FrameTypeTask,
		EventType: event.ShortType(env.Type),
		TaskID:    data.TaskID,
		Data:      env.Data,
	}
	if err := s.hub.Send(data.UserID, frame); err != nil && !errors.Is(err, ErrNotConnected) {
		s.log.WarnContext(ctx, "failed to push task frame", "user_id", data.UserID, "error", err)
	}
	return event.StatusSuccess, nil
}

// HandleReminderEvent delivers reminder.triggered.v1 live when the user is
// connected here, and queues the envelope otherwise so a later reconnect
// replays it. Other reminder lifecycle events are bookkeeping between the
// backend services and are acked untouched.
func (s *Service) HandleReminderEvent(ctx context.Context, env event.Envelope) (event.Status, error) {
	if env.Type != event.TypeReminderTriggered {
		return event.StatusSuccess, nil
	}

	var data event.ReminderTriggeredData
	if err := env.DecodeData(&data); err != nil {
		s.log.WarnContext(ctx, "malformed reminder event dropped", "event_id", env.ID, "error", err)
		return event.StatusDrop, nil
	}
	if data.UserID == "" {
		return event.StatusDrop, nil
	}

	if s.hub.Connected(data.UserID) {
		frame := ReminderFrame{Type: FrameTypeReminder, Source: SourceLive, Data: env.Data}
		if err := s.hub.Send(data.UserID, frame); err == nil {
			return event.StatusSuccess, nil
		} else if !errors.Is(err, ErrNotConnected) {
			s.log.WarnContext(ctx, "live reminder push failed, queueing",
				"user_id", data.UserID, "event_id", env.ID, "error", err)
		}
	}

	if err := s.queue.Append(ctx, data.UserID, env); err != nil {
		return event.StatusRetry, err
	}
	return event.StatusSuccess, nil
}
