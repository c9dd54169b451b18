package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/taskflow/internal/event"
	"github.com/rezkam/taskflow/internal/infrastructure/kv"
)

// fakeConn records frames written to it.
type fakeConn struct {
	frames   []any
	writeErr error
	closed   bool
}

func (c *fakeConn) WriteJSON(v any) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.frames = append(c.frames, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func newService(t *testing.T) (*Service, *Hub, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hub := NewHub()
	svc := NewService(hub, kv.NewPresenceStore(client), kv.NewReminderQueue(client), "gw-1", nil)
	return svc, hub, mr
}

func triggeredEvent(t *testing.T, userID string) event.Envelope {
	t.Helper()
	env, err := event.New(event.TypeReminderTriggered, "notification-service", event.ReminderTriggeredData{
		ReminderID: "rem-1", TaskID: "task-1", UserID: userID,
	})
	require.NoError(t, err)
	return env
}

func TestHubReplacesConnection(t *testing.T) {
	hub := NewHub()
	first := &fakeConn{}
	second := &fakeConn{}

	hub.Register("alice", first)
	hub.Register("alice", second)

	assert.True(t, first.closed)
	require.NoError(t, hub.Send("alice", "ping"))
	assert.Empty(t, first.frames)
	assert.Len(t, second.frames, 1)

	// The stale socket's disconnect must not evict the replacement.
	assert.False(t, hub.Remove("alice", first))
	assert.True(t, hub.Connected("alice"))
	assert.True(t, hub.Remove("alice", second))
	assert.ErrorIs(t, hub.Send("alice", "ping"), ErrNotConnected)
}

func TestConnectRecordsPresence(t *testing.T) {
	svc, _, mr := newService(t)
	conn := &fakeConn{}

	require.NoError(t, svc.Connect(context.Background(), "alice", conn))

	raw, err := mr.Get("ws-connections:alice")
	require.NoError(t, err)
	var p kv.Presence
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	assert.Equal(t, "gw-1", p.Instance)

	svc.Disconnect(context.Background(), "alice", conn)
	assert.False(t, mr.Exists("ws-connections:alice"))
}

func TestLiveReminderPush(t *testing.T) {
	svc, _, _ := newService(t)
	conn := &fakeConn{}
	ctx := context.Background()

	require.NoError(t, svc.Connect(ctx, "alice", conn))

	status, err := svc.HandleReminderEvent(ctx, triggeredEvent(t, "alice"))
	require.NoError(t, err)
	assert.Equal(t, event.StatusSuccess, status)

	require.Len(t, conn.frames, 1)
	frame, ok := conn.frames[0].(ReminderFrame)
	require.True(t, ok)
	assert.Equal(t, FrameTypeReminder, frame.Type)
	assert.Equal(t, SourceLive, frame.Source)

	var data event.ReminderTriggeredData
	require.NoError(t, json.Unmarshal(frame.Data, &data))
	assert.Equal(t, "rem-1", data.ReminderID)
}

func TestOfflineReminderQueuedAndReplayed(t *testing.T) {
	svc, _, mr := newService(t)
	ctx := context.Background()

	first := triggeredEvent(t, "alice")
	second := triggeredEvent(t, "alice")

	for _, env := range []event.Envelope{first, second} {
		status, err := svc.HandleReminderEvent(ctx, env)
		require.NoError(t, err)
		assert.Equal(t, event.StatusSuccess, status)
	}
	assert.True(t, mr.Exists("reminder-queue:alice"))

	conn := &fakeConn{}
	require.NoError(t, svc.Connect(ctx, "alice", conn))

	require.Len(t, conn.frames, 2)
	for i, want := range []event.Envelope{first, second} {
		frame, ok := conn.frames[i].(ReminderFrame)
		require.True(t, ok)
		assert.Equal(t, SourceReplay, frame.Source)
		assert.JSONEq(t, string(want.Data), string(frame.Data))
	}

	// The queue is gone; a second connect replays nothing.
	assert.False(t, mr.Exists("reminder-queue:alice"))
	again := &fakeConn{}
	require.NoError(t, svc.Connect(ctx, "alice", again))
	assert.Empty(t, again.frames)
}

func TestFailedReplayKeepsQueue(t *testing.T) {
	svc, _, mr := newService(t)
	ctx := context.Background()

	first := triggeredEvent(t, "alice")
	second := triggeredEvent(t, "alice")
	for _, env := range []event.Envelope{first, second} {
		_, err := svc.HandleReminderEvent(ctx, env)
		require.NoError(t, err)
	}

	// The socket dies on the first replayed frame; both entries must survive
	// for the next reconnect.
	broken := &fakeConn{writeErr: errors.New("broken pipe")}
	require.Error(t, svc.Connect(ctx, "alice", broken))
	assert.True(t, mr.Exists("reminder-queue:alice"))
	svc.Disconnect(ctx, "alice", broken)

	conn := &fakeConn{}
	require.NoError(t, svc.Connect(ctx, "alice", conn))
	require.Len(t, conn.frames, 2)
	for i, want := range []event.Envelope{first, second} {
		frame, ok := conn.frames[i].(ReminderFrame)
		require.True(t, ok)
		assert.JSONEq(t, string(want.Data), string(frame.Data))
	}
	assert.False(t, mr.Exists("reminder-queue:alice"))
}

func TestReminderForOtherUserNotPushed(t *testing.T) {
	svc, _, mr := newService(t)
	ctx := context.Background()

	conn := &fakeConn{}
	require.NoError(t, svc.Connect(ctx, "alice", conn))

	status, err := svc.HandleReminderEvent(ctx, triggeredEvent(t, "bob"))
	require.NoError(t, err)
	assert.Equal(t, event.StatusSuccess, status)

	assert.Empty(t, conn.frames)
	assert.True(t, mr.Exists("reminder-queue:bob"))
}

func TestNonTriggeredReminderEventsIgnored(t *testing.T) {
	svc, _, mr := newService(t)

	env, err := event.New(event.TypeReminderDelivered, "notification-service", event.ReminderDeliveredData{
		ReminderID: "rem-1", TaskID: "task-1", UserID: "alice", DeliveredVia: "websocket",
	})
	require.NoError(t, err)

	status, err := svc.HandleReminderEvent(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, event.StatusSuccess, status)
	assert.False(t, mr.Exists("reminder-queue:alice"))
}

func TestTaskEventPushedToOwner(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	conn := &fakeConn{}
	require.NoError(t, svc.Connect(ctx, "alice", conn))

	env, err := event.New(event.TypeTaskUpdated, "command-service", event.TaskUpdatedData{
		TaskID:  "task-1",
		UserID:  "alice",
		Changes: map[string]any{"title": "New title"},
	})
	require.NoError(t, err)

	status, err := svc.HandleTaskEvent(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, event.StatusSuccess, status)

	require.Len(t, conn.frames, 1)
	frame, ok := conn.frames[0].(TaskFrame)
	require.True(t, ok)
	assert.Equal(t, FrameTypeTask, frame.Type)
	assert.Equal(t, "updated", frame.EventType)
	assert.Equal(t, "task-1", frame.TaskID)
}

func TestTaskEventForOfflineUserDiscarded(t *testing.T) {
	svc, _, mr := newService(t)

	env, err := event.New(event.TypeTaskCreated, "command-service", event.TaskCreatedData{
		TaskID: "task-1", UserID: "alice", Title: "x",
	})
	require.NoError(t, err)

	status, err := svc.HandleTaskEvent(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, event.StatusSuccess, status)
	assert.False(t, mr.Exists("reminder-queue:alice"))
}

func TestLivePushFailureFallsBackToQueue(t *testing.T) {
	svc, _, mr := newService(t)
	ctx := context.Background()

	conn := &fakeConn{writeErr: errors.New("broken pipe")}
	require.NoError(t, svc.Connect(ctx, "alice", conn))

	status, err := svc.HandleReminderEvent(ctx, triggeredEvent(t, "alice"))
	require.NoError(t, err)
	assert.Equal(t, event.StatusSuccess, status)
	assert.True(t, mr.Exists("reminder-queue:alice"))
}
