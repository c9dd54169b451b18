package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/taskflow/internal/application/gateway"
	"github.com/rezkam/taskflow/internal/event"
	httpserver "github.com/rezkam/taskflow/internal/infrastructure/http"
	"github.com/rezkam/taskflow/internal/infrastructure/kv"
)

type gatewayFixture struct {
	srv   *httptest.Server
	svc   *gateway.Service
	hub   *gateway.Hub
	queue *kv.ReminderQueue
	mr    *miniredis.Miniredis
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hub := gateway.NewHub()
	queue := kv.NewReminderQueue(client)
	svc := gateway.NewService(hub, kv.NewPresenceStore(client), queue, "gw-test", nil)

	server := httpserver.NewServer(httpserver.ServerConfig{ServiceName: "websocket-gateway"}, func(r chi.Router) {
		r.Mount("/", NewGatewayHandler(svc).Routes())
	})
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	return &gatewayFixture{srv: srv, svc: svc, hub: hub, queue: queue, mr: mr}
}

func (f *gatewayFixture) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func triggeredEnvelope(t *testing.T, userID string) event.Envelope {
	t.Helper()
	env, err := event.New(event.TypeReminderTriggered, "notification-service", event.ReminderTriggeredData{
		ReminderID: "rem-1", TaskID: "task-1", UserID: userID,
	})
	require.NoError(t, err)
	return env
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame map[string]any
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame
}

func TestWSMissingUserIDClosesWith4001(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, "")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, gateway.CloseMissingUserID), "got %v", err)
}

func TestWSLiveReminderPush(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, "?user_id=u1")

	require.Eventually(t, func() bool { return f.hub.Connected("u1") },
		2*time.Second, 10*time.Millisecond)

	status, err := f.svc.HandleReminderEvent(context.Background(), triggeredEnvelope(t, "u1"))
	require.NoError(t, err)
	assert.Equal(t, event.StatusSuccess, status)

	frame := readFrame(t, conn)
	assert.Equal(t, "reminder", frame["type"])
	assert.Equal(t, "live", frame["source"])
	data, ok := frame["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "rem-1", data["reminder_id"])
}

func TestWSReplaysQueuedRemindersOnConnect(t *testing.T) {
	f := newGatewayFixture(t)

	// Fired while the user was offline.
	require.NoError(t, f.queue.Append(context.Background(), "u1", triggeredEnvelope(t, "u1")))

	conn := f.dial(t, "?user_id=u1")
	frame := readFrame(t, conn)
	assert.Equal(t, "reminder", frame["type"])
	assert.Equal(t, "replay", frame["source"])

	// The queue key is gone after the drain.
	assert.False(t, f.mr.Exists("reminder-queue:u1"))
}

func TestWSConnectRegistersPresence(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, "?user_id=u1")

	require.Eventually(t, func() bool { return f.mr.Exists("ws-connections:u1") },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return !f.mr.Exists("ws-connections:u1") },
		2*time.Second, 10*time.Millisecond)
}

func TestWSTaskFramePush(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, "?user_id=u1")

	require.Eventually(t, func() bool { return f.hub.Connected("u1") },
		2*time.Second, 10*time.Millisecond)

	env, err := event.New(event.TypeTaskUpdated, "command-service", event.TaskUpdatedData{
		TaskID: "task-1", UserID: "u1",
	})
	require.NoError(t, err)

	status, err := f.svc.HandleTaskEvent(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, event.StatusSuccess, status)

	frame := readFrame(t, conn)
	assert.Equal(t, "task", frame["type"])
	assert.Equal(t, "updated", frame["event_type"])
	assert.Equal(t, "task-1", frame["task_id"])
}
