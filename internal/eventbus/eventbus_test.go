package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/taskflow/internal/event"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPublishAppendsToTopicStream(t *testing.T) {
	client := newTestRedis(t)
	pub := NewPublisher(client)
	ctx := context.Background()

	env, err := event.New(event.TypeTaskCreated, "command-service", event.TaskCreatedData{
		TaskID: "t1", UserID: "u1", Title: "Water plants",
	})
	require.NoError(t, err)
	require.NoError(t, pub.Publish(ctx, env))

	entries, err := client.XRange(ctx, event.TopicTaskEvents, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Values, "envelope")
}

func TestPublishUnknownTypeFails(t *testing.T) {
	pub := NewPublisher(newTestRedis(t))
	env := event.Envelope{SpecVersion: "1.0", Type: "com.other.thing.v1", ID: "x", Source: "s"}
	assert.Error(t, pub.Publish(context.Background(), env))
}

func TestSubscriberDeliversAndAcks(t *testing.T) {
	client := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := NewSubscriber(client, "audit-service", "test-1",
		WithBlockTimeout(20*time.Millisecond))

	var mu sync.Mutex
	var got []event.Envelope
	sub.Subscribe(event.TopicTaskEvents, func(_ context.Context, env event.Envelope) (event.Status, error) {
		mu.Lock()
		got = append(got, env)
		mu.Unlock()
		return event.StatusSuccess, nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sub.Start(ctx)
	}()

	// Let the group be created before publishing so the "$" cursor does
	// not skip the entry.
	require.Eventually(t, func() bool {
		groups, err := client.XInfoGroups(ctx, event.TopicTaskEvents).Result()
		return err == nil && len(groups) == 1
	}, time.Second, 5*time.Millisecond)

	pub := NewPublisher(client)
	env, err := event.New(event.TypeTaskCompleted, "command-service", event.TaskCompletedData{
		TaskID: "t1", UserID: "u1",
	})
	require.NoError(t, err)
	require.NoError(t, pub.Publish(ctx, env))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, env.ID, got[0].ID)
	assert.Equal(t, event.TypeTaskCompleted, got[0].Type)
	mu.Unlock()

	// Success acks the entry: nothing should remain pending.
	require.Eventually(t, func() bool {
		pending, err := client.XPending(ctx, event.TopicTaskEvents, "audit-service").Result()
		return err == nil && pending.Count == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestSubscriberRetryLeavesEntryPending(t *testing.T) {
	client := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := NewSubscriber(client, "recurring-service", "test-1",
		WithBlockTimeout(20*time.Millisecond),
		// Keep min-idle high so the same run does not reclaim and
		// re-dispatch the entry mid-assertion.
		WithReclaimMinIdle(time.Hour))

	var mu sync.Mutex
	deliveries := 0
	sub.Subscribe(event.TopicTaskEvents, func(_ context.Context, _ event.Envelope) (event.Status, error) {
		mu.Lock()
		deliveries++
		mu.Unlock()
		return event.StatusRetry, assertableErr{}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sub.Start(ctx)
	}()
	require.Eventually(t, func() bool {
		groups, err := client.XInfoGroups(ctx, event.TopicTaskEvents).Result()
		return err == nil && len(groups) == 1
	}, time.Second, 5*time.Millisecond)

	pub := NewPublisher(client)
	env, err := event.New(event.TypeTaskCompleted, "command-service", event.TaskCompletedData{TaskID: "t1", UserID: "u1"})
	require.NoError(t, err)
	require.NoError(t, pub.Publish(ctx, env))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return deliveries >= 1
	}, 2*time.Second, 10*time.Millisecond)

	pending, err := client.XPending(ctx, event.TopicTaskEvents, "recurring-service").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count, "retried entry must stay pending for redelivery")

	cancel()
	<-done
}

func TestSubscriberDropsMalformedEnvelope(t *testing.T) {
	client := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := NewSubscriber(client, "audit-service", "test-1",
		WithBlockTimeout(20*time.Millisecond))

	called := make(chan struct{}, 1)
	sub.Subscribe(event.TopicTaskEvents, func(_ context.Context, _ event.Envelope) (event.Status, error) {
		called <- struct{}{}
		return event.StatusSuccess, nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sub.Start(ctx)
	}()
	require.Eventually(t, func() bool {
		groups, err := client.XInfoGroups(ctx, event.TopicTaskEvents).Result()
		return err == nil && len(groups) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: event.TopicTaskEvents,
		Values: map[string]any{"envelope": "{not json"},
	}).Err())

	// Malformed entries are acked without reaching the handler.
	require.Eventually(t, func() bool {
		pending, err := client.XPending(ctx, event.TopicTaskEvents, "audit-service").Result()
		return err == nil && pending.Count == 0
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case <-called:
		t.Fatal("handler must not receive malformed envelopes")
	default:
	}

	cancel()
	<-done
}

func TestStartWithoutHandlersFails(t *testing.T) {
	sub := NewSubscriber(newTestRedis(t), "g", "c")
	assert.Error(t, sub.Start(context.Background()))
}

// assertableErr is a sentinel handler error for retry tests.
type assertableErr struct{}

func (assertableErr) Error() string { return "transient failure" }
