package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rezkam/taskflow/internal/event"
)

// QueueTTL bounds how long undelivered reminders wait for a reconnect.
const QueueTTL = 24 * time.Hour

// ReminderQueue accumulates reminder envelopes for users with no live
// socket. Entries are appended in firing order and drained on reconnect.
type ReminderQueue struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewReminderQueue creates an offline reminder queue.
func NewReminderQueue(client redis.UniversalClient) *ReminderQueue {
	return &ReminderQueue{client: client, ttl: QueueTTL}
}

func queueKey(userID string) string {
	return "reminder-queue:" + userID
}

// Append pushes an envelope onto the user's queue and refreshes the TTL.
func (q *ReminderQueue) Append(ctx context.Context, userID string, env event.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal queued envelope: %w", err)
	}

	key := queueKey(userID)
	pipe := q.client.TxPipeline()
	pipe.RPush(ctx, key, raw)
	pipe.Expire(ctx, key, q.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to queue reminder for %s: %w", userID, err)
	}
	return nil
}

// Peek returns all queued envelopes in enqueue order without removing them.
// The queue is cleared separately, once every entry has actually been
// delivered; a delivery failure mid-replay then leaves the tail for the next
// reconnect. Malformed entries are skipped rather than blocking the rest of
// the queue.
func (q *ReminderQueue) Peek(ctx context.Context, userID string) ([]event.Envelope, error) {
	entries, err := q.client.LRange(ctx, queueKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read reminder queue for %s: %w", userID, err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	envelopes := make([]event.Envelope, 0, len(entries))
	for _, raw := range entries {
		var env event.Envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			continue
		}
		envelopes = append(envelopes, env)
	}
	return envelopes, nil
}

// Clear deletes the user's queue after successful delivery.
func (q *ReminderQueue) Clear(ctx context.Context, userID string) error {
	if err := q.client.Del(ctx, queueKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear reminder queue for %s: %w", userID, err)
	}
	return nil
}

// Len returns the number of queued entries for a user.
func (q *ReminderQueue) Len(ctx context.Context, userID string) (int64, error) {
	n, err := q.client.LLen(ctx, queueKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue length for %s: %w", userID, err)
	}
	return n, nil
}
