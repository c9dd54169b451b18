// Package kv implements the platform's shared key-value state on Redis:
// idempotency keys, websocket presence, and offline reminder queues.
// Writes are per-key; nothing here needs cross-key transactions.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyTTL is how long processed-event markers live. Replays older
// than this are assumed to have aged out of the bus as well.
const IdempotencyTTL = 24 * time.Hour

// IdempotencyStore records which envelope ids a service has processed.
// A hit means the delivery is a duplicate and must be dropped.
type IdempotencyStore struct {
	client  redis.UniversalClient
	service string
	ttl     time.Duration
}

// NewIdempotencyStore creates a store scoped to one service name.
func NewIdempotencyStore(client redis.UniversalClient, service string) *IdempotencyStore {
	return &IdempotencyStore{client: client, service: service, ttl: IdempotencyTTL}
}

func (s *IdempotencyStore) key(eventID string) string {
	return fmt.Sprintf("idempotency:%s:%s", s.service, eventID)
}

// IsDuplicate reports whether the event id was already processed.
func (s *IdempotencyStore) IsDuplicate(ctx context.Context, eventID string) (bool, error) {
	err := s.client.Get(ctx, s.key(eventID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("idempotency check failed: %w", err)
	}
	return true, nil
}

// MarkProcessed records the event id with the 24 h TTL.
func (s *IdempotencyStore) MarkProcessed(ctx context.Context, eventID string) error {
	value, err := json.Marshal(map[string]string{
		"processed_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal idempotency value: %w", err)
	}
	if err := s.client.Set(ctx, s.key(eventID), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}
