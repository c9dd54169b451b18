package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Presence records which gateway instance owns a user's live socket.
type Presence struct {
	Instance    string    `json:"instance"`
	ConnectedAt time.Time `json:"connected_at"`
}

// PresenceStore tracks live websocket connections in shared KV so any
// service can see whether a user is currently reachable.
type PresenceStore struct {
	client redis.UniversalClient
}

// NewPresenceStore creates a presence store.
func NewPresenceStore(client redis.UniversalClient) *PresenceStore {
	return &PresenceStore{client: client}
}

func presenceKey(userID string) string {
	return "ws-connections:" + userID
}

// Register writes the presence key on connect.
func (s *PresenceStore) Register(ctx context.Context, userID, instance string) error {
	value, err := json.Marshal(Presence{
		Instance:    instance,
		ConnectedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal presence: %w", err)
	}
	if err := s.client.Set(ctx, presenceKey(userID), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to register presence for %s: %w", userID, err)
	}
	return nil
}

// Remove deletes the presence key on disconnect. A missing key is fine;
// the socket may have been replaced by a newer connection already.
func (s *PresenceStore) Remove(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, presenceKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to remove presence for %s: %w", userID, err)
	}
	return nil
}

// Get returns the presence entry for a user, or nil when absent.
func (s *PresenceStore) Get(ctx context.Context, userID string) (*Presence, error) {
	raw, err := s.client.Get(ctx, presenceKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read presence for %s: %w", userID, err)
	}
	var p Presence
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("malformed presence entry for %s: %w", userID, err)
	}
	return &p, nil
}
