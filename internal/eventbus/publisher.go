// Package eventbus carries CloudEvents envelopes over Redis Streams.
//
// Each topic is one stream. Competing services share a consumer group named
// after the service; broadcast consumers (the websocket gateway) use a
// per-instance group so every instance observes every event. Delivery is
// at-least-once: entries are acknowledged only after the handler returns
// Success or Drop, and a reclaim loop redelivers entries left pending by
// crashed consumers.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rezkam/taskflow/internal/event"
)

// envelopeField is the stream entry field holding the CloudEvents JSON.
const envelopeField = "envelope"

// Publisher appends envelopes to the topic stream derived from the event type.
type Publisher struct {
	client redis.UniversalClient
}

// NewPublisher creates a stream publisher on the given Redis client.
func NewPublisher(client redis.UniversalClient) *Publisher {
	return &Publisher{client: client}
}

// Publish appends the envelope to its topic stream.
func (p *Publisher) Publish(ctx context.Context, env event.Envelope) error {
	topic := event.TopicFor(env.Type)
	if topic == "" {
		return fmt.Errorf("no topic mapping for event type %q", env.Type)
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: map[string]any{envelopeField: string(raw)},
	}).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	slog.DebugContext(ctx, "event published",
		"topic", topic,
		"event_type", env.Type,
		"event_id", env.ID)
	return nil
}
