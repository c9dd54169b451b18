package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rezkam/taskflow/internal/event"
)

// Handler processes one envelope and reports the delivery outcome.
// Retry leaves the entry pending for redelivery; Success and Drop ack it.
type Handler func(ctx context.Context, env event.Envelope) (event.Status, error)

// Default subscriber tuning.
const (
	DefaultBlockTimeout   = 5 * time.Second
	DefaultReadBatchSize  = 16
	DefaultReclaimMinIdle = 30 * time.Second
)

// Subscriber consumes topic streams through a consumer group and dispatches
// envelopes to registered handlers.
type Subscriber struct {
	client   redis.UniversalClient
	group    string
	consumer string

	blockTimeout  time.Duration
	readBatchSize int64
	reclaimMinIdle time.Duration

	mu       sync.Mutex
	handlers map[string]Handler
	wg       sync.WaitGroup
}

// SubscriberOption is a functional option for configuring Subscriber.
type SubscriberOption func(*Subscriber)

// WithBlockTimeout sets how long a read blocks waiting for new entries.
func WithBlockTimeout(d time.Duration) SubscriberOption {
	return func(s *Subscriber) { s.blockTimeout = d }
}

// WithReadBatchSize sets the maximum entries fetched per read.
func WithReadBatchSize(n int64) SubscriberOption {
	return func(s *Subscriber) { s.readBatchSize = n }
}

// WithReclaimMinIdle sets how long an entry must sit unacknowledged before
// the reclaim loop steals it from a dead consumer.
func WithReclaimMinIdle(d time.Duration) SubscriberOption {
	return func(s *Subscriber) { s.reclaimMinIdle = d }
}

// NewSubscriber creates a subscriber for the given consumer group. The
// consumer name distinguishes instances inside the group.
func NewSubscriber(client redis.UniversalClient, group, consumer string, opts ...SubscriberOption) *Subscriber {
	s := &Subscriber{
		client:         client,
		group:          group,
		consumer:       consumer,
		blockTimeout:   DefaultBlockTimeout,
		readBatchSize:  DefaultReadBatchSize,
		reclaimMinIdle: DefaultReclaimMinIdle,
		handlers:       make(map[string]Handler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers the handler for a topic. Must be called before Start.
func (s *Subscriber) Subscribe(topic string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[topic] = h
}

// Start creates the consumer groups and runs one consume loop per topic
// until the context is cancelled. In-flight handlers drain before return.
func (s *Subscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	topics := make([]string, 0, len(s.handlers))
	for topic := range s.handlers {
		topics = append(topics, topic)
	}
	s.mu.Unlock()

	if len(topics) == 0 {
		return errors.New("no topic handlers registered")
	}

	for _, topic := range topics {
		if err := s.ensureGroup(ctx, topic); err != nil {
			return err
		}
	}

	for _, topic := range topics {
		s.wg.Go(func() {
			s.consumeLoop(ctx, topic)
		})
	}

	<-ctx.Done()
	s.wg.Wait()
	slog.InfoContext(ctx, "subscriber stopped", "group", s.group)
	return nil
}

// ensureGroup creates the consumer group at the head of the stream,
// creating the stream if needed. BUSYGROUP means it already exists.
func (s *Subscriber) ensureGroup(ctx context.Context, topic string) error {
	err := s.client.XGroupCreateMkStream(ctx, topic, s.group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create group %s on %s: %w", s.group, topic, err)
	}
	return nil
}

func (s *Subscriber) consumeLoop(ctx context.Context, topic string) {
	slog.InfoContext(ctx, "consuming topic",
		"topic", topic,
		"group", s.group,
		"consumer", s.consumer)

	for {
		if ctx.Err() != nil {
			return
		}

		s.reclaimPending(ctx, topic)

		streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.group,
			Consumer: s.consumer,
			Streams:  []string{topic, ">"},
			Count:    s.readBatchSize,
			Block:    s.blockTimeout,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			slog.ErrorContext(ctx, "stream read failed",
				"topic", topic,
				"group", s.group,
				"error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				s.dispatch(ctx, topic, msg)
			}
		}
	}
}

// reclaimPending steals entries that another consumer in the group read but
// never acknowledged, so crashed instances do not strand messages.
func (s *Subscriber) reclaimPending(ctx context.Context, topic string) {
	msgs, _, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   topic,
		Group:    s.group,
		Consumer: s.consumer,
		MinIdle:  s.reclaimMinIdle,
		Start:    "0-0",
		Count:    s.readBatchSize,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			slog.WarnContext(ctx, "pending reclaim failed",
				"topic", topic,
				"group", s.group,
				"error", err)
		}
		return
	}
	for _, msg := range msgs {
		s.dispatch(ctx, topic, msg)
	}
}

func (s *Subscriber) dispatch(ctx context.Context, topic string, msg redis.XMessage) {
	raw, ok := msg.Values[envelopeField].(string)
	if !ok {
		slog.WarnContext(ctx, "stream entry missing envelope field, dropping",
			"topic", topic,
			"entry_id", msg.ID)
		s.ack(ctx, topic, msg.ID)
		return
	}

	var env event.Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		slog.WarnContext(ctx, "malformed envelope, dropping",
			"topic", topic,
			"entry_id", msg.ID,
			"error", err)
		s.ack(ctx, topic, msg.ID)
		return
	}

	s.mu.Lock()
	handler := s.handlers[topic]
	s.mu.Unlock()

	status, err := handler(ctx, env)
	if err != nil {
		slog.ErrorContext(ctx, "handler error",
			"topic", topic,
			"event_type", env.Type,
			"event_id", env.ID,
			"status", status,
			"error", err)
	}

	switch status {
	case event.StatusSuccess, event.StatusDrop:
		s.ack(ctx, topic, msg.ID)
	case event.StatusRetry:
		// Leave pending; the reclaim loop (or this consumer on restart)
		// redelivers it after reclaimMinIdle.
	}
}

func (s *Subscriber) ack(ctx context.Context, topic, entryID string) {
	if err := s.client.XAck(ctx, topic, s.group, entryID).Err(); err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "ack failed",
			"topic", topic,
			"group", s.group,
			"entry_id", entryID,
			"error", err)
	}
}
