package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// Default relay tuning. Overridable via options.
const (
	DefaultPollInterval     = time.Second
	DefaultBatchSize        = 50
	DefaultMaxAttempts      = 10
	DefaultOperationTimeout = 30 * time.Second
)

// Relay drains the outbox and publishes staged envelopes to the bus.
type Relay struct {
	repo      Repository
	publisher Publisher

	pollInterval     time.Duration
	batchSize        int
	maxAttempts      int
	operationTimeout time.Duration
	wg               sync.WaitGroup
}

// Option is a functional option for configuring Relay.
type Option func(*Relay)

// WithPollInterval sets how often the relay drains the outbox.
func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) {
		r.pollInterval = d
	}
}

// WithBatchSize sets how many rows one cycle claims.
func WithBatchSize(n int) Option {
	return func(r *Relay) {
		r.batchSize = n
	}
}

// WithMaxAttempts sets the attempt budget before a row is parked as dead.
func WithMaxAttempts(n int) Option {
	return func(r *Relay) {
		r.maxAttempts = n
	}
}

// WithOperationTimeout sets the timeout for one drain cycle.
func WithOperationTimeout(d time.Duration) Option {
	return func(r *Relay) {
		r.operationTimeout = d
	}
}

// New creates a relay with the given storage and bus publisher.
func New(repo Repository, publisher Publisher, opts ...Option) *Relay {
	r := &Relay{
		repo:             repo,
		publisher:        publisher,
		pollInterval:     DefaultPollInterval,
		batchSize:        DefaultBatchSize,
		maxAttempts:      DefaultMaxAttempts,
		operationTimeout: DefaultOperationTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start runs the relay until the context is cancelled, then waits for the
// in-flight cycle to finish.
func (r *Relay) Start(ctx context.Context) error {
	slog.InfoContext(ctx, "outbox relay started", "poll_interval", r.pollInterval)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.wg.Go(func() {
				opCtx, cancel := context.WithTimeout(context.Background(), r.operationTimeout)
				defer cancel()
				if err := r.RunOnce(opCtx); err != nil {
					slog.ErrorContext(opCtx, "outbox drain cycle failed", "error", err)
				}
			})
		case <-ctx.Done():
			r.wg.Wait()
			slog.InfoContext(ctx, "outbox relay stopped")
			return nil
		}
	}
}

// RunOnce executes a single drain cycle: claim a batch, publish each row in
// insertion order, mark the outcome. Publish failures burn one attempt per
// cycle; the row stays claimed-free and is retried next cycle until the
// attempt budget is spent.
func (r *Relay) RunOnce(ctx context.Context) error {
	rows, err := r.repo.ClaimUnpublished(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("failed to claim outbox rows: %w", err)
	}

	for _, row := range rows {
		if err := r.publish(ctx, row); err == nil {
			if err := r.repo.MarkPublished(ctx, row.ID); err != nil {
				return fmt.Errorf("failed to mark outbox row %d published: %w", row.ID, err)
			}
			continue
		} else {
			dead, markErr := r.repo.MarkFailed(ctx, row.ID, err.Error(), r.maxAttempts)
			if markErr != nil {
				return fmt.Errorf("failed to mark outbox row %d failed: %w", row.ID, markErr)
			}
			if dead {
				slog.ErrorContext(ctx, "outbox row parked as dead",
					"outbox_id", row.ID, "event_id", row.Envelope.ID,
					"event_type", row.Envelope.Type, "error", err)
			} else {
				slog.WarnContext(ctx, "outbox publish failed, will retry",
					"outbox_id", row.ID, "event_id", row.Envelope.ID,
					"attempts", row.Attempts+1, "error", err)
			}
		}
	}
	return nil
}

// publish sends one envelope with short in-cycle backoff to ride out bus
// blips without burning a persisted attempt for each.
func (r *Relay) publish(ctx context.Context, row *Row) error {
	backoff := retry.WithMaxRetries(2, retry.NewExponential(100*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := r.publisher.Publish(ctx, row.Envelope); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
