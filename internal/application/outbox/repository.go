// Package outbox relays transactionally staged events to the bus. Mutations
// write their envelope into the outbox table in the same transaction as the
// row change; the relay drains the table and publishes, so an event exists on
// the bus if and only if its mutation committed.
package outbox

import (
	"context"
	"time"

	"github.com/rezkam/taskflow/internal/event"
)

// Row is one staged envelope awaiting publication.
type Row struct {
	ID        int64
	Envelope  event.Envelope
	Attempts  int
	CreatedAt time.Time
}

// Repository defines storage operations for the outbox table.
type Repository interface {
	// ClaimUnpublished returns up to limit unpublished rows in insertion
	// order. No row locking is involved: each service runs a single relay,
	// and consumers dedupe on event id, so delivery is at-least-once.
	ClaimUnpublished(ctx context.Context, limit int) ([]*Row, error)

	// MarkPublished records that the row reached the bus.
	MarkPublished(ctx context.Context, id int64) error

	// MarkFailed increments the row's attempt counter. Once attempts reach
	// maxAttempts the row is parked as dead and reported as such; dead rows
	// are never claimed again and wait for operator attention.
	MarkFailed(ctx context.Context, id int64, reason string, maxAttempts int) (dead bool, err error)
}

// Publisher sends an envelope to its topic on the bus.
type Publisher interface {
	Publish(ctx context.Context, env event.Envelope) error
}
