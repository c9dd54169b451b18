package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rezkam/taskflow/internal/application/outbox"
	"github.com/rezkam/taskflow/internal/event"
)

// Outbox row states. Pending rows are picked up by the relay; dead rows
// exhausted their attempt budget and wait for operator attention.
const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
	outboxStatusDead      = "dead"
)

// AppendEvent stages an envelope. Called inside the same transaction as the
// mutation that produced it.
func (s *TaskStore) AppendEvent(ctx context.Context, env event.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox envelope: %w", err)
	}
	if _, err := s.db.Exec(ctx, `
		INSERT INTO event_outbox (envelope) VALUES ($1)`, raw,
	); err != nil {
		return fmt.Errorf("failed to insert outbox row: %w", err)
	}
	return nil
}

// ClaimUnpublished returns up to limit pending rows in insertion order.
// Rows are not locked across the cycle; the relay runs as a single worker
// per service and consumers dedupe on event id anyway, so a rare double
// publish is harmless.
func (s *TaskStore) ClaimUnpublished(ctx context.Context, limit int) ([]*outbox.Row, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, envelope, attempts, created_at
		FROM event_outbox
		WHERE status = $1
		ORDER BY id
		LIMIT $2`,
		outboxStatusPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var out []*outbox.Row
	for rows.Next() {
		var row outbox.Row
		var raw []byte
		if err := rows.Scan(&row.ID, &raw, &row.Attempts, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox row: %w", err)
		}
		if err := json.Unmarshal(raw, &row.Envelope); err != nil {
			return nil, fmt.Errorf("malformed envelope in outbox row %d: %w", row.ID, err)
		}
		out = append(out, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read outbox rows: %w", err)
	}
	return out, nil
}

// MarkPublished flips a row to published.
func (s *TaskStore) MarkPublished(ctx context.Context, id int64) error {
	if _, err := s.db.Exec(ctx, `
		UPDATE event_outbox
		SET status = $2, published_at = now()
		WHERE id = $1`,
		id, outboxStatusPublished,
	); err != nil {
		return fmt.Errorf("failed to mark outbox row published: %w", err)
	}
	return nil
}

// MarkFailed burns one attempt and parks the row as dead once the budget is
// spent.
func (s *TaskStore) MarkFailed(ctx context.Context, id int64, reason string, maxAttempts int) (bool, error) {
	var status string
	err := s.db.QueryRow(ctx, `
		UPDATE event_outbox
		SET attempts = attempts + 1,
			last_error = $2,
			status = CASE WHEN attempts + 1 >= $3 THEN $4 ELSE status END
		WHERE id = $1
		RETURNING status`,
		id, reason, maxAttempts, outboxStatusDead,
	).Scan(&status)
	if err != nil {
		return false, fmt.Errorf("failed to mark outbox row failed: %w", err)
	}
	return status == outboxStatusDead, nil
}
