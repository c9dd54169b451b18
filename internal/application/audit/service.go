// Package audit maintains the immutable trail of everything that happened on
// the bus. The recorder subscribes to all topics and appends one row per
// envelope; the query side serves bounded, filtered pages of the trail.
package audit

import (
	"context"
	"log/slog"

	"github.com/rezkam/taskflow/internal/domain"
	"github.com/rezkam/taskflow/internal/event"
)

// ServiceName scopes the recorder's consumer group and idempotency keys.
// Audit publishes nothing, so unlike the other services it has no Source.
const ServiceName = "audit-service"

// Repository defines storage operations for the audit database.
type Repository interface {
	// InsertEntry appends one audit row. Re-inserting an event_id that is
	// already recorded is a silent no-op, so the uniqueness guarantee holds
	// even if the idempotency ledger and the table disagree.
	InsertEntry(ctx context.Context, entry *domain.AuditEntry) error

	// Query returns one page of entries matching the filter, newest event
	// first, along with the total match count.
	Query(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, int, error)
}

// ProcessedEvents is the per-service idempotency ledger.
type ProcessedEvents interface {
	IsDuplicate(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// Service records and serves the audit trail.
type Service struct {
	repo      Repository
	processed ProcessedEvents
	log       *slog.Logger
}

// NewService creates an audit service.
func NewService(repo Repository, processed ProcessedEvents, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, processed: processed, log: log}
}

// HandleEvent records one envelope from any topic. Exactly one row per
// event id ends up in the trail regardless of redeliveries.
func (s *Service) HandleEvent(ctx context.Context, env event.Envelope) (event.Status, error) {
	dup, err := s.processed.IsDuplicate(ctx, env.ID)
	if err != nil {
		return event.StatusRetry, err
	}
	if dup {
		return event.StatusDrop, nil
	}

	entry := &domain.AuditEntry{
		EventType: env.Type,
		EventID:   env.ID,
		Source:    env.Source,
		ActorID:   actorID(env),
		Payload:   env.Data,
		EventTime: env.EventTime(),
	}
	if err := s.repo.InsertEntry(ctx, entry); err != nil {
		return event.StatusRetry, err
	}

	if err := s.processed.MarkProcessed(ctx, env.ID); err != nil {
		return event.StatusRetry, err
	}
	return event.StatusSuccess, nil
}

// Query returns one page of the trail. The filter is normalized to the
// paging bounds first.
func (s *Service) Query(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, int, error) {
	filter.Normalize()
	return s.repo.Query(ctx, filter)
}

// actorID pulls the acting user out of the payload when present. Not every
// payload carries one; the column is nullable for that reason.
func actorID(env event.Envelope) *string {
	var data struct {
		UserID string `json:"user_id"`
	}
	if err := env.DecodeData(&data); err != nil || data.UserID == "" {
		return nil
	}
	return &data.UserID
}
