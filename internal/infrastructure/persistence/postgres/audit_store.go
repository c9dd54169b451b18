package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rezkam/taskflow/internal/application/audit"
	"github.com/rezkam/taskflow/internal/domain"
)

// AuditStore is the PostgreSQL implementation of the audit trail. Rows are
// append-only; the schema's trigger rejects UPDATE and DELETE.
type AuditStore struct {
	pool *pgxpool.Pool
}

var _ audit.Repository = (*AuditStore)(nil)

// NewAuditStore opens the audit database, running migrations first.
func NewAuditStore(ctx context.Context, cfg DBConfig) (*AuditStore, error) {
	pool, err := newPool(ctx, cfg, auditMigrations)
	if err != nil {
		return nil, err
	}
	return &AuditStore{pool: pool}, nil
}

// Close closes the connection pool.
func (s *AuditStore) Close() error {
	s.pool.Close()
	return nil
}

// InsertEntry appends one audit row. ON CONFLICT DO NOTHING backs the
// exactly-one-row-per-event-id guarantee independently of the idempotency
// ledger.
func (s *AuditStore) InsertEntry(ctx context.Context, entry *domain.AuditEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_entries (event_type, event_id, source, actor_id, payload, event_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING`,
		entry.EventType, entry.EventID, entry.Source, entry.ActorID,
		[]byte(entry.Payload), entry.EventTime,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// Query returns one page of entries matching the filter, newest event
// first, and the total match count. The caller normalizes paging bounds.
func (s *AuditStore) Query(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, int, error) {
	var conditions []string
	var args []any

	add := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.EventType != "" {
		add("event_type = $%d", filter.EventType)
	}
	if filter.ActorID != "" {
		add("actor_id = $%d", filter.ActorID)
	}
	if filter.From != nil {
		add("event_time >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("event_time <= $%d", *filter.To)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	offset := (filter.Page - 1) * filter.PageSize
	args = append(args, filter.PageSize, offset)
	query := fmt.Sprintf(`
		SELECT id, event_type, event_id, source, actor_id, payload, event_time, received_at
		FROM audit_entries%s
		ORDER BY event_time DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args),
	)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var payload []byte
		if err := rows.Scan(&e.ID, &e.EventType, &e.EventID, &e.Source,
			&e.ActorID, &payload, &e.EventTime, &e.ReceivedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Payload = payload
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read audit entries: %w", err)
	}
	return entries, total, nil
}
