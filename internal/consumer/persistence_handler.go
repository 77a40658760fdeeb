package consumer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const auditSchema = `CREATE TABLE IF NOT EXISTS roster_event_log (
    event_id      TEXT PRIMARY KEY,
    event_type    TEXT NOT NULL,
    activity_name TEXT NOT NULL,
    email         TEXT NOT NULL,
    occurred_at   TIMESTAMPTZ NOT NULL,
    topic         TEXT NOT NULL,
    partition     INTEGER NOT NULL,
    record_offset BIGINT NOT NULL,
    payload       JSONB NOT NULL,
    received_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PersistenceHandler writes consumed roster events into Postgres.
type PersistenceHandler struct {
	pool *pgxpool.Pool
}

// NewPersistenceHandler constructs a handler backed by the provided pool.
func NewPersistenceHandler(pool *pgxpool.Pool) *PersistenceHandler {
	return &PersistenceHandler{pool: pool}
}

// EnsureSchema creates the audit log table.
func (h *PersistenceHandler) EnsureSchema(ctx context.Context) error {
	if _, err := h.pool.Exec(ctx, auditSchema); err != nil {
		return fmt.Errorf("apply audit schema: %w", err)
	}
	return nil
}

// Handle stores the event once; redelivered events are ignored.
func (h *PersistenceHandler) Handle(ctx context.Context, msg Message) error {
	_, err := h.pool.Exec(ctx,
		`INSERT INTO roster_event_log (event_id, event_type, activity_name, email, occurred_at, topic, partition, record_offset, payload)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
         ON CONFLICT (event_id) DO NOTHING`,
		msg.Event.EventID,
		msg.Event.Type,
		msg.Event.Activity,
		msg.Event.Email,
		msg.Event.OccurredAt,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		[]byte(msg.Raw),
	)
	return err
}
