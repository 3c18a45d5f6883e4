package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garde/garde/internal/database"
)

// AuditEvent is one row of the append-only log, mirroring the
// original's {ts, action, payload} shape as a concrete Go type.
type AuditEvent struct {
	ID      string
	Ts      time.Time
	Action  string
	Payload interface{}
}

// AuditSink is the append-only event log surrounding collaborators
// write generate_ok / generate_infeasible events to. The scheduling
// core never reads from it.
type AuditSink struct {
	db *database.DB
}

// NewAuditSink builds an audit sink over an open connection pool.
func NewAuditSink(db *database.DB) *AuditSink {
	return &AuditSink{db: db}
}

// EnsureSchema creates the audit table if it doesn't exist yet.
func (s *AuditSink) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			id        UUID PRIMARY KEY,
			ts        TIMESTAMPTZ NOT NULL,
			action    TEXT NOT NULL,
			payload   JSONB NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

// Record appends one event, stamping it with a fresh id and the current
// UTC time.
func (s *AuditSink) Record(ctx context.Context, action string, payload interface{}) error {
	event := AuditEvent{
		ID:      uuid.New().String(),
		Ts:      time.Now().UTC(),
		Action:  action,
		Payload: payload,
	}

	body, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, ts, action, payload)
		VALUES ($1, $2, $3, $4)
	`, event.ID, event.Ts.Format(time.RFC3339), event.Action, body)
	if err != nil {
		return fmt.Errorf("record audit event %s: %w", action, err)
	}
	return nil
}
