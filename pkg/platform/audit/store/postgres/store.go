package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "kudose/pkg/platform/audit"
	"kudose/pkg/platform/dbx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events land in the outbox table and are relayed to Kafka by the worker.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) execer(ctx context.Context) dbx.DBTX {
	return dbx.Conn(ctx, s.db)
}

// outboxPayload is the JSON document published to Kafka.
type outboxPayload struct {
	ID          string `json:"id"`
	Timestamp   string `json:"timestamp"`
	PrincipalID string `json:"principal_id,omitempty"`
	Action      string `json:"action"`
	Subject     string `json:"subject,omitempty"`
	Decision    string `json:"decision,omitempty"`
	Reason      string `json:"reason,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
	ActorID     string `json:"actor_id,omitempty"`
}

// Append writes an audit event to the outbox table. Inside a unit of work the
// row commits or rolls back with it.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	payload := outboxPayload{
		ID:        eventID.String(),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:    event.Action,
		Subject:   event.Subject,
		Decision:  event.Decision,
		Reason:    event.Reason,
		RequestID: event.RequestID,
		ActorID:   event.ActorID,
	}
	aggregateType := "audit"
	aggregateID := eventID.String()
	if !event.PrincipalID.IsNil() {
		payload.PrincipalID = event.PrincipalID.String()
		aggregateType = "principal"
		aggregateID = payload.PrincipalID
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		eventID,
		aggregateType,
		aggregateID,
		event.Action,
		payloadBytes,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ClaimUnpublished locks up to limit undelivered rows, hands them to deliver,
// and marks them published when deliver succeeds. Concurrent relays skip rows
// another relay holds.
func (s *Store) ClaimUnpublished(ctx context.Context, limit int, deliver func(ctx context.Context, entries []audit.OutboxEntry) error) (int, error) {
	var claimed int
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, q dbx.DBTX) error {
		rows, err := q.QueryContext(ctx, `
			SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
			FROM outbox
			WHERE published_at IS NULL
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		`, limit)
		if err != nil {
			return fmt.Errorf("select outbox: %w", err)
		}
		defer rows.Close()

		var entries []audit.OutboxEntry
		var ids []string
		for rows.Next() {
			var e audit.OutboxEntry
			if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
				return fmt.Errorf("scan outbox: %w", err)
			}
			entries = append(entries, e)
			ids = append(ids, e.ID)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate outbox: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}

		if err := deliver(ctx, entries); err != nil {
			return err
		}

		if _, err := q.ExecContext(ctx,
			`UPDATE outbox SET published_at = NOW() WHERE id = ANY($1::uuid[])`,
			pq.Array(ids),
		); err != nil {
			return fmt.Errorf("mark outbox published: %w", err)
		}
		claimed = len(entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return claimed, nil
}
