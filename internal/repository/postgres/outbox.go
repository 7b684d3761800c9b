package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mediflow/scheduling-api/internal/model"
)

const insertOutboxQuery = `
	INSERT INTO outbox_events (id, event_type, payload, status, attempts, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
`

// enqueueInTx writes the event inside the caller's transaction so the event
// and the mutation it describes commit or roll back together. A nil event
// is a no-op.
func enqueueInTx(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	if event == nil {
		return nil
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.Status = model.OutboxStatusPending
	event.CreatedAt = time.Now()

	_, err := tx.ExecContext(ctx, insertOutboxQuery,
		event.ID, event.EventType, event.Payload, event.Status, event.Attempts, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) Enqueue(ctx context.Context, event *model.OutboxEvent) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		return enqueueInTx(ctx, tx, event)
	})
}

// GetPendingWithLock reads a pending batch with SKIP LOCKED so concurrent
// pollers skip rows another transaction holds. The locks end when the read
// returns, so delivery is at least once and consumers must tolerate
// duplicates.
func (r *outboxRepository) GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
		SELECT id, event_type, payload, status, attempts, created_at, processed_at
		FROM outbox_events
		WHERE status = 'PENDING'
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	var events []*model.OutboxEvent
	if err := r.db.SelectContext(ctx, &events, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}
	return events, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_events
		SET status = 'PUBLISHED', processed_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to mark event published: %w", err)
	}
	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_events
		SET status = CASE WHEN attempts + 1 >= 5 THEN 'FAILED' ELSE 'PENDING' END,
			attempts = attempts + 1,
			processed_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to mark event failed: %w", err)
	}
	return nil
}
