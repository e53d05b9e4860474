package postgres

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// OutboxRepository implements repository.OutboxRepository using PostgreSQL.
type OutboxRepository struct {
	db database.DBTX
}

// NewOutboxRepository creates a new PostgreSQL-backed outbox repository.
func NewOutboxRepository(db database.DBTX) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Add stores an event in the same transaction as the state change it
// describes.
func (r *OutboxRepository) Add(ctx context.Context, e *domain.OutboxEvent) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO outbox_events (id, topic, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Topic, e.AggregateID, e.EventType, e.Payload, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// ClaimPending claims the oldest unsent events for lease. Rows locked by a
// concurrent claim are skipped, and rows whose claim has expired are taken
// over.
func (r *OutboxRepository) ClaimPending(ctx context.Context, limit int, now time.Time, lease time.Duration) ([]domain.OutboxEvent, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE outbox_events SET claimed_until = $3
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE sent_at IS NULL AND (claimed_until IS NULL OR claimed_until <= $2)
			ORDER BY created_at, id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, topic, aggregate_id, event_type, payload, attempts, last_error, created_at, claimed_until`,
		limit, now, now.Add(lease),
	)
	if err != nil {
		return nil, fmt.Errorf("claim pending outbox events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.OutboxEvent, 0)
	for rows.Next() {
		var e domain.OutboxEvent
		if err := rows.Scan(&e.ID, &e.Topic, &e.AggregateID, &e.EventType, &e.Payload,
			&e.Attempts, &e.LastError, &e.CreatedAt, &e.ClaimedUntil); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox events: %w", err)
	}

	// RETURNING does not keep the subquery order.
	slices.SortFunc(events, func(a, b domain.OutboxEvent) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return events, nil
}

// MarkSent records a successful publish.
func (r *OutboxRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE outbox_events SET sent_at = $2, attempts = attempts + 1, last_error = '', claimed_until = NULL WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("mark outbox event sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MarkFailed bumps the attempt counter and keeps the event pending.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id, reason string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE outbox_events SET attempts = attempts + 1, last_error = $2, claimed_until = NULL WHERE id = $1`, id, reason)
	if err != nil {
		return fmt.Errorf("mark outbox event failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Release drops the claims on ids.
func (r *OutboxRepository) Release(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.db.Exec(ctx, `UPDATE outbox_events SET claimed_until = NULL WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("release outbox events: %w", err)
	}
	return nil
}
