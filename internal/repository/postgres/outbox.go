package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

func (r *outboxRepository) ProcessPending(ctx context.Context, limit, maxRetries int, backoff time.Duration,
	fn func(ctx context.Context, evt *model.OutboxEvent) error) (int, int, error) {
	var processed, failed int

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			SELECT id, clinic_id, event_type, payload, status, error_message, retry_count,
				retry_at, created_at, updated_at, processed_at
			FROM outbox_events
			WHERE status = $1
			AND (retry_at IS NULL OR retry_at <= NOW())
			ORDER BY created_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		`
		var events []*model.OutboxEvent
		if err := tx.SelectContext(ctx, &events, query, model.OutboxStatusPending, limit); err != nil {
			return fmt.Errorf("failed to get pending events: %w", err)
		}

		for _, evt := range events {
			if err := fn(ctx, evt); err != nil {
				failed++
				if uerr := markFailed(ctx, tx, evt, err, maxRetries, backoff); uerr != nil {
					return uerr
				}
				continue
			}
			processed++
			update := `
				UPDATE outbox_events
				SET status = $1, error_message = NULL, processed_at = NOW(), updated_at = NOW()
				WHERE id = $2
			`
			if _, err := tx.ExecContext(ctx, update, model.OutboxStatusProcessed, evt.ID); err != nil {
				return fmt.Errorf("failed to mark event processed: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return processed, failed, nil
}

func markFailed(ctx context.Context, tx *sqlx.Tx, evt *model.OutboxEvent, cause error, maxRetries int, backoff time.Duration) error {
	retries := evt.RetryCount + 1
	status := model.OutboxStatusPending
	if retries >= maxRetries {
		status = model.OutboxStatusFailed
	}
	retryAt := time.Now().UTC().Add(backoff * time.Duration(retries))
	msg := cause.Error()

	update := `
		UPDATE outbox_events
		SET status = $1, error_message = $2, retry_count = $3, retry_at = $4, updated_at = NOW()
		WHERE id = $5
	`
	if _, err := tx.ExecContext(ctx, update, status, msg, retries, retryAt, evt.ID); err != nil {
		return fmt.Errorf("failed to reschedule event: %w", err)
	}
	return nil
}

func (r *outboxRepository) PendingCount(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM outbox_events WHERE status = $1`, model.OutboxStatusPending); err != nil {
		return 0, fmt.Errorf("failed to count pending events: %w", err)
	}
	return n, nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM outbox_events
		WHERE status = $1
		AND processed_at < $2
	`
	result, err := r.db.ExecContext(ctx, query, model.OutboxStatusProcessed, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}

	return result.RowsAffected()
}
