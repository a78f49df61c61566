package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/repository"
)

type outboxRepository struct {
	db *sqlx.DB
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO outbox_events (
			id, event_type, payload, status, error_message, retry_count,
			created_at, processed_at, updated_at
		) VALUES (
			:id, :event_type, :payload, :status, :error_message, :retry_count,
			:created_at, :processed_at, :updated_at
		)
	`, event)
	return err
}

// GetPending returns the oldest pending rows. SKIP LOCKED only keeps
// batches disjoint while a claiming transaction holds the rows; this runs
// in autocommit, so run a single worker process against the outbox.
func (r *outboxRepository) GetPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	events := []*model.OutboxEvent{}
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM outbox_events
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, model.OutboxStatusPending, limit)
	return events, err
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_events
		SET status = $1, processed_at = NOW(), updated_at = NOW()
		WHERE id = $2
	`, model.OutboxStatusProcessed, id)
	return err
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_events
		SET status = $1, error_message = $2, retry_count = retry_count + 1, updated_at = NOW()
		WHERE id = $3
	`, model.OutboxStatusFailed, errMsg, id)
	return err
}
