package repositories

import (
	"context"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"field-dispatch/internal/entities"
)

type OutboxRepositoryInterface interface {
	Insert(ctx context.Context, tx pgx.Tx, msg *entities.OutboxMessage) error
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	ClaimPending(ctx context.Context, staleBefore time.Time, maxAttempts, limit int) ([]entities.OutboxMessage, error)
}

type OutboxRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewOutboxRepository(storage *pgxpool.Pool, logger *zap.Logger) OutboxRepositoryInterface {
	return &OutboxRepository{storage: storage, logger: logger}
}

func (r *OutboxRepository) Insert(ctx context.Context, tx pgx.Tx, msg *entities.OutboxMessage) error {
	query, args, err := psql.Insert("outbox_messages").
		Columns("id", "event_type", "payload").
		Values(msg.ID, msg.EventType, []byte(msg.Payload)).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return err
	}
	if err := pick(r.storage, tx).QueryRow(ctx, query, args...).Scan(&msg.CreatedAt); err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

func (r *OutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	query, args, err := psql.Update("outbox_messages").
		Set("processed_at", sq.Expr("now()")).
		Set("last_error", nil).
		Where(sq.Eq{"id": id, "processed_at": nil}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.storage.Exec(ctx, query, args...)
	return err
}

// MarkFailed records why delivery failed. Attempts are counted when the
// relay claims the row, not here.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query, args, err := psql.Update("outbox_messages").
		Set("last_error", reason).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.storage.Exec(ctx, query, args...)
	return err
}

const claimPendingSQL = `
UPDATE outbox_messages
SET attempts = attempts + 1, claimed_at = now()
WHERE id IN (
    SELECT id FROM outbox_messages
    WHERE processed_at IS NULL
      AND attempts < $1
      AND COALESCE(claimed_at, created_at) < $2
    ORDER BY created_at
    LIMIT $3
    FOR UPDATE SKIP LOCKED
)
RETURNING id, event_type, payload, attempts, last_error, created_at, processed_at, claimed_at`

// ClaimPending takes unprocessed rows with attempts left whose last claim
// (or creation) is older than staleBefore, counts the attempt and stamps
// claimed_at so the next pass leaves them alone while delivery runs. Rows
// come back oldest first.
func (r *OutboxRepository) ClaimPending(ctx context.Context, staleBefore time.Time, maxAttempts, limit int) ([]entities.OutboxMessage, error) {
	rows, err := r.storage.Query(ctx, claimPendingSQL, maxAttempts, staleBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("claim pending outbox messages: %w", err)
	}
	defer rows.Close()

	messages := make([]entities.OutboxMessage, 0)
	for rows.Next() {
		var m entities.OutboxMessage
		var payload []byte
		if err := rows.Scan(&m.ID, &m.EventType, &payload, &m.Attempts, &m.LastError, &m.CreatedAt, &m.ProcessedAt, &m.ClaimedAt); err != nil {
			return nil, err
		}
		m.Payload = payload
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].CreatedAt.Before(messages[j].CreatedAt) })
	return messages, nil
}
