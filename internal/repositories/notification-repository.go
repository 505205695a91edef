package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"field-dispatch/internal/entities"
	apperrors "field-dispatch/pkg/errors"
)

var notificationColumns = []string{"id", "recipient_id", "message", "task_id", "read", "read_at", "created_at"}

type NotificationRepositoryInterface interface {
	Create(ctx context.Context, tx pgx.Tx, n *entities.Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Notification, error)
	ListFor(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]entities.Notification, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

type NotificationRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewNotificationRepository(storage *pgxpool.Pool, logger *zap.Logger) NotificationRepositoryInterface {
	return &NotificationRepository{storage: storage, logger: logger}
}

func scanNotification(row pgx.Row) (*entities.Notification, error) {
	var n entities.Notification
	if err := row.Scan(&n.ID, &n.RecipientID, &n.Message, &n.TaskID, &n.Read, &n.ReadAt, &n.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) Create(ctx context.Context, tx pgx.Tx, n *entities.Notification) error {
	query, args, err := psql.Insert("notifications").
		Columns("id", "recipient_id", "message", "task_id").
		Values(n.ID, n.RecipientID, n.Message, n.TaskID).
		Suffix("RETURNING read, created_at").
		ToSql()
	if err != nil {
		return err
	}
	if err := pick(r.storage, tx).QueryRow(ctx, query, args...).Scan(&n.Read, &n.CreatedAt); err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Notification, error) {
	query, args, err := psql.Select(notificationColumns...).
		From("notifications").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanNotification(r.storage.QueryRow(ctx, query, args...))
}

func (r *NotificationRepository) ListFor(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]entities.Notification, error) {
	builder := psql.Select(notificationColumns...).
		From("notifications").
		Where(sq.Eq{"recipient_id": recipientID}).
		OrderBy("created_at DESC", "id DESC")
	if unreadOnly {
		builder = builder.Where(sq.Eq{"read": false})
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	if offset > 0 {
		builder = builder.Offset(uint64(offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	result := make([]entities.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	return result, rows.Err()
}

func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("notifications").
		Where(sq.Eq{"recipient_id": recipientID, "read": false}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var count int64
	err = r.storage.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

// MarkRead keeps the first read_at, so repeating it changes nothing.
func (r *NotificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	query, args, err := psql.Update("notifications").
		Set("read", true).
		Set("read_at", sq.Expr("COALESCE(read_at, now())")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.storage.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	query, args, err := psql.Update("notifications").
		Set("read", true).
		Set("read_at", sq.Expr("now()")).
		Where(sq.Eq{"recipient_id": recipientID, "read": false}).
		ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := r.storage.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}
