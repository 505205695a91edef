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

var userColumns = []string{"id", "name", "email", "password_hash", "role", "telegram_chat_id", "whatsapp_number", "created_at"}

type UserRepositoryInterface interface {
	Create(ctx context.Context, user *entities.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entities.User, error)
	FindByEmail(ctx context.Context, email string) (*entities.User, error)
	ListByRole(ctx context.Context, role entities.Role) ([]entities.User, error)
	CountByRole(ctx context.Context, role entities.Role) (int64, error)
	UpdateContact(ctx context.Context, id uuid.UUID, telegramChatID *int64, whatsAppNumber *string) (*entities.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type UserRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewUserRepository(storage *pgxpool.Pool, logger *zap.Logger) UserRepositoryInterface {
	return &UserRepository{storage: storage, logger: logger}
}

func scanUser(row pgx.Row) (*entities.User, error) {
	var user entities.User
	var role string
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &role,
		&user.TelegramChatID, &user.WhatsAppNumber, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	user.Role = entities.Role(role)
	return &user, nil
}

func (r *UserRepository) findOne(ctx context.Context, where sq.Sqlizer) (*entities.User, error) {
	query, args, err := psql.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, err
	}
	return scanUser(r.storage.QueryRow(ctx, query, args...))
}

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	query, args, err := psql.Insert("users").
		Columns("id", "name", "email", "password_hash", "role", "telegram_chat_id", "whatsapp_number").
		Values(user.ID, user.Name, user.Email, user.PasswordHash, string(user.Role), user.TelegramChatID, user.WhatsAppNumber).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return err
	}
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&user.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email is already registered", apperrors.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	return r.findOne(ctx, sq.Eq{"id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.findOne(ctx, sq.Expr("lower(email) = lower(?)", email))
}

// FindByIDs silently omits ids that do not exist.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entities.User, error) {
	result := make(map[uuid.UUID]*entities.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	users, err := r.list(ctx, psql.Select(userColumns...).From("users").Where(sq.Eq{"id": ids}))
	if err != nil {
		return nil, err
	}
	for i := range users {
		result[users[i].ID] = &users[i]
	}
	return result, nil
}

func (r *UserRepository) ListByRole(ctx context.Context, role entities.Role) ([]entities.User, error) {
	return r.list(ctx, psql.Select(userColumns...).
		From("users").
		Where(sq.Eq{"role": string(role)}).
		OrderBy("name", "id"))
}

func (r *UserRepository) CountByRole(ctx context.Context, role entities.Role) (int64, error) {
	query, args, err := psql.Select("COUNT(*)").From("users").Where(sq.Eq{"role": string(role)}).ToSql()
	if err != nil {
		return 0, err
	}
	var count int64
	err = r.storage.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

func (r *UserRepository) UpdateContact(ctx context.Context, id uuid.UUID, telegramChatID *int64, whatsAppNumber *string) (*entities.User, error) {
	query, args, err := psql.Update("users").
		Set("telegram_chat_id", telegramChatID).
		Set("whatsapp_number", whatsAppNumber).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING id, name, email, password_hash, role, telegram_chat_id, whatsapp_number, created_at").
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanUser(r.storage.QueryRow(ctx, query, args...))
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query, args, err := psql.Update("users").
		Set("password_hash", passwordHash).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.storage.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *UserRepository) list(ctx context.Context, builder sq.SelectBuilder) ([]entities.User, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]entities.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
