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

var ratingColumns = []string{"id", "task_id", "technician_id", "rating", "comment", "created_at"}

type RatingRepositoryInterface interface {
	Create(ctx context.Context, rating *entities.Rating) error
	ListByTechnician(ctx context.Context, technicianID uuid.UUID) ([]entities.Rating, error)
	List(ctx context.Context) ([]entities.Rating, error)
}

type RatingRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewRatingRepository(storage *pgxpool.Pool, logger *zap.Logger) RatingRepositoryInterface {
	return &RatingRepository{storage: storage, logger: logger}
}

func scanRating(row pgx.Row) (*entities.Rating, error) {
	var rt entities.Rating
	if err := row.Scan(&rt.ID, &rt.TaskID, &rt.TechnicianID, &rt.Rating, &rt.Comment, &rt.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &rt, nil
}

// Create fails with ErrConflict when the task already has a rating.
func (r *RatingRepository) Create(ctx context.Context, rating *entities.Rating) error {
	query, args, err := psql.Insert("ratings").
		Columns("id", "task_id", "technician_id", "rating", "comment").
		Values(rating.ID, rating.TaskID, rating.TechnicianID, rating.Rating, rating.Comment).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return err
	}
	if err := r.storage.QueryRow(ctx, query, args...).Scan(&rating.CreatedAt); err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("%w: task is already rated", apperrors.ErrConflict)
		case isForeignKeyViolation(err):
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("insert rating: %w", err)
	}
	return nil
}

func (r *RatingRepository) ListByTechnician(ctx context.Context, technicianID uuid.UUID) ([]entities.Rating, error) {
	return r.list(ctx, psql.Select(ratingColumns...).
		From("ratings").
		Where(sq.Eq{"technician_id": technicianID}).
		OrderBy("created_at DESC", "id DESC"))
}

func (r *RatingRepository) List(ctx context.Context) ([]entities.Rating, error) {
	return r.list(ctx, psql.Select(ratingColumns...).From("ratings").OrderBy("created_at DESC", "id DESC"))
}

func (r *RatingRepository) list(ctx context.Context, builder sq.SelectBuilder) ([]entities.Rating, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]entities.Rating, 0)
	for rows.Next() {
		rt, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, *rt)
	}
	return ratings, rows.Err()
}
