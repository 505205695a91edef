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

var locationColumns = []string{"id", "task_id", "user_id", "latitude", "longitude", "recorded_at"}

type LocationRepositoryInterface interface {
	InsertIfTracking(ctx context.Context, sample *entities.LocationSample) error
	ListByTask(ctx context.Context, taskID uuid.UUID, limit int) ([]entities.LocationSample, error)
	Track(ctx context.Context, taskID uuid.UUID) ([]entities.LocationSample, error)
	LatestForUser(ctx context.Context, userID uuid.UUID) (*entities.LocationSample, error)
}

type LocationRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewLocationRepository(storage *pgxpool.Pool, logger *zap.Logger) LocationRepositoryInterface {
	return &LocationRepository{storage: storage, logger: logger}
}

func scanLocation(row pgx.Row) (*entities.LocationSample, error) {
	var s entities.LocationSample
	if err := row.Scan(&s.ID, &s.TaskID, &s.UserID, &s.Latitude, &s.Longitude, &s.RecordedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// InsertIfTracking appends the sample only while the task is in progress.
// The status check and the insert are one statement, so a sample can never
// land after the task completed. The timestamp is assigned by the database.
func (r *LocationRepository) InsertIfTracking(ctx context.Context, sample *entities.LocationSample) error {
	const query = `
		INSERT INTO location_samples (id, task_id, user_id, latitude, longitude)
		SELECT $1::uuid, t.id, $3::uuid, $4::double precision, $5::double precision
		FROM tasks t
		WHERE t.id = $2::uuid AND t.status = $6
		RETURNING recorded_at`

	err := r.storage.QueryRow(ctx, query,
		sample.ID, sample.TaskID, sample.UserID, sample.Latitude, sample.Longitude,
		string(entities.TaskStatusInProgress),
	).Scan(&sample.RecordedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrInvalidState
		}
		return fmt.Errorf("insert location sample: %w", err)
	}
	return nil
}

func (r *LocationRepository) ListByTask(ctx context.Context, taskID uuid.UUID, limit int) ([]entities.LocationSample, error) {
	builder := psql.Select(locationColumns...).
		From("location_samples").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("recorded_at DESC", "id DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	return r.list(ctx, builder)
}

// Track returns every sample of the task in chronological order.
func (r *LocationRepository) Track(ctx context.Context, taskID uuid.UUID) ([]entities.LocationSample, error) {
	return r.list(ctx, psql.Select(locationColumns...).
		From("location_samples").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("recorded_at ASC", "id ASC"))
}

func (r *LocationRepository) LatestForUser(ctx context.Context, userID uuid.UUID) (*entities.LocationSample, error) {
	query, args, err := psql.Select(locationColumns...).
		From("location_samples").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("recorded_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}
	return scanLocation(r.storage.QueryRow(ctx, query, args...))
}

func (r *LocationRepository) list(ctx context.Context, builder sq.SelectBuilder) ([]entities.LocationSample, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list location samples: %w", err)
	}
	defer rows.Close()

	samples := make([]entities.LocationSample, 0)
	for rows.Next() {
		s, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, *s)
	}
	return samples, rows.Err()
}
